package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine serving the /api surface.
func NewRouter(svc BillingService, logger *logrus.Entry, corsOrigin string) *gin.Engine {
	SetupValidator()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors(corsOrigin))

	h := NewHandler(svc, logger)
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.GET("/providers", h.ListProviders)
		api.POST("/providers", h.CreateProvider)
		api.PUT("/providers/:providerId", h.UpdateProvider)

		api.GET("/bills", h.ListBills)
		api.PATCH("/bills/:billId", h.UpdateBill)
	}
	return r
}

// NewServer wraps the router in an http.Server so main can shut it down gracefully.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
			return
		}
		entry.Debug("HTTP request")
	}
}

// cors allows the single configured browser origin. An empty origin disables the headers.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin == "" {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
