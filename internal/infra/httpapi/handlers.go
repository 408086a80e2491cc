package httpapi

import (
	"context"
	"errors"
	"net/http"

	"utility_billing_bot/internal/app"
	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BillingService is the part of app.BillingService the REST surface needs.
type BillingService interface {
	ListProviders(ctx context.Context) ([]*provider.Provider, error)
	CreateProvider(ctx context.Context, in app.ProviderInput) (*provider.Provider, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, in app.ProviderInput) (*provider.Provider, error)
	UpdateBill(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal, status bill.Status) (*bill.Bill, error)
	ListBillsForMonth(ctx context.Context, yearMonth string) ([]*bill.Bill, error)
}

type Handler struct {
	svc    BillingService
	logger *logrus.Entry
}

func NewHandler(svc BillingService, logger *logrus.Entry) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) ListProviders(c *gin.Context) {
	providers, err := h.svc.ListProviders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, toProviderResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateProvider(c *gin.Context) {
	var req ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := h.svc.CreateProvider(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProviderResponse(p))
}

func (h *Handler) UpdateProvider(c *gin.Context) {
	id, err := uuid.Parse(c.Param("providerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid provider id"})
		return
	}
	var req ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := h.svc.UpdateProvider(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProviderResponse(p))
}

func (h *Handler) UpdateBill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("billId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid bill id"})
		return
	}
	var req BillUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	b, err := h.svc.UpdateBill(c.Request.Context(), id, req.amount(), bill.Status(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponse(b))
}

func (h *Handler) ListBills(c *gin.Context) {
	yearMonth, ok := c.GetQuery("yearMonth")
	if !ok || yearMonth == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "yearMonth query parameter is required"})
		return
	}
	bills, err := h.svc.ListBillsForMonth(c.Request.Context(), yearMonth)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		resp = append(resp, toBillResponse(b))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	details := validationDetails(err)
	if len(details) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: details})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrProviderNotFound), errors.Is(err, app.ErrBillNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrInvalidYearMonth),
		errors.Is(err, provider.ErrInvalidProvider),
		errors.Is(err, bill.ErrInvalidStatus),
		errors.Is(err, bill.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
