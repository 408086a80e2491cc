package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"utility_billing_bot/internal/app"
	"utility_billing_bot/internal/infra/config"
	idb "utility_billing_bot/internal/infra/database"
	"utility_billing_bot/internal/infra/httpapi"
	"utility_billing_bot/internal/infra/logger"
	"utility_billing_bot/internal/infra/scheduler"
	"utility_billing_bot/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"log_level":      cfg.LogLevel,
		"environment":    cfg.Environment,
		"http_addr":      cfg.HTTPAddr,
		"chat_enabled":   cfg.TelegramEnabled(),
		"cron_monthly":   cfg.CronSpecMonthly,
		"strict_due_day": cfg.StrictDueDayMatch,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	if cfg.RunMigrations {
		if err := idb.Migrate(ctx, db); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database schema")
		}
		mainLogger.Info("Database schema is up to date")
	}

	// Initialize Repositories and Service
	providerRepo := idb.NewPostgresProviderRepository(db)
	billRepo := idb.NewPostgresBillRepository(db)
	billingService := app.NewBillingService(
		providerRepo,
		billRepo,
		idb.NewTransactor(db),
		app.SystemClock{},
		logrus.NewEntry(logger.Log),
		app.BillingOptions{
			ReconcileHorizonMonths: cfg.ReconcileHorizonMonths,
			StrictDueDayMatch:      cfg.StrictDueDayMatch,
		},
	)

	// Initialize BillScheduler
	billScheduler := scheduler.NewBillScheduler(billingService, logrus.NewEntry(logger.Log), cfg.CronSpecMonthly)
	if err := billScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start bill scheduler")
	}
	mainLogger.WithField("next_run", billScheduler.Next()).Info("Monthly generation scheduled")

	// HTTP API
	if isProduction(cfg.Environment) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(billingService, logger.Component("http"), cfg.CORSOrigin)
	server := httpapi.NewServer(cfg.HTTPAddr, router)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Operator chat
	var bot *telebot.Bot
	if cfg.TelegramEnabled() {
		botLogger := logger.Component("telegram")
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{
						"message":   c.Text(),
						"sender_id": c.Sender().ID,
						"chat_id":   c.Chat().ID,
					})
				}
				entry.Error("Telebot error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}

		operator := telegram.NewOperator(billingService, app.SystemClock{}, botLogger, cfg.StrictDueDayMatch)
		telegram.RegisterOperatorHandlers(ctx, bot, operator, cfg.OperatorTelegramID, botLogger)
		mainLogger.WithField("operator_id", cfg.OperatorTelegramID).Info("Operator command handlers registered")

		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	} else {
		mainLogger.Info("TELEGRAM_TOKEN is not set, operator chat disabled")
	}

	mainLogger.Info("Application setup complete")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if bot != nil {
		bot.Stop()
	}
	billScheduler.Stop()
	mainLogger.Info("Application shut down gracefully")
}

func isProduction(environment string) bool {
	switch strings.ToLower(environment) {
	case "production", "staging":
		return true
	}
	return false
}
