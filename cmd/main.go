package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/saaw-digital/giveaway-service/internal/config"
	"github.com/saaw-digital/giveaway-service/internal/crm"
	"github.com/saaw-digital/giveaway-service/internal/database"
	"github.com/saaw-digital/giveaway-service/internal/handler"
	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/middleware"
	"github.com/saaw-digital/giveaway-service/internal/repository"
	"github.com/saaw-digital/giveaway-service/internal/service"
)

func main() {
	ctx := context.Background()

	// Load .env if present, then configuration from environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting giveaway service",
		zap.String("environment", cfg.App.Environment),
		zap.String("campaign", cfg.Campaign.Name),
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.String("crm_provider", cfg.CRM.Provider),
	)

	// Select the submission ledger backend
	var (
		submissionLedger service.Ledger
		db               *database.DB
	)
	switch cfg.Ledger.Backend {
	case "postgres":
		db, err = database.NewDB(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database connections", zap.Error(err))
			}
		}()

		repo := repository.NewLedgerRepository(db.Postgres)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to ensure ledger schema", zap.Error(err))
		}
		submissionLedger = repo
	case "memory":
		submissionLedger = ledger.New(ledger.NewMemStore())
	default:
		submissionLedger = ledger.New(ledger.NewFileStore(cfg.Ledger.FilePath))
	}

	crmClient := newCRMClient(cfg, logger)

	submissionService := service.NewSubmissionService(
		submissionLedger, crmClient, cfg.Campaign.Name, cfg.Campaign.Website, logger)
	newsletterService := service.NewNewsletterService(
		crmClient, cfg.Campaign.Name, cfg.Campaign.BaseDomain, logger)

	submissionHandler := handler.NewSubmissionHandler(
		submissionService, newsletterService, cfg.Campaign.CodeLength, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
			r.Post("/giveaway", submissionHandler.SubmitGiveaway)
			r.Post("/newsletter", submissionHandler.SubscribeNewsletter)
		})
		r.Get("/statistics", submissionHandler.Statistics)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		hostname, _ := os.Hostname()
		w.WriteHeader(http.StatusOK)
		response := fmt.Sprintf(`{"status":"ok","service":"giveaway-service","hostname":"%s"}`, hostname)
		w.Write([]byte(response))
	})

	// Database health check endpoint (postgres backend only)
	r.Get("/health/db", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","ledger":"` + cfg.Ledger.Backend + `"}`))
			return
		}
		if err := db.Postgres.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","message":"postgres unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","postgres":"connected"}`))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(r, &http2.Server{}),
	}

	// Start server in goroutine
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

// newLogger builds the zap logger for the configured environment.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newCRMClient selects the marketing platform integration. Deployments
// without credentials fall back to the no-op client so the ledger keeps
// working locally.
func newCRMClient(cfg *config.Config, logger *zap.Logger) crm.Client {
	switch cfg.CRM.Provider {
	case "mailchimp":
		if cfg.CRM.MailchimpAPIKey != "" && cfg.CRM.MailchimpAudienceID != "" {
			return crm.NewMailchimp(cfg.CRM.MailchimpAPIKey, cfg.CRM.MailchimpAudienceID, logger)
		}
		logger.Warn("mailchimp credentials missing, crm forwarding disabled")
	case "klaviyo":
		if cfg.CRM.KlaviyoAPIKey != "" {
			return crm.NewKlaviyo(cfg.CRM.KlaviyoAPIKey, cfg.CRM.KlaviyoListID, logger)
		}
		logger.Warn("klaviyo credentials missing, crm forwarding disabled")
	}
	return crm.NewNoop(logger)
}
