package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/procurement-backend/api/routes"
	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/paymentterms"
	"github.com/angelmondragon/procurement-backend/internal/presence"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/internal/rfq"
	"github.com/angelmondragon/procurement-backend/internal/targetrates"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/env"
	"github.com/angelmondragon/procurement-backend/pkg/frappe"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/migrate"
	"github.com/angelmondragon/procurement-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	erp, err := frappe.NewClient(cfg.Frappe.BaseURL, cfg.Frappe.APIKey, cfg.Frappe.APISecret,
		frappe.WithTimeout(cfg.Frappe.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create frappe client", err)
		os.Exit(1)
	}

	catalog := documents.NewCatalog(cfg.Frappe.ProcurementDoctype, cfg.Frappe.SentBackDoctype)
	docs, err := documents.NewRepository(documents.RepositoryParams{
		Raw:            erp,
		Catalog:        catalog,
		CommentDoctype: cfg.Frappe.CommentDoctype,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create document repository", err)
		os.Exit(1)
	}

	rates, err := targetrates.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create target rate repository", err)
		os.Exit(1)
	}

	rfqMetrics := metrics.NewRFQMetrics(prometheus.DefaultRegisterer)
	drafts, err := rfq.NewDraftStore(redisClient, cfg.Drafts.TTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create draft store", err)
		os.Exit(1)
	}
	guard, err := rfq.NewGuard(redisClient, cfg.Drafts.InFlightTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create in-flight guard", err)
		os.Exit(1)
	}

	rfqService, err := rfq.NewService(rfq.ServiceParams{
		Documents:     docs,
		Catalog:       catalog,
		Drafts:        drafts,
		Guard:         guard,
		Rates:         rates,
		Quotes:        quotes.NewResolver(cfg.Drafts.QuoteCacheSize, rfqMetrics),
		LegacyItemKey: cfg.TargetRates.LegacyItemKey(),
		Metrics:       rfqMetrics,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rfq service", err)
		os.Exit(1)
	}

	termsService, err := paymentterms.NewService(paymentterms.ServiceParams{
		Documents: docs,
		Summaries: rfqService,
		Blobs:     redisClient,
		Drafts:    drafts,
		Guard:     guard,
		TTL:       cfg.Drafts.TTL,
		Metrics:   rfqMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment terms service", err)
		os.Exit(1)
	}

	hub := presence.NewHub(logg, presence.WithAllowedOrigins(cfg.CORS.AllowedOrigins))

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:       dbClient,
			Redis:    redisClient,
			RFQ:      rfqService,
			Terms:    termsService,
			Rates:    rates,
			Presence: hub,
			Gatherer: prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
