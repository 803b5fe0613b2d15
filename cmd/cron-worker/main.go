package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/procurement-backend/internal/cron"
	"github.com/angelmondragon/procurement-backend/internal/targetrates"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/frappe"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/migrate"
	"github.com/angelmondragon/procurement-backend/pkg/redis"
)

const (
	serviceName   = "cron-worker"
	lockKeyFormat = "proc:cron-worker:lock:%s"
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

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Sync.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create job lock", err)
		os.Exit(1)
	}

	erp, err := frappe.NewClient(cfg.Frappe.BaseURL, cfg.Frappe.APIKey, cfg.Frappe.APISecret,
		frappe.WithTimeout(cfg.Frappe.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create frappe client", err)
		os.Exit(1)
	}

	rates, err := targetrates.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create target rate repository", err)
		os.Exit(1)
	}
	syncJob, err := targetrates.NewSyncJob(targetrates.SyncJobParams{
		Source:   erp,
		Store:    rates,
		Doctype:  cfg.Sync.TargetRateDoctype,
		PageSize: cfg.Sync.PageSize,
		Metrics:  jobMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create target rate sync", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(syncJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Sync.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
