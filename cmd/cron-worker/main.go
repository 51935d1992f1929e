package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gymdesk-backend/internal/cron"
	"github.com/angelmondragon/gymdesk-backend/internal/gyms"
	"github.com/angelmondragon/gymdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/db"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
	"github.com/angelmondragon/gymdesk-backend/pkg/metrics"
	"github.com/angelmondragon/gymdesk-backend/pkg/migrate"
	"github.com/angelmondragon/gymdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var lock cron.Lock = cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
		if err != nil {
			return err
		}
		lock = redisLock
	} else {
		logg.Warn(ctx, "redis not configured; run a single cron worker")
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	subscriptionJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        logg,
		Subscriptions: subscriptions.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return err
	}
	expiryJob, err := cron.NewLicenseExpiryJob(cron.LicenseExpiryJobParams{
		Logger:  logg,
		Gyms:    gyms.NewRepository(dbClient.DB()),
		Metrics: jobMetrics,
		Window:  cfg.Cron.LicenseExpiryWindow,
		Limit:   cfg.Cron.LicenseExpiryLimit,
	})
	if err != nil {
		return err
	}

	// Subscriptions expire first so the license report sees the current state.
	registry, err := cron.NewRegistry(subscriptionJob, expiryJob)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"jobs":     registry.Names(),
		"run_once": cfg.Cron.RunOnce,
	})
	logg.Info(ctx, "starting cron worker")

	if cfg.Cron.RunOnce {
		report, err := service.RunOnce(ctx)
		if err != nil {
			return err
		}
		return report.Err()
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
