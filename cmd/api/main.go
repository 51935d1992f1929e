package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gymdesk-backend/api/controllers"
	"github.com/angelmondragon/gymdesk-backend/api/routes"
	"github.com/angelmondragon/gymdesk-backend/internal/gyms"
	"github.com/angelmondragon/gymdesk-backend/internal/licenses"
	"github.com/angelmondragon/gymdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gymdesk-backend/internal/users"
	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/db"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
	"github.com/angelmondragon/gymdesk-backend/pkg/metrics"
	"github.com/angelmondragon/gymdesk-backend/pkg/migrate"
	"github.com/angelmondragon/gymdesk-backend/pkg/redis"
	"github.com/angelmondragon/gymdesk-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured; rate limiting and activation locks disabled")
	}

	publicKey, err := licensekey.LoadPublicKey(cfg.License)
	if err != nil {
		return err
	}
	validator, err := licensekey.NewValidator(publicKey)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	licenseMetrics := metrics.NewLicenseMetrics(registry)

	gymsRepo := gyms.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	activator, err := licenses.NewActivator(
		dbClient,
		gymsRepo,
		usersRepo,
		validator,
		security.NewPasswordHasher(cfg.Password),
		licenses.ActivatorConfig{
			DefaultOwnerPassword: cfg.License.DefaultOwnerPassword,
			RollbackSeedOnReject: cfg.License.RollbackSeedOnReject,
		},
		logg,
		licenseMetrics,
	)
	if err != nil {
		return err
	}
	if redisClient != nil {
		activator.WithLocker(licenses.NewRedisLocker(redisClient, cfg.License.ActivationLockTTL, logg))
	}

	var issuer controllers.LicenseIssuer
	if cfg.License.IssuanceEnabled {
		privateKey, err := licensekey.LoadPrivateKey(cfg.License)
		if err != nil {
			return err
		}
		signer, err := licensekey.NewSigner(privateKey, licensekey.WithIssuer(cfg.License.Issuer))
		if err != nil {
			return err
		}
		iss, err := licenses.NewIssuer(gymsRepo, usersRepo, subscriptions.NewRepository(dbClient.DB()), signer, logg, licenseMetrics)
		if err != nil {
			return err
		}
		issuer = iss
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"driver":   cfg.DB.Driver,
		"issuance": issuer != nil,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, activator, issuer, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
