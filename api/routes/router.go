package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/gymdesk-backend/api/controllers"
	"github.com/angelmondragon/gymdesk-backend/api/middleware"
	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/db"
	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
	"github.com/angelmondragon/gymdesk-backend/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient, issuer and metricsHandler are
// optional; rate limiting, issuance and /metrics are skipped when nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	activator controllers.LicenseActivator,
	issuer controllers.LicenseIssuer,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	rateLimited := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
		if redisClient == nil {
			return middleware.RateLimit(policy, nil, logg)
		}
		return middleware.RateLimit(policy, redisClient, logg)
	}
	validatePolicy := middleware.NewRateLimitPolicy("license_validate", cfg.RateLimit.ValidateWindow, cfg.RateLimit.ValidateIPLimit)
	activatePolicy := middleware.NewRateLimitPolicy("license_activate", cfg.RateLimit.ActivateWindow, cfg.RateLimit.ActivateIPLimit)

	checks := []controllers.ReadinessCheck{{Name: "database", Pinger: dbP}}
	if redisClient != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/public/licenses", func(r chi.Router) {
		r.With(rateLimited(validatePolicy)).Post("/validate", controllers.LicenseValidate(activator, logg))
		r.With(rateLimited(activatePolicy)).Post("/activate", controllers.LicenseActivate(activator, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Post("/licenses", controllers.LicenseIssue(issuer, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Get("/gyms/{gymId}/license", controllers.GymLicenseStatus(activator, logg))
	})

	return r
}
