package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/infra/config"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/transport/http/handlers"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Login         *usecase.LoginService
	Admins        *usecase.AdminService
	Devices       *usecase.DeviceTrustService
	Audit         *usecase.AuditService
	Confirmations *usecase.ConfirmationService
	System        *usecase.SystemService
	Permissions   *usecase.PermissionEngine
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *middleware.HTTPMetrics
	Services ServiceSet
	Tokens   *security.TokenIssuer
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Tokens)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		handlers.NewAuthHandler(deps.Services.Login).RegisterRoutes(authGroup)

		// Every route past this point requires a session. The gates run
		// after auth so super admins can still operate the switches.
		protected := api.Group("")
		protected.Use(authMiddleware)
		protected.Use(middleware.SystemGates(deps.Services.System))

		meGroup := protected.Group("/me")
		handlers.NewPermissionHandler(deps.Services.Permissions).RegisterRoutes(meGroup)

		deviceGroup := protected.Group("/devices")
		handlers.NewDeviceHandler(deps.Services.Devices, deps.Services.Permissions).RegisterRoutes(deviceGroup)

		auditGroup := protected.Group("/audit")
		handlers.NewAuditHandler(deps.Services.Audit, deps.Services.Permissions).RegisterRoutes(auditGroup)

		adminGroup := protected.Group("/admins")
		handlers.NewAdminHandler(deps.Services.Admins, deps.Services.Confirmations, deps.Services.Permissions).RegisterRoutes(adminGroup)

		confirmationGroup := protected.Group("/confirmations")
		handlers.NewConfirmationHandler(deps.Services.Confirmations).RegisterRoutes(confirmationGroup)

		systemGroup := protected.Group("/system")
		handlers.NewSystemHandler(
			deps.Services.System,
			deps.Services.Admins,
			deps.Services.Login,
			deps.Services.Confirmations,
			deps.Services.Permissions,
		).RegisterRoutes(systemGroup)
	}

	return r
}
