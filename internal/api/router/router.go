// Package router sets up the API routes for the application.
// It is only used by the serve command; render and check run without it.
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/petmvp/passportview/consts"
	"github.com/petmvp/passportview/internal/accesscode"
	"github.com/petmvp/passportview/internal/api/handler"
	"github.com/petmvp/passportview/internal/api/middleware"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/exporter"
	"github.com/petmvp/passportview/internal/store"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// Deps are the services the routes are served from
type Deps struct {
	Renderer  handler.Renderer
	Exporters *exporter.Manager
	Access    *accesscode.Service
	// Store is optional; without it views are not logged and the views route reports not found
	Store   store.Store
	Metrics *telemetry.Metrics
}

// Setup configures all API routes
func Setup(r *gin.Engine, deps Deps, cfg *config.Config) {
	// Apply global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(middleware.Metrics(deps.Metrics))

	// Apply OpenTelemetry tracing middleware
	r.Use(otelgin.Middleware(consts.ServiceName))

	checks := map[string]handler.HealthChecker{}
	var views store.ViewLogStore
	if deps.Store != nil {
		views = deps.Store.ViewLog()
		checks["database"] = deps.Store.Ping
	}
	r.GET("/health", handler.NewHealthHandler(checks).Health)

	passportHandler := handler.NewPassportHandler(deps.Renderer, deps.Exporters, views, cfg.Server.Debug)

	// Passport routes require a view token when access.require_token is set
	var guard []gin.HandlerFunc
	if cfg.Access.RequireToken && deps.Access != nil {
		guard = append(guard, middleware.JWTAuth(deps.Access))
	}

	// Rendered booklet
	r.GET("/passports/:number", append(guard, passportHandler.View)...)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// Access codes (public)
	if deps.Access != nil {
		accessHandler := handler.NewAccessHandler(deps.Access, cfg.Backend.DefaultLanguage, cfg.Server.Debug)
		v1.POST("/access-codes/verify", accessHandler.Verify)
	}

	passports := v1.Group("/passports")
	passports.Use(guard...)
	{
		passports.GET("/:number/export", passportHandler.Export)
		passports.GET("/:number/views", passportHandler.ListViews)
		passports.GET("/:number/views/:render_id", passportHandler.GetView)
	}
}
