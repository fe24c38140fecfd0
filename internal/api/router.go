package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fasttag/tag-position-api/docs"
	"github.com/fasttag/tag-position-api/internal/api/handler"
	"github.com/fasttag/tag-position-api/internal/api/middleware"
	"github.com/fasttag/tag-position-api/internal/core/ports"
	"github.com/fasttag/tag-position-api/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Service       ports.PositionService
	DefaultVendor string
	// JWTSecret enables bearer auth on /tag routes when non-empty.
	JWTSecret string
	// Mongo is nil when the audit trail is disabled.
	Mongo  handlers.Pinger
	Logger zerolog.Logger
	// Registerer and Gatherer default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	registerer := d.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/metrics") || strings.HasPrefix(c.Path(), "/swagger")
		},
	}))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(d.Service, d.Mongo)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Position routes ---
	positionHandler := handler.NewPositionHandler(d.Service, d.DefaultVendor)

	tag := e.Group("/tag")
	var listGuards []echo.MiddlewareFunc
	if d.JWTSecret != "" {
		tag.Use(middleware.Auth(d.JWTSecret))
		listGuards = append(listGuards, middleware.RBAC(middleware.RoleAdmin))
	}

	tag.GET("/vendors", positionHandler.Vendors)
	tag.GET("/position/:vendor/:publicKey", positionHandler.Locate)
	tag.GET("/position/:publicKey", positionHandler.LocateDefault)
	tag.GET("/:vendor/all", positionHandler.List, listGuards...)

	return e
}
