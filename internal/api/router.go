package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/villxfxni/donation-tracking/internal/api/handler"
	"github.com/villxfxni/donation-tracking/internal/api/middleware"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	JWTSecret string
	Donations ports.DonationService
	Tracking  ports.TrackingService
	Provider  ports.LocationProvider
	Resolver  ports.AddressResolver
	Routes    ports.RouteEngine
	Mongo     *mongo.Database
	Redis     *redis.Client
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("donation_tracking"))

	// --- Metrics and health probes (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Authenticated API ---
	donationHandler := handler.NewDonationHandler(deps.Donations)
	trackingHandler := handler.NewTrackingHandler(deps.Tracking, deps.Routes)
	geoHandler := handler.NewGeoHandler(deps.Provider, deps.Resolver, deps.Routes)

	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret))
	staff := middleware.RBAC(middleware.RoleAdmin, middleware.RoleCustodian)
	admin := middleware.RBAC(middleware.RoleAdmin)

	v1.GET("/donations", donationHandler.List, staff)
	v1.GET("/donations/:id", donationHandler.Get, staff)
	v1.POST("/donations/:id/transition", donationHandler.Transition, staff)
	v1.POST("/donations/:id/destination", donationHandler.ChangeDestination, admin)

	v1.GET("/tracking", trackingHandler.List)
	v1.GET("/tracking/delivered/count", trackingHandler.DeliveredCount)
	v1.GET("/tracking/metrics", trackingHandler.Metrics)
	v1.GET("/tracking/reports", trackingHandler.Reports, staff)
	v1.GET("/tracking/:id/report", trackingHandler.Report, staff)
	v1.GET("/tracking/:id/route", trackingHandler.Route)

	v1.GET("/geo/position", geoHandler.Position)
	v1.GET("/geo/address", geoHandler.Address)
	v1.POST("/geo/route", geoHandler.Route)

	return e
}
