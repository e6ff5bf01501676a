package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/villxfxni/donation-tracking/internal/api/metrics"
	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// GeoHandler serves position acquisition, reverse geocoding and ad-hoc route
// computation.
type GeoHandler struct {
	provider ports.LocationProvider
	resolver ports.AddressResolver
	routes   ports.RouteEngine
}

func NewGeoHandler(provider ports.LocationProvider, resolver ports.AddressResolver, routes ports.RouteEngine) *GeoHandler {
	return &GeoHandler{provider: provider, resolver: resolver, routes: routes}
}

// Position handles GET /v1/geo/position: a fresh best-effort fix through the
// fallback tiers. Never fails; the worst case is the default position.
func (h *GeoHandler) Position(c echo.Context) error {
	fix, err := h.provider.Acquire(c.Request().Context())
	if err != nil {
		return err
	}
	metrics.LocationFixesTotal.WithLabelValues(string(fix.Source)).Inc()
	return c.JSON(http.StatusOK, fix)
}

// Address handles GET /v1/geo/address?lat=&lng=.
func (h *GeoHandler) Address(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lat")
	}
	lng, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lng")
	}

	addr, err := h.resolver.Resolve(c.Request().Context(), domain.Coordinates{Lat: lat, Lng: lng})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, addr)
}

type routeRequest struct {
	Waypoints []coordinatesRequest `json:"waypoints" validate:"required,min=1"`
}

// Route handles POST /v1/geo/route.
func (h *GeoHandler) Route(c echo.Context) error {
	var req routeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	waypoints := make([]domain.Coordinates, len(req.Waypoints))
	for i, w := range req.Waypoints {
		waypoints[i] = domain.Coordinates{Lat: w.Lat, Lng: w.Lng}
	}

	route, err := h.routes.ComputeRoute(c.Request().Context(), waypoints)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, route)
}
