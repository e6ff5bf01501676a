package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/villxfxni/donation-tracking/internal/api/metrics"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// TrackingHandler serves the live tracking read-model.
type TrackingHandler struct {
	service ports.TrackingService
	routes  ports.RouteEngine
}

func NewTrackingHandler(service ports.TrackingService, routes ports.RouteEngine) *TrackingHandler {
	return &TrackingHandler{service: service, routes: routes}
}

// List handles GET /v1/tracking. Each request refreshes the collection;
// concurrent requests share one backend fetch. When the backend is down the
// last-known-good collection is served with a stale marker instead of a 502.
func (h *TrackingHandler) List(c echo.Context) error {
	metrics.RefreshesTotal.WithLabelValues("request").Inc()
	items, err := h.service.Refresh(c.Request().Context())
	if err != nil {
		metrics.RefreshErrorsTotal.Inc()
		if len(items) == 0 {
			return err
		}
		c.Response().Header().Set("X-Stale-Data", "true")
	}

	return c.JSON(http.StatusOK, items)
}

// DeliveredCount handles GET /v1/tracking/delivered/count.
func (h *TrackingHandler) DeliveredCount(c echo.Context) error {
	count, err := h.service.CountDelivered(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"delivered": count})
}

// Metrics handles GET /v1/tracking/metrics.
func (h *TrackingHandler) Metrics(c echo.Context) error {
	summary, err := h.service.Metrics(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// Reports handles GET /v1/tracking/reports.
func (h *TrackingHandler) Reports(c echo.Context) error {
	reports, err := h.service.Reports(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]donationResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toDonationResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

// Report handles GET /v1/tracking/:id/report.
func (h *TrackingHandler) Report(c echo.Context) error {
	report, err := h.service.Report(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDonationResponse(report))
}

// Route handles GET /v1/tracking/:id/route: the donation's history waypoints
// routed along roads, or the straight waypoint path when routing degrades.
func (h *TrackingHandler) Route(c echo.Context) error {
	id := c.Param("id")
	for _, item := range h.service.Snapshot() {
		if item.DonationID != id {
			continue
		}
		route, err := h.routes.ComputeRoute(c.Request().Context(), item.Waypoints())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, route)
	}
	return echo.NewHTTPError(http.StatusNotFound, "donation not tracked")
}
