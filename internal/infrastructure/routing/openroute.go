// Package routing computes road paths through ordered waypoints using an
// OpenRouteService-compatible directions API.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/api/metrics"
	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// DefaultDirectionsURL is the public OpenRouteService driving directions
// endpoint, GeoJSON flavour.
const DefaultDirectionsURL = "https://api.openrouteservice.org/v2/directions/driving-car/geojson"

// Engine asks a directions service for a road-following path. A failed call
// degrades to the straight waypoint sequence so consumers always get a
// drawable route. One attempt per computation, nothing cached.
type Engine struct {
	url    string
	apiKey string
	httpc  *http.Client
	log    zerolog.Logger
}

func NewEngine(url, apiKey string, log zerolog.Logger) *Engine {
	return &Engine{
		url:    url,
		apiKey: apiKey,
		log:    log,
		httpc:  &http.Client{Timeout: 10 * time.Second},
	}
}

type directionsRequest struct {
	// GeoJSON position order: [lng, lat].
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ComputeRoute returns a routed path through the waypoints. Any failure falls
// back to the waypoints themselves; fewer than two waypoints skip the service
// call entirely.
func (e *Engine) ComputeRoute(ctx context.Context, waypoints []domain.Coordinates) (*domain.RouteResult, error) {
	if len(waypoints) < 2 {
		return &domain.RouteResult{Points: waypoints}, nil
	}

	points, err := e.fetch(ctx, waypoints)
	if err != nil {
		e.log.Warn().Err(err).Msg("directions call failed, using straight path")
		metrics.RouteFallbacksTotal.Inc()
		return &domain.RouteResult{Points: waypoints}, nil
	}
	return &domain.RouteResult{Points: points}, nil
}

func (e *Engine) fetch(ctx context.Context, waypoints []domain.Coordinates) ([]domain.Coordinates, error) {
	payload := directionsRequest{Coordinates: make([][2]float64, len(waypoints))}
	for i, w := range waypoints {
		payload.Coordinates[i] = [2]float64{w.Lng, w.Lat}
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRouteComputation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRouteComputation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", e.apiKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRouteComputation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", domain.ErrRouteComputation, resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrRouteComputation, err)
	}
	if len(body.Features) == 0 || len(body.Features[0].Geometry.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", domain.ErrRouteComputation)
	}

	coords := body.Features[0].Geometry.Coordinates
	points := make([]domain.Coordinates, len(coords))
	for i, c := range coords {
		points[i] = domain.Coordinates{Lat: c[1], Lng: c[0]}
	}
	return points, nil
}
