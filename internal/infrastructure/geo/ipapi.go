// Package geo provides the location, geocoding and fallback infrastructure:
// an IP based locator, a Nominatim reverse geocoder and the tiered provider
// that chains device, IP and default positions.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

const (
	// DefaultIPAPIURL is the public ip-api.com JSON endpoint.
	DefaultIPAPIURL = "http://ip-api.com/json/"

	// ipAccuracyMeters is the nominal accuracy of a city-level IP fix.
	ipAccuracyMeters = 10000
)

// IPLocator resolves an approximate position from the caller's public IP.
type IPLocator struct {
	url   string
	httpc *http.Client
}

// NewIPLocator returns an IPLocator against the given endpoint; pass
// DefaultIPAPIURL for the public service.
func NewIPLocator(url string) *IPLocator {
	return &IPLocator{
		url:   url,
		httpc: &http.Client{Timeout: 5 * time.Second},
	}
}

type ipapiResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Acquire queries the IP geolocation service. Any failure, including a
// non-success status in the response body, wraps domain.ErrLocationUnavailable.
func (l *IPLocator) Acquire(ctx context.Context) (*domain.LocationFix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}

	resp, err := l.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ip lookup: %v", domain.ErrLocationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ip lookup: http %d", domain.ErrLocationUnavailable, resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: ip lookup: %v", domain.ErrLocationUnavailable, err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("%w: ip lookup: %s", domain.ErrLocationUnavailable, body.Message)
	}

	return &domain.LocationFix{
		Coordinates:    domain.Coordinates{Lat: body.Lat, Lng: body.Lon},
		AccuracyMeters: ipAccuracyMeters,
		Source:         domain.SourceIPApproximate,
	}, nil
}
