package ports

import (
	"context"
	"time"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// Locator is a single location tier. Acquire either produces a fix or fails
// with an error wrapping domain.ErrLocationUnavailable so the next tier can
// take over.
type Locator interface {
	Acquire(ctx context.Context) (*domain.LocationFix, error)
}

// LocationProvider resolves a best-effort position through ordered fallback
// tiers. Acquire only fails if the final fallback tier is misconfigured.
type LocationProvider interface {
	Locator

	// Watch emits a fix every interval until ctx is cancelled. The channel is
	// closed on cancellation; no fixes leak past teardown.
	Watch(ctx context.Context, interval time.Duration) <-chan domain.LocationFix
}

// AddressResolver reverse-geocodes a coordinate into a structured address.
type AddressResolver interface {
	Resolve(ctx context.Context, pos domain.Coordinates) (*domain.Address, error)
}

// RouteEngine computes a routed path through ordered waypoints. On any
// routing failure the implementation degrades to the straight waypoint
// sequence instead of returning an error. Single attempt, no caching.
type RouteEngine interface {
	ComputeRoute(ctx context.Context, waypoints []domain.Coordinates) (*domain.RouteResult, error)
}
