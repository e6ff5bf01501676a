package ports

import (
	"context"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// TrackingService presents the trackable donations as a single consistent
// read-model and absorbs asynchronous refresh triggers.
type TrackingService interface {
	// Refresh re-fetches the collection and atomically replaces it. Concurrent
	// callers join the in-flight fetch: at most one network request is ever
	// outstanding. On failure the last-known-good collection is preserved and
	// returned alongside the error.
	Refresh(ctx context.Context) ([]*domain.TrackedDonation, error)

	// Snapshot returns the currently held collection without fetching.
	Snapshot() []*domain.TrackedDonation

	// CountDelivered returns the server-side delivered total.
	CountDelivered(ctx context.Context) (int64, error)

	// Metrics returns the backend's aggregate donation counters.
	Metrics(ctx context.Context) (*domain.MetricsSummary, error)

	// Report fetches the full report detail for one donation.
	Report(ctx context.Context, donationID string) (*domain.Donation, error)

	// Reports fetches the full report detail for every donation.
	Reports(ctx context.Context) ([]*domain.Donation, error)
}
