package ports

import (
	"context"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// UpdateStatusInput mirrors the backend's status update payload
// (POST /donaciones/actualizar/{id}).
type UpdateStatusInput struct {
	DonationID    string
	CustodianID   string
	Status        domain.DonationStatus
	EvidenceImage string // base64 data URL, empty unless delivering
	Position      domain.Coordinates
}

// DonationGateway is the port to the remote donation backend. The backend is
// the single source of truth; every method is a network call and may fail
// with an error wrapping domain.ErrFetch.
type DonationGateway interface {
	// ListDonations fetches all donation summaries.
	ListDonations(ctx context.Context) ([]*domain.Donation, error)

	// UpdateStatus performs the server-side half of a transition. The server
	// re-validates: it rejects updates on delivered donations and delivery
	// updates without an evidence image. Returns the updated donation.
	UpdateStatus(ctx context.Context, in UpdateStatusInput) (*domain.Donation, error)

	// ChangeDestination replaces the donation's destination entirely.
	ChangeDestination(ctx context.Context, donationID string, dest domain.Address) (*domain.Donation, error)

	// ListTracked fetches the trackable donations with embedded histories.
	ListTracked(ctx context.Context) ([]*domain.TrackedDonation, error)

	// CountDelivered returns the server-side delivered total.
	CountDelivered(ctx context.Context) (int64, error)

	// GetMetrics returns the backend's aggregate donation counters.
	GetMetrics(ctx context.Context) (*domain.MetricsSummary, error)

	// GetReport fetches the full report detail for one donation.
	GetReport(ctx context.Context, donationID string) (*domain.Donation, error)

	// ListReports fetches the full report detail for every donation.
	ListReports(ctx context.Context) ([]*domain.Donation, error)
}
