package ports

import (
	"context"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// TransitionInput carries all data needed to move a donation to a new status.
type TransitionInput struct {
	DonationID    string
	NewStatus     domain.DonationStatus
	CustodianID   string
	EvidenceImage string              // required when NewStatus is Delivered
	Position      *domain.Coordinates // always required
}

// ChangeDestinationInput replaces a donation's destination. When Direccion is
// empty but coordinates are present, the service reverse-geocodes them into a
// structured address before the backend write.
type ChangeDestinationInput struct {
	DonationID  string
	Destination domain.Address
}

// DonationService defines the delivery state machine use cases.
type DonationService interface {
	// Load refreshes the local donation model from the backend.
	Load(ctx context.Context) error

	// List returns the locally held donations, loading them on first use.
	List(ctx context.Context) ([]*domain.Donation, error)

	// Get returns a single donation by id.
	Get(ctx context.Context, donationID string) (*domain.Donation, error)

	// Transition validates and applies a status transition. The operation is
	// complete only once the backend acknowledges; on a rejected or failed
	// write the local donation is rolled back to its pre-transition snapshot.
	// Transitioning to the current status is an idempotent no-op.
	Transition(ctx context.Context, in TransitionInput) (*domain.Donation, error)

	// ChangeDestination replaces the destination of an undelivered donation.
	ChangeDestination(ctx context.Context, in ChangeDestinationInput) (*domain.Donation, error)
}
