package ports

import (
	"context"
	"time"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// TransitionAudit records one transition attempt, successful or not.
type TransitionAudit struct {
	DonationID  string
	CustodianID string
	From        domain.DonationStatus
	To          domain.DonationStatus
	Position    *domain.Coordinates
	Outcome     string // "applied", "rolled_back", or the validation failure
	At          time.Time
}

// AuditRepository persists the append-only transition attempts log.
// Writes are best-effort: a failed audit insert never fails the transition.
type AuditRepository interface {
	InsertTransition(ctx context.Context, audit *TransitionAudit) error
}

// SnapshotStore mirrors the last-known-good tracking collection so a gateway
// restart can still serve stale data over no data.
type SnapshotStore interface {
	SaveTracked(ctx context.Context, items []*domain.TrackedDonation) error
	LoadTracked(ctx context.Context) ([]*domain.TrackedDonation, error)
}
