package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// DonationService implements the delivery state machine over a local model of
// the backend's donations. The backend stays authoritative: a transition is
// complete only once the server acknowledges the write, and the local
// donation rolls back to its pre-transition snapshot otherwise.
type DonationService struct {
	gateway  ports.DonationGateway
	resolver ports.AddressResolver
	audit    ports.AuditRepository
	log      zerolog.Logger

	locks *keyedMutex

	mu     sync.RWMutex
	order  []string
	byID   map[string]*domain.Donation
	loaded bool
}

// NewDonationService returns a DonationService. resolver and audit may be nil;
// destination resolution and audit writes are then skipped.
func NewDonationService(
	gateway ports.DonationGateway,
	resolver ports.AddressResolver,
	audit ports.AuditRepository,
	log zerolog.Logger,
) *DonationService {
	return &DonationService{
		gateway:  gateway,
		resolver: resolver,
		audit:    audit,
		log:      log,
		locks:    newKeyedMutex(defaultLockShards),
		byID:     make(map[string]*domain.Donation),
	}
}

// Load refreshes the local donation model from the backend. The whole
// collection is replaced atomically, preserving the server's order.
func (s *DonationService) Load(ctx context.Context) error {
	donations, err := s.gateway.ListDonations(ctx)
	if err != nil {
		return fmt.Errorf("load donations: %w", err)
	}

	order := make([]string, 0, len(donations))
	byID := make(map[string]*domain.Donation, len(donations))
	for _, d := range donations {
		order = append(order, d.ID)
		byID[d.ID] = d
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.loaded = true
	s.mu.Unlock()

	s.log.Debug().Int("count", len(donations)).Msg("donation model loaded")
	return nil
}

// List returns the locally held donations in server order, loading on first use.
func (s *DonationService) List(ctx context.Context) ([]*domain.Donation, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	// Copies, so callers never observe a half-applied transition.
	out := make([]*domain.Donation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Snapshot())
	}
	return out, nil
}

// Get returns a single donation by id. A miss may be a donation the backend
// created after the last load, so the model is refetched once before the
// miss is reported.
func (s *DonationService) Get(ctx context.Context, donationID string) (*domain.Donation, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if d := s.lookup(donationID); d != nil {
		return d, nil
	}

	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	if d := s.lookup(donationID); d != nil {
		return d, nil
	}
	return nil, domain.ErrDonationNotFound
}

func (s *DonationService) lookup(donationID string) *domain.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.byID[donationID]; ok {
		return d.Snapshot()
	}
	return nil
}

// Transition validates and applies a status transition.
//
// Validation failures (missing position, missing evidence, backward
// transition) are terminal and leave the donation untouched. Transport
// failures during the backend write surface as retryable errors wrapping
// domain.ErrFetch after the local rollback; the service never retries itself.
func (s *DonationService) Transition(ctx context.Context, in ports.TransitionInput) (*domain.Donation, error) {
	unlock := s.locks.lock(in.DonationID)
	defer unlock()

	d, err := s.Get(ctx, in.DonationID)
	if err != nil {
		return nil, err
	}

	if in.Position == nil {
		s.recordAudit(ctx, d, in, "missing_location")
		return nil, domain.ErrMissingLocation
	}
	if in.NewStatus != domain.StatusInTransit && in.NewStatus != domain.StatusDelivered {
		s.recordAudit(ctx, d, in, "invalid_target_status")
		return nil, fmt.Errorf("%w: %q is not a reachable status", domain.ErrInvalidTransition, in.NewStatus)
	}

	// Idempotent no-op: transitioning to the current status succeeds without
	// touching history or the backend.
	if d.Status == in.NewStatus {
		return d, nil
	}

	if in.NewStatus == domain.StatusDelivered && in.EvidenceImage == "" {
		s.recordAudit(ctx, d, in, "missing_evidence")
		return nil, domain.ErrMissingEvidence
	}
	if !d.Status.CanTransitionTo(in.NewStatus) {
		s.recordAudit(ctx, d, in, "invalid_transition")
		return nil, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, d.Status, in.NewStatus)
	}

	snapshot := d.Snapshot()
	now := time.Now().UTC()

	// Optimistic local apply on a working copy, published atomically; the
	// snapshot restores it if the backend rejects the write.
	next := d.Snapshot()
	next.History = append(next.History, domain.TrackingPoint{
		CustodianID: in.CustodianID,
		Status:      in.NewStatus,
		Timestamp:   now,
		Position:    *in.Position,
	})
	next.Status = in.NewStatus
	next.CustodianID = in.CustodianID
	next.CurrentPosition = in.Position
	if in.NewStatus == domain.StatusDelivered {
		next.DeliveryTimestamp = &now
		next.EvidenceImage = in.EvidenceImage
	}
	s.replace(next)

	updated, err := s.gateway.UpdateStatus(ctx, ports.UpdateStatusInput{
		DonationID:    in.DonationID,
		CustodianID:   in.CustodianID,
		Status:        in.NewStatus,
		EvidenceImage: in.EvidenceImage,
		Position:      *in.Position,
	})
	if err != nil {
		s.restore(snapshot)
		s.recordAudit(ctx, snapshot, in, "rolled_back")
		s.log.Warn().Err(err).
			Str("donation_id", in.DonationID).
			Str("new_status", string(in.NewStatus)).
			Msg("backend rejected transition, local state rolled back")
		return nil, fmt.Errorf("transition %s: %w", in.DonationID, err)
	}

	if updated != nil {
		// Adopt the server's view but keep the richer local history when the
		// update response omits it.
		if len(updated.History) == 0 {
			updated.History = next.History
		}
		s.replace(updated)
		next = updated
	}

	s.recordAudit(ctx, next, in, "applied")
	s.log.Info().
		Str("donation_id", next.ID).
		Str("status", string(next.Status)).
		Str("custodian_id", in.CustodianID).
		Msg("donation transitioned")

	return next, nil
}

// ChangeDestination replaces the destination of an undelivered donation. The
// tracking history is never altered. When the caller supplies coordinates
// without a street address, the resolver fills in the structured address.
func (s *DonationService) ChangeDestination(ctx context.Context, in ports.ChangeDestinationInput) (*domain.Donation, error) {
	unlock := s.locks.lock(in.DonationID)
	defer unlock()

	d, err := s.Get(ctx, in.DonationID)
	if err != nil {
		return nil, err
	}
	if d.Delivered() {
		return nil, domain.ErrAlreadyDelivered
	}

	dest := in.Destination
	if dest.Direccion == "" && s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, dest.Coordinates)
		if err != nil {
			s.log.Warn().Err(err).
				Str("donation_id", in.DonationID).
				Msg("reverse geocoding failed, sending bare coordinates")
		} else {
			resolved.Coordinates = dest.Coordinates
			dest = *resolved
		}
	}

	snapshot := d.Snapshot()
	next := d.Snapshot()
	next.Destination = dest
	s.replace(next)

	updated, err := s.gateway.ChangeDestination(ctx, in.DonationID, dest)
	if err != nil {
		s.restore(snapshot)
		return nil, fmt.Errorf("change destination %s: %w", in.DonationID, err)
	}

	if updated != nil {
		if len(updated.History) == 0 {
			updated.History = next.History
		}
		s.replace(updated)
		next = updated
	}

	s.log.Info().
		Str("donation_id", next.ID).
		Str("provincia", dest.Provincia).
		Msg("donation destination changed")

	return next, nil
}

// Subscribe wires an invalidation channel into the donation model: every
// signal and every reconnect trigger a reload, since the payload-free push
// protocol only guarantees "something changed". Returns the unsubscribe
// function.
func (s *DonationService) Subscribe(ch ports.LiveChannel, topic string) (func(), error) {
	return ch.Subscribe(topic, func(sig ports.Signal) {
		ctx, cancel := context.WithTimeout(context.Background(), liveRefreshTimeout)
		defer cancel()
		if err := s.Load(ctx); err != nil {
			s.log.Warn().Err(err).Str("topic", sig.Topic).Msg("donation reload after live signal failed")
		}
	})
}

func (s *DonationService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

func (s *DonationService) restore(snapshot *domain.Donation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.byID[snapshot.ID]; ok {
		*current = *snapshot
	}
}

func (s *DonationService) replace(d *domain.Donation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.byID[d.ID]; ok {
		*current = *d
	}
}

func (s *DonationService) recordAudit(ctx context.Context, d *domain.Donation, in ports.TransitionInput, outcome string) {
	if s.audit == nil {
		return
	}
	err := s.audit.InsertTransition(ctx, &ports.TransitionAudit{
		DonationID:  in.DonationID,
		CustodianID: in.CustodianID,
		From:        d.Status,
		To:          in.NewStatus,
		Position:    in.Position,
		Outcome:     outcome,
		At:          time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("donation_id", in.DonationID).Msg("failed to record transition audit")
	}
}
