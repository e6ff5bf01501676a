package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

const liveRefreshTimeout = 15 * time.Second

// refreshCall is one in-flight collection fetch. Concurrent Refresh callers
// join it instead of issuing a second network request.
type refreshCall struct {
	done  chan struct{}
	items []*domain.TrackedDonation
	err   error
}

// TrackingService holds the trackable donations as a single read-model. The
// collection is only ever replaced wholesale by a completed refresh; no
// per-donation mutation happens inside it, so a rendered history can never
// lose points except through a full replace.
type TrackingService struct {
	gateway ports.DonationGateway
	store   ports.SnapshotStore // optional, mirrors last-known-good
	log     zerolog.Logger

	mu       sync.Mutex
	items    []*domain.TrackedDonation
	inflight *refreshCall
}

// NewTrackingService returns a TrackingService. store may be nil.
func NewTrackingService(gateway ports.DonationGateway, store ports.SnapshotStore, log zerolog.Logger) *TrackingService {
	return &TrackingService{gateway: gateway, store: store, log: log}
}

// Prime seeds the collection from the snapshot mirror so a fresh gateway can
// serve stale data before its first successful fetch. Best effort.
func (s *TrackingService) Prime(ctx context.Context) {
	if s.store == nil {
		return
	}
	items, err := s.store.LoadTracked(ctx)
	if err != nil || len(items) == 0 {
		return
	}
	s.mu.Lock()
	if s.items == nil {
		s.items = items
	}
	s.mu.Unlock()
	s.log.Info().Int("count", len(items)).Msg("tracking collection primed from snapshot")
}

// Refresh re-fetches the collection and atomically replaces it. At most one
// fetch is in flight: concurrent callers block on the pending call and share
// its result. On failure the last-known-good collection is preserved and
// returned alongside the error.
func (s *TrackingService) Refresh(ctx context.Context) ([]*domain.TrackedDonation, error) {
	s.mu.Lock()
	if c := s.inflight; c != nil {
		s.mu.Unlock()
		select {
		case <-c.done:
			return c.items, c.err
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
	c := &refreshCall{done: make(chan struct{})}
	s.inflight = c
	s.mu.Unlock()

	items, err := s.gateway.ListTracked(ctx)

	s.mu.Lock()
	if err != nil {
		// Keep stale data over no data.
		c.items, c.err = s.items, err
	} else {
		s.items = items
		c.items = items
	}
	s.inflight = nil
	s.mu.Unlock()
	close(c.done)

	if err != nil {
		s.log.Warn().Err(err).Msg("tracking refresh failed, serving last-known-good")
		return c.items, c.err
	}

	if s.store != nil {
		if serr := s.store.SaveTracked(ctx, items); serr != nil {
			s.log.Warn().Err(serr).Msg("failed to mirror tracking snapshot")
		}
	}

	s.log.Debug().Int("count", len(items)).Msg("tracking collection refreshed")
	return items, nil
}

// Snapshot returns the currently held collection without fetching.
func (s *TrackingService) Snapshot() []*domain.TrackedDonation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.TrackedDonation, len(s.items))
	copy(out, s.items)
	return out
}

// CountDelivered returns the server-side delivered total.
func (s *TrackingService) CountDelivered(ctx context.Context) (int64, error) {
	return s.gateway.CountDelivered(ctx)
}

// Metrics returns the backend's aggregate donation counters.
func (s *TrackingService) Metrics(ctx context.Context) (*domain.MetricsSummary, error) {
	return s.gateway.GetMetrics(ctx)
}

// Report fetches the full report detail for one donation.
func (s *TrackingService) Report(ctx context.Context, donationID string) (*domain.Donation, error) {
	return s.gateway.GetReport(ctx, donationID)
}

// Reports fetches the full report detail for every donation.
func (s *TrackingService) Reports(ctx context.Context) ([]*domain.Donation, error) {
	return s.gateway.ListReports(ctx)
}

// Subscribe wires an invalidation channel into the session: every signal, and
// every reconnect, triggers a refresh because the payload-free push protocol
// only guarantees "something changed". Returns the unsubscribe function.
func (s *TrackingService) Subscribe(ch ports.LiveChannel, topic string) (func(), error) {
	return ch.Subscribe(topic, func(sig ports.Signal) {
		ctx, cancel := context.WithTimeout(context.Background(), liveRefreshTimeout)
		defer cancel()
		if _, err := s.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Str("topic", sig.Topic).Msg("refresh after live signal failed")
		}
	})
}
