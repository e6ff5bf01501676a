package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// gatedGateway blocks ListTracked until released, to observe in-flight joins.
type gatedGateway struct {
	stubGateway
	gate chan struct{}
}

func (g *gatedGateway) ListTracked(ctx context.Context) ([]*domain.TrackedDonation, error) {
	<-g.gate
	return g.stubGateway.ListTracked(ctx)
}

type memorySnapshotStore struct {
	mu    sync.Mutex
	items []*domain.TrackedDonation
	saves int
}

func (s *memorySnapshotStore) SaveTracked(_ context.Context, items []*domain.TrackedDonation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.saves++
	return nil
}

func (s *memorySnapshotStore) LoadTracked(_ context.Context) ([]*domain.TrackedDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, nil
}

func tracked(id string, points int) *domain.TrackedDonation {
	t := &domain.TrackedDonation{
		DonationID:      id,
		Code:            "DON-" + id,
		Status:          domain.StatusInTransit,
		CurrentPosition: domain.Coordinates{Lat: -17.7, Lng: -63.1},
		UpdatedAt:       time.Now().UTC(),
	}
	for i := 0; i < points; i++ {
		t.History = append(t.History, domain.TrackingPoint{
			Status:   domain.StatusInTransit,
			Position: domain.Coordinates{Lat: float64(i), Lng: float64(i)},
		})
	}
	return t
}

func TestRefresh_ReplacesCollection(t *testing.T) {
	g := &stubGateway{tracked: []*domain.TrackedDonation{tracked("d1", 2)}}
	svc := NewTrackingService(g, nil, discardLogger)

	items, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].DonationID != "d1" {
		t.Fatalf("unexpected collection: %+v", items)
	}

	g.tracked = []*domain.TrackedDonation{tracked("d1", 3), tracked("d2", 1)}
	items, err = svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected whole-collection replace, got %d items", len(items))
	}
	if got := svc.Snapshot(); len(got) != 2 {
		t.Errorf("snapshot must reflect the replace, got %d items", len(got))
	}
}

func TestRefresh_SingleFlight(t *testing.T) {
	g := &gatedGateway{
		stubGateway: stubGateway{tracked: []*domain.TrackedDonation{tracked("d1", 1)}},
		gate:        make(chan struct{}),
	}
	svc := NewTrackingService(g, nil, discardLogger)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, err := svc.Refresh(context.Background())
			if err != nil {
				t.Errorf("refresh %d failed: %v", i, err)
			}
			results[i] = len(items)
		}(i)
	}

	// Give every caller time to either start the fetch or join it.
	time.Sleep(50 * time.Millisecond)
	close(g.gate)
	wg.Wait()

	if g.trackedCalls != 1 {
		t.Errorf("expected exactly one network fetch, got %d", g.trackedCalls)
	}
	for i, n := range results {
		if n != 1 {
			t.Errorf("caller %d got %d items, want 1", i, n)
		}
	}
}

func TestRefresh_KeepsLastKnownGoodOnFailure(t *testing.T) {
	g := &stubGateway{tracked: []*domain.TrackedDonation{tracked("d1", 2)}}
	svc := NewTrackingService(g, nil, discardLogger)

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}

	g.trackedErr = fmt.Errorf("%w: timeout", domain.ErrFetch)
	items, err := svc.Refresh(context.Background())
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected wrapped ErrFetch, got %v", err)
	}
	if len(items) != 1 || items[0].DonationID != "d1" {
		t.Errorf("stale data must survive the failure, got %+v", items)
	}
	if got := svc.Snapshot(); len(got) != 1 {
		t.Errorf("held collection must be preserved, got %d items", len(got))
	}
}

func TestRefresh_MirrorsSnapshotStore(t *testing.T) {
	store := &memorySnapshotStore{}
	g := &stubGateway{tracked: []*domain.TrackedDonation{tracked("d1", 1)}}
	svc := NewTrackingService(g, store, discardLogger)

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("expected one mirror write, got %d", store.saves)
	}
}

func TestPrime_SeedsFromStore(t *testing.T) {
	store := &memorySnapshotStore{items: []*domain.TrackedDonation{tracked("d9", 1)}}
	svc := NewTrackingService(&stubGateway{}, store, discardLogger)

	svc.Prime(context.Background())
	if got := svc.Snapshot(); len(got) != 1 || got[0].DonationID != "d9" {
		t.Errorf("prime must seed the collection, got %+v", got)
	}
}

// fakeChannel delivers signals synchronously to the registered handler.
type fakeChannel struct {
	handler      func(ports.Signal)
	unsubscribed bool
}

func (c *fakeChannel) Subscribe(topic string, fn func(ports.Signal)) (func(), error) {
	c.handler = fn
	return func() { c.unsubscribed = true }, nil
}

func (c *fakeChannel) Close() error { return nil }

func TestSubscribe_SignalTriggersRefresh(t *testing.T) {
	g := &stubGateway{tracked: []*domain.TrackedDonation{tracked("d1", 1)}}
	svc := NewTrackingService(g, nil, discardLogger)
	ch := &fakeChannel{}

	unsubscribe, err := svc.Subscribe(ch, "donacion-actualizada")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	ch.handler(ports.Signal{Topic: "donacion-actualizada"})
	if g.trackedCalls != 1 {
		t.Errorf("signal must trigger one refresh, got %d fetches", g.trackedCalls)
	}

	// Reconnects carry no payload either; they still force a refetch.
	ch.handler(ports.Signal{Topic: "donacion-actualizada", Reconnected: true})
	if g.trackedCalls != 2 {
		t.Errorf("reconnect must trigger a refresh, got %d fetches", g.trackedCalls)
	}

	unsubscribe()
	if !ch.unsubscribed {
		t.Error("unsubscribe must propagate to the channel")
	}
}
