package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSnapshotStore(client)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []*domain.TrackedDonation{
		{
			DonationID:      "7",
			Code:            "DON-007",
			Status:          domain.StatusInTransit,
			CustodianID:     "1234567",
			CurrentPosition: domain.Coordinates{Lat: -17.72, Lng: -63.17},
			UpdatedAt:       time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
			History: []domain.TrackingPoint{
				{Status: domain.StatusAwaitingDispatch, Position: domain.Coordinates{Lat: -17.70, Lng: -63.15}},
			},
		},
	}

	if err := store.SaveTracked(ctx, items); err != nil {
		t.Fatalf("SaveTracked: %v", err)
	}

	loaded, err := store.LoadTracked(ctx)
	if err != nil {
		t.Fatalf("LoadTracked: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d items, want 1", len(loaded))
	}
	got := loaded[0]
	if got.DonationID != "7" || got.Status != domain.StatusInTransit {
		t.Errorf("identity mismatch: %+v", got)
	}
	if len(got.History) != 1 || got.History[0].Position.Lat != -17.70 {
		t.Errorf("history mismatch: %+v", got.History)
	}
}

func TestSnapshotReplacedWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []*domain.TrackedDonation{{DonationID: "1"}, {DonationID: "2"}}
	second := []*domain.TrackedDonation{{DonationID: "3"}}

	if err := store.SaveTracked(ctx, first); err != nil {
		t.Fatalf("SaveTracked: %v", err)
	}
	if err := store.SaveTracked(ctx, second); err != nil {
		t.Fatalf("SaveTracked: %v", err)
	}

	loaded, err := store.LoadTracked(ctx)
	if err != nil {
		t.Fatalf("LoadTracked: %v", err)
	}
	if len(loaded) != 1 || loaded[0].DonationID != "3" {
		t.Errorf("stale entries survived the replace: %+v", loaded)
	}
}

func TestLoadTrackedEmpty(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadTracked(context.Background())
	if err != nil {
		t.Fatalf("LoadTracked: %v", err)
	}
	if loaded != nil {
		t.Errorf("got %+v, want nil for a cold store", loaded)
	}
}
