package domain

import (
	"testing"
	"time"
)

func TestCanTransitionTo_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to DonationStatus
		want     bool
	}{
		{StatusAwaitingDispatch, StatusInTransit, true},
		{StatusAwaitingDispatch, StatusDelivered, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusDelivered, StatusInTransit, false},
		{StatusDelivered, StatusAwaitingDispatch, false},
		{StatusInTransit, StatusAwaitingDispatch, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestDeliveredIsTerminal(t *testing.T) {
	if !StatusDelivered.Terminal() {
		t.Error("Delivered must be terminal")
	}
	if StatusInTransit.Terminal() {
		t.Error("InTransit must not be terminal")
	}
}

func TestCheckConsistent(t *testing.T) {
	now := time.Now()

	d := &Donation{Status: StatusInTransit}
	if err := d.CheckConsistent(); err != nil {
		t.Errorf("in-transit donation without delivery fields must be consistent: %v", err)
	}

	d = &Donation{Status: StatusDelivered, DeliveryTimestamp: &now, EvidenceImage: "data:image/png;base64,xyz"}
	if err := d.CheckConsistent(); err != nil {
		t.Errorf("delivered donation with timestamp and evidence must be consistent: %v", err)
	}

	d = &Donation{Status: StatusDelivered, DeliveryTimestamp: &now}
	if err := d.CheckConsistent(); err == nil {
		t.Error("delivered donation without evidence must be inconsistent")
	}

	d = &Donation{Status: StatusInTransit, DeliveryTimestamp: &now}
	if err := d.CheckConsistent(); err == nil {
		t.Error("non-delivered donation with delivery timestamp must be inconsistent")
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	now := time.Now()
	pos := Coordinates{Lat: -17.7, Lng: -63.1}
	d := &Donation{
		ID:              "d1",
		Status:          StatusInTransit,
		CurrentPosition: &pos,
		History: []TrackingPoint{
			{CustodianID: "c1", Status: StatusInTransit, Timestamp: now, Position: pos},
		},
	}

	snap := d.Snapshot()

	d.Status = StatusDelivered
	d.CurrentPosition.Lat = 0
	d.History = append(d.History, TrackingPoint{CustodianID: "c1", Status: StatusDelivered})

	if snap.Status != StatusInTransit {
		t.Errorf("snapshot status mutated: %s", snap.Status)
	}
	if snap.CurrentPosition.Lat != -17.7 {
		t.Errorf("snapshot position mutated: %v", snap.CurrentPosition)
	}
	if len(snap.History) != 1 {
		t.Errorf("snapshot history mutated: %d entries", len(snap.History))
	}
}

func TestBearing(t *testing.T) {
	// Due east along the equator.
	b := Bearing(Coordinates{Lat: 0, Lng: 0}, Coordinates{Lat: 0, Lng: 1})
	if b < 89.9 || b > 90.1 {
		t.Errorf("expected bearing ~90, got %f", b)
	}

	// Due north.
	b = Bearing(Coordinates{Lat: 0, Lng: 0}, Coordinates{Lat: 1, Lng: 0})
	if b > 0.1 && b < 359.9 {
		t.Errorf("expected bearing ~0, got %f", b)
	}
}
