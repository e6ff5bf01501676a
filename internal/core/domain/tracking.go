package domain

import "time"

// TrackedDonation is the read-model served by the tracking endpoint: one
// donation's current state plus its full ordered position history. The
// backend owns the object graph; the tracking session only ever replaces it
// wholesale, never mutates individual entries.
type TrackedDonation struct {
	DonationID      string          `json:"donation_id"`
	Code            string          `json:"code"`
	Status          DonationStatus  `json:"status"`
	CustodianID     string          `json:"custodian_id"`
	Origin          string          `json:"origin"`
	Destination     string          `json:"destination"`
	CurrentPosition Coordinates     `json:"current_position"`
	UpdatedAt       time.Time       `json:"updated_at"`
	EvidenceImage   string          `json:"evidence_image,omitempty"`
	History         []TrackingPoint `json:"history"`
}

// MetricsSummary is the backend's aggregate donation counters. Refreshed when
// the live channel signals /topic/nueva-metrica.
type MetricsSummary struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	InTransit int64 `json:"in_transit"`
	Delivered int64 `json:"delivered"`
}

// HasRoute reports whether the donation carries enough position data to
// compute a route: at least one history point plus the current position.
func (t *TrackedDonation) HasRoute() bool {
	return len(t.History) > 0
}

// Waypoints returns the ordered history positions followed by the current
// position, the input sequence for route computation.
func (t *TrackedDonation) Waypoints() []Coordinates {
	points := make([]Coordinates, 0, len(t.History)+1)
	for _, p := range t.History {
		points = append(points, p.Position)
	}
	return append(points, t.CurrentPosition)
}
