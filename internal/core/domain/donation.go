package domain

import (
	"errors"
	"time"
)

// DonationStatus represents the lifecycle state of a donation delivery.
// The string values match the labels the donation backend speaks.
type DonationStatus string

const (
	StatusAwaitingDispatch DonationStatus = "Pendiente"
	StatusInTransit        DonationStatus = "En camino"
	StatusDelivered        DonationStatus = "Entregado"
)

// validTransitions defines the allowed state machine transitions.
// Delivered is terminal: no outgoing edges.
var validTransitions = map[DonationStatus][]DonationStatus{
	StatusAwaitingDispatch: {StatusInTransit, StatusDelivered},
	StatusInTransit:        {StatusDelivered},
}

var ErrMissingLocation = errors.New("position is required for a status transition")
var ErrMissingEvidence = errors.New("evidence image is required to mark a donation delivered")
var ErrInvalidTransition = errors.New("invalid status transition")
var ErrAlreadyDelivered = errors.New("donation already delivered")
var ErrDonationNotFound = errors.New("donation not found")

// ErrFetch marks transient transport failures against the donation backend.
// Callers keep their last-known-good data and may retry; it is wrapped with
// the underlying cause, so test with errors.Is.
var ErrFetch = errors.New("backend fetch failed")

// ErrLocationUnavailable is returned by a single location tier; the tiered
// provider absorbs it unless the final fallback itself is misconfigured.
var ErrLocationUnavailable = errors.New("location unavailable")

// ErrRouteComputation marks a failed routing call. The route engine absorbs it
// internally by degrading to the straight waypoint sequence.
var ErrRouteComputation = errors.New("route computation failed")

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s DonationStatus) Terminal() bool {
	return s == StatusDelivered
}

// TrackingPoint records one position+status sample in a donation's delivery
// history. Points are ordered by timestamp ascending and append-only.
type TrackingPoint struct {
	CustodianID string         `json:"custodian_id" bson:"custodian_id"`
	Status      DonationStatus `json:"status" bson:"status"`
	Timestamp   time.Time      `json:"timestamp" bson:"timestamp"`
	Position    Coordinates    `json:"position" bson:"position"`
}

// Donation is the core aggregate root.
type Donation struct {
	ID                string          `json:"id" bson:"_id,omitempty"`
	Code              string          `json:"code" bson:"code"`
	Status            DonationStatus  `json:"status" bson:"status"`
	CustodianID       string          `json:"custodian_id" bson:"custodian_id"`
	ApprovalDate      time.Time       `json:"approval_date" bson:"approval_date"`
	DeliveryTimestamp *time.Time      `json:"delivery_timestamp,omitempty" bson:"delivery_timestamp,omitempty"`
	EvidenceImage     string          `json:"evidence_image,omitempty" bson:"evidence_image,omitempty"`
	CurrentPosition   *Coordinates    `json:"current_position,omitempty" bson:"current_position,omitempty"`
	Destination       Address         `json:"destination" bson:"destination"`
	History           []TrackingPoint `json:"history" bson:"history"`
}

// Delivered reports whether the donation reached its terminal state.
func (d *Donation) Delivered() bool {
	return d.Status == StatusDelivered
}

// CheckConsistent verifies the delivery invariant:
// status == Delivered ⇔ DeliveryTimestamp set ⇔ EvidenceImage set.
func (d *Donation) CheckConsistent() error {
	delivered := d.Status == StatusDelivered
	if delivered != (d.DeliveryTimestamp != nil) {
		return errors.New("delivery timestamp inconsistent with status")
	}
	if delivered != (d.EvidenceImage != "") {
		return errors.New("evidence image inconsistent with status")
	}
	return nil
}

// Snapshot returns a deep copy used for rollback when a backend write fails.
func (d *Donation) Snapshot() *Donation {
	clone := *d
	if d.DeliveryTimestamp != nil {
		ts := *d.DeliveryTimestamp
		clone.DeliveryTimestamp = &ts
	}
	if d.CurrentPosition != nil {
		pos := *d.CurrentPosition
		clone.CurrentPosition = &pos
	}
	clone.History = make([]TrackingPoint, len(d.History))
	copy(clone.History, d.History)
	return &clone
}
