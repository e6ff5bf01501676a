package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/villxfxni/donation-tracking/internal/api/metrics"
	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// DonationHandler handles HTTP requests for donation lifecycle operations.
type DonationHandler struct {
	service ports.DonationService
}

func NewDonationHandler(service ports.DonationService) *DonationHandler {
	return &DonationHandler{service: service}
}

// --- Request / Response types ---

type coordinatesRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type transitionRequest struct {
	Status        string              `json:"status" validate:"required,oneof=Pendiente 'En camino' Entregado"`
	EvidenceImage string              `json:"evidence_image"`
	Position      *coordinatesRequest `json:"position"`
}

type changeDestinationRequest struct {
	Direccion   string             `json:"direccion"`
	Provincia   string             `json:"provincia"`
	Comunidad   string             `json:"comunidad"`
	Coordinates coordinatesRequest `json:"coordinates"`
}

type donationResponse struct {
	ID                string                 `json:"id"`
	Code              string                 `json:"code"`
	Status            string                 `json:"status"`
	CustodianID       string                 `json:"custodian_id"`
	ApprovalDate      string                 `json:"approval_date"`
	DeliveryTimestamp string                 `json:"delivery_timestamp,omitempty"`
	EvidenceImage     string                 `json:"evidence_image,omitempty"`
	CurrentPosition   *coordinatesRequest    `json:"current_position,omitempty"`
	Destination       domain.Address         `json:"destination"`
	History           []domain.TrackingPoint `json:"history"`
}

func toDonationResponse(d *domain.Donation) donationResponse {
	resp := donationResponse{
		ID:            d.ID,
		Code:          d.Code,
		Status:        string(d.Status),
		CustodianID:   d.CustodianID,
		EvidenceImage: d.EvidenceImage,
		Destination:   d.Destination,
		History:       d.History,
	}
	if !d.ApprovalDate.IsZero() {
		resp.ApprovalDate = d.ApprovalDate.UTC().Format(time.RFC3339)
	}
	if d.DeliveryTimestamp != nil {
		resp.DeliveryTimestamp = d.DeliveryTimestamp.UTC().Format(time.RFC3339)
	}
	if d.CurrentPosition != nil {
		resp.CurrentPosition = &coordinatesRequest{Lat: d.CurrentPosition.Lat, Lng: d.CurrentPosition.Lng}
	}
	return resp
}

// List handles GET /v1/donations.
func (h *DonationHandler) List(c echo.Context) error {
	donations, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]donationResponse, 0, len(donations))
	for _, d := range donations {
		resp = append(resp, toDonationResponse(d))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /v1/donations/:id.
func (h *DonationHandler) Get(c echo.Context) error {
	donation, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDonationResponse(donation))
}

// Transition handles POST /v1/donations/:id/transition.
func (h *DonationHandler) Transition(c echo.Context) error {
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	custodianID, _ := c.Get("ci_usuario").(string)

	in := ports.TransitionInput{
		DonationID:    c.Param("id"),
		NewStatus:     domain.DonationStatus(req.Status),
		CustodianID:   custodianID,
		EvidenceImage: req.EvidenceImage,
	}
	if req.Position != nil {
		in.Position = &domain.Coordinates{Lat: req.Position.Lat, Lng: req.Position.Lng}
	}

	start := time.Now()
	donation, err := h.service.Transition(c.Request().Context(), in)
	observeTransition(req.Status, start, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDonationResponse(donation))
}

// ChangeDestination handles POST /v1/donations/:id/destination.
func (h *DonationHandler) ChangeDestination(c echo.Context) error {
	var req changeDestinationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	donation, err := h.service.ChangeDestination(c.Request().Context(), ports.ChangeDestinationInput{
		DonationID: c.Param("id"),
		Destination: domain.Address{
			Direccion:   req.Direccion,
			Provincia:   req.Provincia,
			Comunidad:   req.Comunidad,
			Coordinates: domain.Coordinates{Lat: req.Coordinates.Lat, Lng: req.Coordinates.Lng},
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDonationResponse(donation))
}

func observeTransition(to string, start time.Time, err error) {
	outcome := "applied"
	switch {
	case err == nil:
		metrics.TransitionsTotal.WithLabelValues(to).Inc()
	case errors.Is(err, domain.ErrFetch):
		outcome = "rolled_back"
		metrics.TransitionErrorsTotal.WithLabelValues("rolled_back").Inc()
	default:
		outcome = "rejected"
		metrics.TransitionErrorsTotal.WithLabelValues(transitionReason(err)).Inc()
	}
	metrics.TransitionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func transitionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingLocation):
		return "missing_location"
	case errors.Is(err, domain.ErrMissingEvidence):
		return "missing_evidence"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrAlreadyDelivered):
		return "already_delivered"
	case errors.Is(err, domain.ErrDonationNotFound):
		return "not_found"
	default:
		return "other"
	}
}
