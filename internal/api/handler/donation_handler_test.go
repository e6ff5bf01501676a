package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

type stubDonationService struct {
	donations []*domain.Donation
	lastInput ports.TransitionInput
	lastDest  ports.ChangeDestinationInput
	err       error
}

func (s *stubDonationService) Load(context.Context) error { return s.err }

func (s *stubDonationService) List(context.Context) ([]*domain.Donation, error) {
	return s.donations, s.err
}

func (s *stubDonationService) Get(_ context.Context, id string) (*domain.Donation, error) {
	for _, d := range s.donations {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, domain.ErrDonationNotFound
}

func (s *stubDonationService) Transition(_ context.Context, in ports.TransitionInput) (*domain.Donation, error) {
	s.lastInput = in
	if s.err != nil {
		return nil, s.err
	}
	return s.donations[0], nil
}

func (s *stubDonationService) ChangeDestination(_ context.Context, in ports.ChangeDestinationInput) (*domain.Donation, error) {
	s.lastDest = in
	if s.err != nil {
		return nil, s.err
	}
	return s.donations[0], nil
}

func newHandlerContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleDonation() *domain.Donation {
	return &domain.Donation{
		ID:          "42",
		Code:        "DON-042",
		Status:      domain.StatusInTransit,
		CustodianID: "1234567",
		Destination: domain.Address{Direccion: "Calle Libertad"},
	}
}

func TestDonationList(t *testing.T) {
	svc := &stubDonationService{donations: []*domain.Donation{sampleDonation()}}
	h := NewDonationHandler(svc)

	c, rec := newHandlerContext(t, http.MethodGet, "/v1/donations", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp []donationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Code != "DON-042" {
		t.Errorf("response = %+v", resp)
	}
}

func TestDonationTransitionBindsClaims(t *testing.T) {
	svc := &stubDonationService{donations: []*domain.Donation{sampleDonation()}}
	h := NewDonationHandler(svc)

	body := `{"status": "Entregado", "evidence_image": "data:image/png;base64,xx", "position": {"lat": -17.7, "lng": -63.1}}`
	c, rec := newHandlerContext(t, http.MethodPost, "/v1/donations/42/transition", body)
	c.SetParamNames("id")
	c.SetParamValues("42")
	c.Set("ci_usuario", "7654321")

	if err := h.Transition(c); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastInput.DonationID != "42" || svc.lastInput.CustodianID != "7654321" {
		t.Errorf("input = %+v", svc.lastInput)
	}
	if svc.lastInput.NewStatus != domain.StatusDelivered {
		t.Errorf("status = %q", svc.lastInput.NewStatus)
	}
	if svc.lastInput.Position == nil || svc.lastInput.Position.Lat != -17.7 {
		t.Errorf("position = %+v", svc.lastInput.Position)
	}
}

func TestDonationTransitionRejectsUnknownStatus(t *testing.T) {
	svc := &stubDonationService{donations: []*domain.Donation{sampleDonation()}}
	h := NewDonationHandler(svc)

	c, _ := newHandlerContext(t, http.MethodPost, "/v1/donations/42/transition", `{"status": "Perdido"}`)
	c.SetParamNames("id")
	c.SetParamValues("42")

	err := h.Transition(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
	if svc.lastInput.DonationID != "" {
		t.Error("service called despite invalid payload")
	}
}

func TestDonationChangeDestination(t *testing.T) {
	svc := &stubDonationService{donations: []*domain.Donation{sampleDonation()}}
	h := NewDonationHandler(svc)

	body := `{"direccion": "Av. Busch", "provincia": "Andrés Ibáñez", "comunidad": "Equipetrol", "coordinates": {"lat": -17.75, "lng": -63.16}}`
	c, rec := newHandlerContext(t, http.MethodPost, "/v1/donations/42/destination", body)
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := h.ChangeDestination(c); err != nil {
		t.Fatalf("ChangeDestination: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastDest.Destination.Direccion != "Av. Busch" || svc.lastDest.Destination.Coordinates.Lng != -63.16 {
		t.Errorf("destination = %+v", svc.lastDest.Destination)
	}
}
