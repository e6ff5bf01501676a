// Package backend implements the DonationGateway port against the donation
// backend's REST API. The backend owns every payload shape; this client only
// translates between its Spanish wire fields and the domain model.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/auth"
	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

const defaultTimeout = 15 * time.Second

// Client talks to the donation backend. All methods attach the session's
// bearer token and surface transport problems as errors wrapping
// domain.ErrFetch so callers can keep last-known-good data.
type Client struct {
	baseURL string
	tokens  auth.TokenSource
	httpc   *http.Client
	log     zerolog.Logger
}

// New returns a Client for the given base URL (scheme://host[:port], no
// trailing slash required).
func New(baseURL string, tokens auth.TokenSource, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		log:     log,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

// --- Wire types (backend-owned, Spanish field names) ---

type destinoDTO struct {
	Direccion string  `json:"direccion"`
	Provincia string  `json:"provincia"`
	Comunidad string  `json:"comunidad"`
	Latitud   float64 `json:"lat"`
	Longitud  float64 `json:"lng"`
}

type donationDTO struct {
	ID              json.Number `json:"id"`
	Codigo          string      `json:"codigo"`
	Estado          string      `json:"estado"`
	Encargado       string      `json:"encargado"`
	FechaAprobacion *time.Time  `json:"fechaAprobacion"`
	FechaEntrega    *time.Time  `json:"fechaEntrega"`
	Imagen          string      `json:"imagen"`
	Latitud         *float64    `json:"latitud"`
	Longitud        *float64    `json:"longitud"`
	Destino         *destinoDTO `json:"destino"`
	Historial       []puntoDTO  `json:"historial"`
}

type puntoDTO struct {
	CiUsuario string    `json:"ciUsuario"`
	Estado    string    `json:"estado"`
	Timestamp time.Time `json:"timestamp"`
	Latitud   float64   `json:"latitud"`
	Longitud  float64   `json:"longitud"`
}

type seguimientoDTO struct {
	IDDonacion      json.Number `json:"idDonacion"`
	Codigo          string      `json:"codigo"`
	Estado          string      `json:"estado"`
	CiUsuario       string      `json:"ciUsuario"`
	Origen          string      `json:"origen"`
	Destino         string      `json:"destino"`
	Latitud         float64     `json:"latitud"`
	Longitud        float64     `json:"longitud"`
	Timestamp       time.Time   `json:"timestamp"`
	ImagenEvidencia string      `json:"imagenEvidencia"`
	Historial       []puntoDTO  `json:"historial"`
}

type actualizarRequest struct {
	CiUsuario string  `json:"ciUsuario"`
	Estado    string  `json:"estado"`
	Imagen    string  `json:"imagen,omitempty"`
	Latitud   float64 `json:"latitud"`
	Longitud  float64 `json:"longitud"`
}

type metricasDTO struct {
	TotalDonaciones int64 `json:"totalDonaciones"`
	Pendientes      int64 `json:"pendientes"`
	EnCamino        int64 `json:"enCamino"`
	Entregadas      int64 `json:"entregadas"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// --- DonationGateway implementation ---

func (c *Client) ListDonations(ctx context.Context) ([]*domain.Donation, error) {
	var dtos []donationDTO
	if err := c.do(ctx, http.MethodGet, "/donaciones", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]*domain.Donation, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toDomain())
	}
	return out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, in ports.UpdateStatusInput) (*domain.Donation, error) {
	body := actualizarRequest{
		CiUsuario: in.CustodianID,
		Estado:    string(in.Status),
		Imagen:    in.EvidenceImage,
		Latitud:   in.Position.Lat,
		Longitud:  in.Position.Lng,
	}

	var dto donationDTO
	path := "/donaciones/actualizar/" + url.PathEscape(in.DonationID)
	if err := c.do(ctx, http.MethodPost, path, body, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (c *Client) ChangeDestination(ctx context.Context, donationID string, dest domain.Address) (*domain.Donation, error) {
	body := destinoDTO{
		Direccion: dest.Direccion,
		Provincia: dest.Provincia,
		Comunidad: dest.Comunidad,
		Latitud:   dest.Coordinates.Lat,
		Longitud:  dest.Coordinates.Lng,
	}

	var dto donationDTO
	path := "/donaciones/cambiar-destino/" + url.PathEscape(donationID)
	if err := c.do(ctx, http.MethodPost, path, body, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (c *Client) ListTracked(ctx context.Context) ([]*domain.TrackedDonation, error) {
	var dtos []seguimientoDTO
	if err := c.do(ctx, http.MethodGet, "/seguimientodonaciones/completos", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]*domain.TrackedDonation, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toDomain())
	}
	return out, nil
}

func (c *Client) CountDelivered(ctx context.Context) (int64, error) {
	var count int64
	if err := c.do(ctx, http.MethodGet, "/seguimientodonaciones/contar-entregadas", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Client) GetMetrics(ctx context.Context) (*domain.MetricsSummary, error) {
	var dto metricasDTO
	if err := c.do(ctx, http.MethodGet, "/metricas", nil, &dto); err != nil {
		return nil, err
	}
	return &domain.MetricsSummary{
		Total:     dto.TotalDonaciones,
		Pending:   dto.Pendientes,
		InTransit: dto.EnCamino,
		Delivered: dto.Entregadas,
	}, nil
}

func (c *Client) GetReport(ctx context.Context, donationID string) (*domain.Donation, error) {
	var dto donationDTO
	path := "/historial/reporte-completo/" + url.PathEscape(donationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (c *Client) ListReports(ctx context.Context) ([]*domain.Donation, error) {
	var dtos []donationDTO
	if err := c.do(ctx, http.MethodGet, "/historial/reporte-completo", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]*domain.Donation, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toDomain())
	}
	return out, nil
}

// --- Plumbing ---

// do executes one request. 5xx and transport errors wrap domain.ErrFetch
// (retryable); 4xx responses surface the backend's error envelope verbatim,
// with 404 mapped to ErrDonationNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("backend %s: %w", path, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%w: %s %s: %v", domain.ErrFetch, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", domain.ErrFetch, path, err)
		}
		return nil

	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrDonationNotFound

	case resp.StatusCode/100 == 4:
		var env errorEnvelope
		if json.NewDecoder(resp.Body).Decode(&env) == nil && env.Error != "" {
			return fmt.Errorf("backend rejected %s: %s", path, env.Error)
		}
		return fmt.Errorf("backend rejected %s: http %d", path, resp.StatusCode)

	default:
		return fmt.Errorf("%w: %s: http %d", domain.ErrFetch, path, resp.StatusCode)
	}
}

func (d *donationDTO) toDomain() *domain.Donation {
	out := &domain.Donation{
		ID:                d.ID.String(),
		Code:              d.Codigo,
		Status:            domain.DonationStatus(d.Estado),
		CustodianID:       d.Encargado,
		DeliveryTimestamp: d.FechaEntrega,
		EvidenceImage:     d.Imagen,
	}
	if d.Estado == "" {
		// Older backend rows carry no explicit estado; the delivery date
		// decides, mirroring the original client's display rule.
		if d.FechaEntrega != nil {
			out.Status = domain.StatusDelivered
		} else {
			out.Status = domain.StatusAwaitingDispatch
		}
	}
	if d.FechaAprobacion != nil {
		out.ApprovalDate = *d.FechaAprobacion
	}
	if d.Latitud != nil && d.Longitud != nil {
		out.CurrentPosition = &domain.Coordinates{Lat: *d.Latitud, Lng: *d.Longitud}
	}
	if d.Destino != nil {
		out.Destination = domain.Address{
			Direccion:   d.Destino.Direccion,
			Provincia:   d.Destino.Provincia,
			Comunidad:   d.Destino.Comunidad,
			Coordinates: domain.Coordinates{Lat: d.Destino.Latitud, Lng: d.Destino.Longitud},
		}
	}
	for _, p := range d.Historial {
		out.History = append(out.History, p.toDomain())
	}
	return out
}

func (s *seguimientoDTO) toDomain() *domain.TrackedDonation {
	out := &domain.TrackedDonation{
		DonationID:      s.IDDonacion.String(),
		Code:            s.Codigo,
		Status:          domain.DonationStatus(s.Estado),
		CustodianID:     s.CiUsuario,
		Origin:          s.Origen,
		Destination:     s.Destino,
		CurrentPosition: domain.Coordinates{Lat: s.Latitud, Lng: s.Longitud},
		UpdatedAt:       s.Timestamp,
		EvidenceImage:   s.ImagenEvidencia,
	}
	for _, p := range s.Historial {
		out.History = append(out.History, p.toDomain())
	}
	return out
}

func (p *puntoDTO) toDomain() domain.TrackingPoint {
	return domain.TrackingPoint{
		CustodianID: p.CiUsuario,
		Status:      domain.DonationStatus(p.Estado),
		Timestamp:   p.Timestamp,
		Position:    domain.Coordinates{Lat: p.Latitud, Lng: p.Longitud},
	}
}
