package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// DefaultNominatimURL is the public Nominatim reverse geocoding endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/reverse"

// NominatimResolver reverse-geocodes coordinates via a Nominatim instance.
// Responses are requested in Spanish to match the backend's address fields.
type NominatimResolver struct {
	url       string
	userAgent string
	httpc     *http.Client
}

// NewNominatimResolver returns a resolver against the given endpoint. The
// user agent identifies this service as Nominatim's usage policy requires.
func NewNominatimResolver(endpoint, userAgent string) *NominatimResolver {
	return &NominatimResolver{
		url:       endpoint,
		userAgent: userAgent,
		httpc:     &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimAddress struct {
	Building      string `json:"building"`
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Hamlet        string `json:"hamlet"`
	Municipality  string `json:"municipality"`
	County        string `json:"county"`
	State         string `json:"state"`
}

type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

// Resolve reverse-geocodes pos into a structured address.
func (r *NominatimResolver) Resolve(ctx context.Context, pos domain.Coordinates) (*domain.Address, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(pos.Lng, 'f', -1, 64))
	q.Set("addressdetails", "1")
	q.Set("accept-language", "es")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: reverse geocode: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: reverse geocode: http %d", domain.ErrFetch, resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: reverse geocode: %v", domain.ErrFetch, err)
	}

	return &domain.Address{
		Direccion:   assembleStreet(body.Address),
		Provincia:   province(body.Address),
		Comunidad:   locality(body.Address),
		Coordinates: pos,
	}, nil
}

// assembleStreet joins the street-level components in display order, skipping
// whatever Nominatim left empty.
func assembleStreet(a nominatimAddress) string {
	var parts []string
	if a.Building != "" {
		parts = append(parts, a.Building)
	}
	if a.HouseNumber != "" {
		parts = append(parts, "Nº "+a.HouseNumber)
	}
	if a.Road != "" {
		parts = append(parts, a.Road)
	}
	if a.Neighbourhood != "" {
		parts = append(parts, "Barrio "+a.Neighbourhood)
	}
	if a.Suburb != "" {
		parts = append(parts, a.Suburb)
	}
	return strings.Join(parts, ", ")
}

// province prefers the county inside the Santa Cruz department, where the
// state field only names the department, not the province.
func province(a nominatimAddress) string {
	if strings.Contains(a.State, "Santa Cruz") && a.County != "" {
		return a.County
	}
	if a.State != "" {
		return a.State
	}
	return a.County
}

// locality picks the most specific populated-place name available.
func locality(a nominatimAddress) string {
	for _, candidate := range []string{a.City, a.Town, a.Village, a.Hamlet, a.Municipality} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
