package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

var discardLogger = zerolog.Nop()

type stubLocator struct {
	fix *domain.LocationFix
	err error
}

func (s *stubLocator) Acquire(context.Context) (*domain.LocationFix, error) {
	return s.fix, s.err
}

func deviceFix(lat, lng float64) *domain.LocationFix {
	return &domain.LocationFix{
		Coordinates:    domain.Coordinates{Lat: lat, Lng: lng},
		AccuracyMeters: 15,
		Source:         domain.SourceDevicePrecise,
	}
}

func TestAcquirePrefersDeviceTier(t *testing.T) {
	device := &stubLocator{fix: deviceFix(-17.80, -63.20)}
	ip := &stubLocator{err: domain.ErrLocationUnavailable}

	fix, err := NewTieredProvider(device, ip, discardLogger).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if fix.Source != domain.SourceDevicePrecise {
		t.Errorf("source = %q, want device tier", fix.Source)
	}
}

func TestAcquireFallsBackToIPTier(t *testing.T) {
	device := &stubLocator{err: domain.ErrLocationUnavailable}
	ip := &stubLocator{fix: &domain.LocationFix{
		Coordinates:    domain.Coordinates{Lat: -17.75, Lng: -63.18},
		AccuracyMeters: ipAccuracyMeters,
		Source:         domain.SourceIPApproximate,
	}}

	fix, err := NewTieredProvider(device, ip, discardLogger).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if fix.Source != domain.SourceIPApproximate {
		t.Errorf("source = %q, want ip tier", fix.Source)
	}
}

func TestAcquireNeverFails(t *testing.T) {
	device := &stubLocator{err: errors.New("no gps hardware")}
	ip := &stubLocator{err: domain.ErrLocationUnavailable}

	fix, err := NewTieredProvider(device, ip, discardLogger).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire must not fail when all tiers fail: %v", err)
	}
	if fix.Source != domain.SourceDefaultFallback {
		t.Errorf("source = %q, want default fallback", fix.Source)
	}
	if fix.Coordinates != DefaultPosition {
		t.Errorf("position = %+v, want default position", fix.Coordinates)
	}
	if fix.AccuracyMeters != ipAccuracyMeters {
		t.Errorf("accuracy = %v, want %v", fix.AccuracyMeters, ipAccuracyMeters)
	}
}

func TestAcquireDiscardsImplausibleIPFix(t *testing.T) {
	// Exit node geolocated on another continent.
	ip := &stubLocator{fix: &domain.LocationFix{
		Coordinates: domain.Coordinates{Lat: 40.41, Lng: -3.70},
		Source:      domain.SourceIPApproximate,
	}}

	fix, err := NewTieredProvider(nil, ip, discardLogger).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if fix.Source != domain.SourceDefaultFallback {
		t.Errorf("source = %q, want default fallback after discarding ip fix", fix.Source)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	device := &stubLocator{fix: deviceFix(-17.80, -63.20)}
	ip := &stubLocator{err: domain.ErrLocationUnavailable}
	provider := NewTieredProvider(device, ip, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	fixes := provider.Watch(ctx, 10*time.Millisecond)

	select {
	case fix, ok := <-fixes:
		if !ok {
			t.Fatal("channel closed before any fix")
		}
		if fix.Source != domain.SourceDevicePrecise {
			t.Errorf("source = %q, want device tier", fix.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("no fix emitted")
	}

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-fixes:
			if !ok {
				return // channel closed, teardown complete
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestIPLocatorDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "lat": -17.78, "lon": -63.18}`))
	}))
	defer srv.Close()

	fix, err := NewIPLocator(srv.URL).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if fix.Lat != -17.78 || fix.Lng != -63.18 {
		t.Errorf("coordinates = %+v", fix.Coordinates)
	}
	if fix.AccuracyMeters != ipAccuracyMeters {
		t.Errorf("accuracy = %v, want %v", fix.AccuracyMeters, ipAccuracyMeters)
	}
}

func TestIPLocatorFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "fail", "message": "private range"}`))
	}))
	defer srv.Close()

	_, err := NewIPLocator(srv.URL).Acquire(context.Background())
	if !errors.Is(err, domain.ErrLocationUnavailable) {
		t.Errorf("err = %v, want ErrLocationUnavailable", err)
	}
}

func TestNominatimResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("accept-language"); got != "es" {
			t.Errorf("accept-language = %q, want es", got)
		}
		w.Write([]byte(`{"display_name": "x", "address": {
			"house_number": "2500", "road": "Avenida San Martín",
			"neighbourhood": "Equipetrol", "city": "Santa Cruz de la Sierra",
			"county": "Andrés Ibáñez", "state": "Departamento de Santa Cruz"}}`))
	}))
	defer srv.Close()

	addr, err := NewNominatimResolver(srv.URL, "test-agent").Resolve(context.Background(), domain.Coordinates{Lat: -17.76, Lng: -63.19})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := "Nº 2500, Avenida San Martín, Barrio Equipetrol"; addr.Direccion != want {
		t.Errorf("direccion = %q, want %q", addr.Direccion, want)
	}
	// Inside the Santa Cruz department the county names the province.
	if addr.Provincia != "Andrés Ibáñez" {
		t.Errorf("provincia = %q, want county", addr.Provincia)
	}
	if addr.Comunidad != "Santa Cruz de la Sierra" {
		t.Errorf("comunidad = %q", addr.Comunidad)
	}
}

func TestNominatimProvinceOutsideSantaCruz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {"road": "Calle Sucre", "town": "Trinidad", "county": "Cercado", "state": "Beni"}}`))
	}))
	defer srv.Close()

	addr, err := NewNominatimResolver(srv.URL, "test-agent").Resolve(context.Background(), domain.Coordinates{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr.Provincia != "Beni" {
		t.Errorf("provincia = %q, want state outside Santa Cruz", addr.Provincia)
	}
	if addr.Comunidad != "Trinidad" {
		t.Errorf("comunidad = %q", addr.Comunidad)
	}
}
