package geo

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

// DefaultPosition is the service area's fallback coordinate (Santa Cruz de la
// Sierra). Used when every location tier fails and as the plausibility
// reference for IP fixes.
var DefaultPosition = domain.Coordinates{
	Lat: -17.72192423721716,
	Lng: -63.17459766441773,
}

// maxIPDrift is the widest |Δlat|+|Δlng| an IP fix may sit from the reference
// position before it is discarded as a mislocated exit node.
const maxIPDrift = 1.0

// TieredProvider resolves a position through ordered fallback tiers: an
// optional precise device locator, then IP geolocation, then DefaultPosition.
// Acquire never fails; some tier always answers.
type TieredProvider struct {
	device    ports.Locator // nil when no device source is wired
	ip        ports.Locator
	reference domain.Coordinates
	log       zerolog.Logger
}

// NewTieredProvider builds the provider. device may be nil; ip must not be.
func NewTieredProvider(device, ip ports.Locator, log zerolog.Logger) *TieredProvider {
	return &TieredProvider{
		device:    device,
		ip:        ip,
		reference: DefaultPosition,
		log:       log,
	}
}

// Acquire walks the tiers in order and returns the first usable fix. An IP
// fix implausibly far from the reference position is discarded; the default
// tier cannot fail.
func (p *TieredProvider) Acquire(ctx context.Context) (*domain.LocationFix, error) {
	if p.device != nil {
		fix, err := p.device.Acquire(ctx)
		if err == nil {
			return fix, nil
		}
		p.log.Debug().Err(err).Msg("device location unavailable, trying ip tier")
	}

	fix, err := p.ip.Acquire(ctx)
	if err == nil {
		if p.plausible(fix.Coordinates) {
			return fix, nil
		}
		p.log.Debug().
			Float64("lat", fix.Lat).
			Float64("lng", fix.Lng).
			Msg("discarding implausible ip fix")
	} else {
		p.log.Debug().Err(err).Msg("ip location unavailable, using default position")
	}

	return &domain.LocationFix{
		Coordinates:    p.reference,
		AccuracyMeters: ipAccuracyMeters,
		Source:         domain.SourceDefaultFallback,
	}, nil
}

// Watch emits a fresh fix every interval until ctx is cancelled, then closes
// the channel. The first fix is emitted immediately.
func (p *TieredProvider) Watch(ctx context.Context, interval time.Duration) <-chan domain.LocationFix {
	out := make(chan domain.LocationFix)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			fix, err := p.Acquire(ctx)
			if err == nil {
				select {
				case out <- *fix:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (p *TieredProvider) plausible(pos domain.Coordinates) bool {
	drift := math.Abs(pos.Lat-p.reference.Lat) + math.Abs(pos.Lng-p.reference.Lng)
	return drift <= maxIPDrift
}
