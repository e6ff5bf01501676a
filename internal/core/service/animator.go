package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

// DefaultPlaybackDuration is the wall-clock time a full route playback takes
// regardless of how many points the route has.
const DefaultPlaybackDuration = 90 * time.Second

const defaultFrameInterval = 50 * time.Millisecond

// ErrPlaybackStarted is returned when Start is called on a playback that
// already ran; a playback animates its route at most once.
var ErrPlaybackStarted = errors.New("playback already started")

// Frame is one animation sample: where the marker is and which way it points.
type Frame struct {
	Position domain.Coordinates
	Bearing  float64
	Done     bool
}

// RouteProgress computes the marker position and bearing for a given elapsed
// wall-clock time over a route animated across total duration. Pure: it
// touches no clock and no rendering target, so playback speed is independent
// of how often it is sampled.
func RouteProgress(route []domain.Coordinates, elapsed, total time.Duration) Frame {
	if len(route) == 0 {
		return Frame{Done: true}
	}
	last := len(route) - 1
	if total <= 0 || elapsed >= total {
		return Frame{Position: route[last], Bearing: finalBearing(route), Done: true}
	}

	perStep := total / time.Duration(len(route))
	step := int(elapsed / perStep)
	if step >= last {
		return Frame{Position: route[last], Bearing: finalBearing(route), Done: true}
	}

	return Frame{
		Position: route[step],
		Bearing:  domain.Bearing(route[step], route[step+1]),
	}
}

func finalBearing(route []domain.Coordinates) float64 {
	if len(route) < 2 {
		return 0
	}
	return domain.Bearing(route[len(route)-2], route[len(route)-1])
}

// Playback animates a computed route over a fixed duration. It starts at most
// once (explicit started flag, so host re-renders cannot restart it) and can
// be stopped mid-flight without error.
type Playback struct {
	route    []domain.Coordinates
	total    time.Duration
	interval time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewPlayback builds a playback for the route. A non-positive total falls
// back to DefaultPlaybackDuration.
func NewPlayback(route *domain.RouteResult, total time.Duration) *Playback {
	if total <= 0 {
		total = DefaultPlaybackDuration
	}
	var points []domain.Coordinates
	if route != nil {
		points = route.Points
	}
	return &Playback{route: points, total: total, interval: defaultFrameInterval}
}

// Start begins emitting frames on the returned channel until the final
// waypoint is reached, Stop is called, or ctx is cancelled. The channel is
// closed on every exit path. A second Start returns ErrPlaybackStarted.
func (p *Playback) Start(ctx context.Context) (<-chan Frame, error) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil, ErrPlaybackStarted
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	frames := make(chan Frame)
	go p.run(ctx, frames)
	return frames, nil
}

// Stop cancels a running playback. Safe to call at any time, including before
// Start and after completion.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Playback) run(ctx context.Context, frames chan<- Frame) {
	defer close(frames)

	start := time.Now()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := RouteProgress(p.route, time.Since(start), p.total)
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
			if frame.Done {
				return
			}
		}
	}
}
