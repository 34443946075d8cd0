package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-termgps/nav"
)

// ReplayLocator plays back a recorded GPX track, one point per Locate.
// Fixes are stamped with the wall clock so they stay ordered across loops.
type ReplayLocator struct {
	mu       sync.Mutex
	points   []TrackPoint
	index    int
	loop     bool
	accuracy float64
	now      func() time.Time
}

// NewReplayLocator loads filename for replay. accuracy is reported on every
// fix; pass nav.UnknownAccuracy when the track carries no such notion.
func NewReplayLocator(filename string, loop bool, accuracy float64) (*ReplayLocator, error) {
	points, err := ReadTrackPoints(filename)
	if err != nil {
		return nil, fmt.Errorf("load replay file: %w", err)
	}
	return newReplayLocator(points, loop, accuracy), nil
}

func newReplayLocator(points []TrackPoint, loop bool, accuracy float64) *ReplayLocator {
	return &ReplayLocator{
		points:   points,
		loop:     loop,
		accuracy: accuracy,
		now:      time.Now,
	}
}

// Locate returns the next track point. Without looping it returns
// ErrReplayExhausted after the last one.
func (r *ReplayLocator) Locate(ctx context.Context) (nav.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nav.Fix{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index >= len(r.points) {
		if !r.loop || len(r.points) == 0 {
			return nav.Fix{}, ErrReplayExhausted
		}
		r.index = 0
	}

	p := r.points[r.index]
	r.index++
	return nav.Fix{
		Point:          nav.GeoPoint{Latitude: p.Lat, Longitude: p.Lon},
		AccuracyMeters: r.accuracy,
		Source:         nav.SourceNativeGPS,
		Timestamp:      r.now(),
	}, nil
}

// Progress reports how many points have been played out of the total.
func (r *ReplayLocator) Progress() (played, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index, len(r.points)
}
