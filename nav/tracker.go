package nav

import (
	"fmt"
	"sync"
)

// MovementState classifies whether the user is effectively moving.
type MovementState int

const (
	Stationary MovementState = iota
	Moving
)

func (m MovementState) String() string {
	if m == Moving {
		return "moving"
	}
	return "stationary"
}

func (m MovementState) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// PositionState is a snapshot of the tracker. PreviousFix is kept only to
// derive speed and direction of travel.
type PositionState struct {
	LastFix     *Fix `json:"last_fix,omitempty"`
	PreviousFix *Fix `json:"previous_fix,omitempty"`
	Tracking    bool `json:"tracking"`
}

// Point returns the last known position.
func (s PositionState) Point() (GeoPoint, bool) {
	if s.LastFix == nil {
		return GeoPoint{}, false
	}
	return s.LastFix.Point, true
}

// SpeedEstimate returns the instantaneous speed in km/h between the two
// most recent fixes. The second result is false when it cannot be derived.
//
// A displacement that stays inside the error radius of a coarse fix is
// reported as 0 km/h: IP-level fixes jump by kilometers while the user
// stands still.
func (s PositionState) SpeedEstimate() (float64, bool) {
	if s.LastFix == nil || s.PreviousFix == nil {
		return 0, false
	}
	elapsed := s.LastFix.Timestamp.Sub(s.PreviousFix.Timestamp).Seconds()
	if elapsed <= 0 {
		return 0, false
	}

	d := Distance(s.PreviousFix.Point, s.LastFix.Point)
	if d <= jitterRadius(*s.PreviousFix, *s.LastFix) {
		return 0, true
	}
	return d / elapsed * 3.6, true
}

// jitterRadius is the largest known radius among the coarse fixes of the pair.
func jitterRadius(a, b Fix) float64 {
	r := 0.0
	for _, f := range []Fix{a, b} {
		if f.HasAccuracy() && f.Quality() == QualityCoarse && f.AccuracyMeters > r {
			r = f.AccuracyMeters
		}
	}
	return r
}

// Movement reports stationary when the speed is unknown or below threshold.
func (s PositionState) Movement(stationaryBelowKmh float64) MovementState {
	kmh, ok := s.SpeedEstimate()
	if !ok || kmh < stationaryBelowKmh {
		return Stationary
	}
	return Moving
}

// Heading returns the direction of travel between the two latest fixes.
func (s PositionState) Heading() (float64, bool) {
	if s.LastFix == nil || s.PreviousFix == nil {
		return 0, false
	}
	return Bearing(s.PreviousFix.Point, s.LastFix.Point)
}

// PositionTracker owns the last-known position. It is safe for concurrent
// use; each transition holds the lock only for the state swap.
type PositionTracker struct {
	mu                 sync.RWMutex
	last               *Fix
	previous           *Fix
	tracking           bool
	stationaryBelowKmh float64
}

// NewPositionTracker creates a tracker with no fix and tracking off.
func NewPositionTracker(stationaryBelowKmh float64) *PositionTracker {
	return &PositionTracker{stationaryBelowKmh: stationaryBelowKmh}
}

// ApplyFix stores fix as the current position. A fix older than the one
// held is discarded with ErrStaleFix and the state is left untouched.
func (t *PositionTracker) ApplyFix(fix Fix) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(fix)
}

// ApplyTrackedFix is ApplyFix for scheduled probes: it refuses the fix with
// ErrTrackingDisabled when tracking has been turned off since the probe began.
func (t *PositionTracker) ApplyTrackedFix(fix Fix) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking {
		return ErrTrackingDisabled
	}
	return t.applyLocked(fix)
}

func (t *PositionTracker) applyLocked(fix Fix) error {
	if !fix.Point.Valid() {
		return fmt.Errorf("apply fix %s: %w", fix.Point, ErrInvalidFix)
	}
	if t.last != nil && fix.Timestamp.Before(t.last.Timestamp) {
		return fmt.Errorf("apply fix at %s: %w", fix.Timestamp.Format("15:04:05"), ErrStaleFix)
	}

	t.previous = t.last
	f := fix
	t.last = &f
	return nil
}

// SetTracking records whether the scheduler should keep probing. The
// tracker never schedules anything itself.
func (t *PositionTracker) SetTracking(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = enabled
}

// ToggleTracking flips tracking atomically and returns the new setting.
func (t *PositionTracker) ToggleTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = !t.tracking
	return t.tracking
}

// Tracking reports whether periodic probing is enabled.
func (t *PositionTracker) Tracking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracking
}

// SetStationaryThreshold updates the speed under which the user is
// considered to be standing still.
func (t *PositionTracker) SetStationaryThreshold(kmh float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stationaryBelowKmh = kmh
}

// State returns a copy of the current position state.
func (t *PositionTracker) State() PositionState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s PositionState
	if t.last != nil {
		f := *t.last
		s.LastFix = &f
	}
	if t.previous != nil {
		f := *t.previous
		s.PreviousFix = &f
	}
	s.Tracking = t.tracking
	return s
}

// SpeedEstimate returns the current speed in km/h, if known.
func (t *PositionTracker) SpeedEstimate() (float64, bool) {
	return t.State().SpeedEstimate()
}

// MovementState classifies the user as stationary or moving.
func (t *PositionTracker) MovementState() MovementState {
	t.mu.RLock()
	threshold := t.stationaryBelowKmh
	t.mu.RUnlock()
	return t.State().Movement(threshold)
}
