package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Update describes the effect of one applied fix.
type Update struct {
	Fix      Fix    `json:"fix"`
	Advanced bool   `json:"advanced"`
	Arrived  bool   `json:"arrived"`
	Status   Status `json:"status"`
}

// Navigator owns the mutable navigation state: the position tracker, the
// step tracker and the radar pan. It is driven from outside; it owns no
// timers, sockets or goroutines.
type Navigator struct {
	mu        sync.RWMutex // guards cfg, pan and observers
	cfg       Config
	pan       Cell
	observers []func(Update)

	position *PositionTracker
	steps    *StepTracker
	logger   *slog.Logger
}

// NewNavigator creates a navigator with no fix and no route.
func NewNavigator(cfg Config, logger *slog.Logger) (*Navigator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Navigator{
		cfg:      cfg,
		position: NewPositionTracker(cfg.StationaryBelowKmh),
		steps:    NewStepTracker(cfg.ArrivalRadius),
		logger:   logger,
	}, nil
}

// OnFix registers a callback run after every applied fix. Callbacks run
// on the caller's goroutine after all locks are released.
func (n *Navigator) OnFix(cb func(Update)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, cb)
}

// Refresh applies a one-off fix, regardless of whether tracking is on.
func (n *Navigator) Refresh(fix Fix) (Update, error) {
	return n.apply(fix, false)
}

// TrackFix applies a fix delivered by the periodic scheduler. Once
// tracking is turned off no further scheduled fix is accepted.
func (n *Navigator) TrackFix(fix Fix) (Update, error) {
	return n.apply(fix, true)
}

func (n *Navigator) apply(fix Fix, scheduled bool) (Update, error) {
	var err error
	if scheduled {
		err = n.position.ApplyTrackedFix(fix)
	} else {
		err = n.position.ApplyFix(fix)
	}
	if err != nil {
		if errors.Is(err, ErrStaleFix) {
			n.logger.Debug("discarding stale fix", slog.Time("timestamp", fix.Timestamp))
		}
		return Update{}, err
	}

	u := Update{Fix: fix}
	u.Advanced = n.steps.MaybeAutoAdvance(fix.Point)
	u.Arrived = n.steps.HasArrived(fix.Point)

	cfg := n.Config()
	if u.Advanced {
		p := n.steps.Progress()
		n.logger.Info("advanced to next step", slog.Int("step", p.CurrentStep))
	}
	if u.Arrived && cfg.StopOnArrival && n.position.Tracking() {
		n.position.SetTracking(false)
		n.logger.Info("arrived at destination, tracking stopped",
			slog.String("point", fix.Point.String()))
	}

	u.Status = Classify(n.position.State(), n.steps.Progress(), cfg)

	n.mu.RLock()
	observers := slices.Clone(n.observers)
	n.mu.RUnlock()
	for _, cb := range observers {
		cb(u)
	}

	return u, nil
}

// SetRoute replaces the active route and restarts at its first step.
func (n *Navigator) SetRoute(route *RouteModel) error {
	if err := n.steps.Attach(route); err != nil {
		return err
	}
	n.logger.Info("route attached",
		slog.Int("steps", route.NumSteps()),
		slog.Float64("meters", route.TotalMeters()),
		slog.String("destination", route.Destination().String()))
	return nil
}

// ClearRoute drops the active route together with its progress.
func (n *Navigator) ClearRoute() {
	n.steps.Clear()
	n.logger.Info("route cleared")
}

// Advance moves to the next step manually.
func (n *Navigator) Advance() error {
	return n.steps.Advance()
}

// Retreat moves to the previous step manually.
func (n *Navigator) Retreat() error {
	return n.steps.Retreat()
}

// SetTracking enables or disables periodic probing.
func (n *Navigator) SetTracking(enabled bool) {
	n.position.SetTracking(enabled)
}

// ToggleTracking flips tracking and returns the new setting.
func (n *Navigator) ToggleTracking() bool {
	enabled := n.position.ToggleTracking()
	n.logger.Info("tracking toggled", slog.Bool("enabled", enabled))
	return enabled
}

// Tracking reports whether periodic probing is enabled.
func (n *Navigator) Tracking() bool {
	return n.position.Tracking()
}

// Pan shifts the radar view by (dx, dy) cells and returns the new offset.
func (n *Navigator) Pan(dx, dy int) Cell {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pan = n.pan.Add(Cell{X: dx, Y: dy})
	return n.pan
}

// ResetPan recenters the radar on the user.
func (n *Navigator) ResetPan() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pan = Cell{}
}

// Position returns a snapshot of the position state.
func (n *Navigator) Position() PositionState {
	return n.position.State()
}

// Progress returns a snapshot of the navigation progress.
func (n *Navigator) Progress() NavProgress {
	return n.steps.Progress()
}

// Status classifies the current state for the status line.
func (n *Navigator) Status() Status {
	return Classify(n.position.State(), n.steps.Progress(), n.Config())
}

// Frame projects the radar with the configured scale and radius.
func (n *Navigator) Frame() (RadarFrame, error) {
	cfg := n.Config()
	return n.FrameAt(cfg.RadarScale, cfg.RadarRadius)
}

// FrameAt projects the radar with an explicit scale and grid radius.
func (n *Navigator) FrameAt(scale float64, gridRadius int) (RadarFrame, error) {
	n.mu.RLock()
	pan := n.pan
	n.mu.RUnlock()

	progress := n.steps.Progress()
	return Project(n.position.State(), progress.Route, progress.CurrentStep, scale, gridRadius, pan)
}

// Config returns the active policy configuration.
func (n *Navigator) Config() Config {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cfg
}

// UpdateConfig swaps in new thresholds; the current position and route are kept.
func (n *Navigator) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("update config: %w", err)
	}

	n.mu.Lock()
	n.cfg = cfg
	n.mu.Unlock()

	n.position.SetStationaryThreshold(cfg.StationaryBelowKmh)
	n.steps.SetArrivalRadius(cfg.ArrivalRadius)
	return nil
}
