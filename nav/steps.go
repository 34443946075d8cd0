package nav

import (
	"fmt"
	"sync"
)

// NavProgress is a snapshot of the step tracker. Route is nil and
// CurrentStep is -1 when no route is active.
type NavProgress struct {
	Route       *RouteModel `json:"route,omitempty"`
	CurrentStep int         `json:"current_step"`
}

// Active reports whether a route is attached.
func (p NavProgress) Active() bool {
	return p.Route != nil
}

// Step returns the step currently being navigated.
func (p NavProgress) Step() (RouteStep, bool) {
	if p.Route == nil {
		return RouteStep{}, false
	}
	return p.Route.Step(p.CurrentStep)
}

// AtLastStep reports whether the final step is the current one.
func (p NavProgress) AtLastStep() bool {
	return p.Route != nil && p.CurrentStep == p.Route.NumSteps()-1
}

// Arrived reports whether point is within radius of the destination
// while on the final step. It is derived afresh for every fix, so moving
// away again turns it back to false.
func (p NavProgress) Arrived(point GeoPoint, radius float64) bool {
	return p.AtLastStep() && Distance(point, p.Route.Destination()) <= radius
}

// StepTracker walks the steps of the active route. The route and the
// index live under one lock so that readers never see an index into a
// route it does not belong to.
type StepTracker struct {
	mu            sync.RWMutex
	route         *RouteModel
	current       int
	arrivalRadius float64
}

// NewStepTracker creates a tracker with no route.
func NewStepTracker(arrivalRadius float64) *StepTracker {
	return &StepTracker{current: -1, arrivalRadius: arrivalRadius}
}

// Attach replaces the active route and restarts at step 0.
func (s *StepTracker) Attach(route *RouteModel) error {
	if route == nil || len(route.steps) == 0 {
		return fmt.Errorf("attach route: %w", ErrInvalidRoute)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = route
	s.current = 0
	return nil
}

// Clear drops the route and its progress together.
func (s *StepTracker) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = nil
	s.current = -1
}

// Progress returns a snapshot of the route and current index.
func (s *StepTracker) Progress() NavProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NavProgress{Route: s.route, CurrentStep: s.current}
}

// Advance moves to the next step.
func (s *StepTracker) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *StepTracker) advanceLocked() error {
	if s.route == nil {
		return ErrNoRoute
	}
	if s.current >= len(s.route.steps)-1 {
		return ErrAtLastStep
	}
	s.current++
	return nil
}

// Retreat moves back to the previous step.
func (s *StepTracker) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.route == nil {
		return ErrNoRoute
	}
	if s.current <= 0 {
		return ErrAtFirstStep
	}
	s.current--
	return nil
}

// MaybeAutoAdvance advances once when point is within the arrival radius of
// the current step's anchor, unless the current step is the last one. It
// must be called once per new fix; it reports whether it advanced.
func (s *StepTracker) MaybeAutoAdvance(point GeoPoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.route == nil || s.current >= len(s.route.steps)-1 {
		return false
	}
	if Distance(point, s.route.steps[s.current].Anchor) > s.arrivalRadius {
		return false
	}
	return s.advanceLocked() == nil
}

// HasArrived reports whether point is at the destination while on the last step.
func (s *StepTracker) HasArrived(point GeoPoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NavProgress{Route: s.route, CurrentStep: s.current}.Arrived(point, s.arrivalRadius)
}

// SetArrivalRadius updates the proximity threshold used for auto-advance and arrival.
func (s *StepTracker) SetArrivalRadius(meters float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrivalRadius = meters
}
