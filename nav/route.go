package nav

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TurnHint is the maneuver expected at a step's anchor.
type TurnHint int

const (
	TurnUnknown TurnHint = iota
	TurnLeft
	TurnRight
	TurnStraight
	TurnArrive
)

func (h TurnHint) String() string {
	switch h {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	case TurnStraight:
		return "straight"
	case TurnArrive:
		return "arrive"
	default:
		return "unknown"
	}
}

func (h TurnHint) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// ParseTurnHint maps a router maneuver (type plus modifier, as OSRM reports
// them: "turn"/"slight left", "arrive"/"") to a TurnHint.
func ParseTurnHint(maneuver, modifier string) TurnHint {
	maneuver = strings.ToLower(strings.TrimSpace(maneuver))
	modifier = strings.ToLower(modifier)

	switch {
	case maneuver == "arrive":
		return TurnArrive
	case strings.Contains(modifier, "left"):
		return TurnLeft
	case strings.Contains(modifier, "right"):
		return TurnRight
	case strings.Contains(modifier, "straight"):
		return TurnStraight
	case maneuver == "depart" || maneuver == "continue" || maneuver == "new name":
		return TurnStraight
	default:
		return TurnUnknown
	}
}

// RouteStep is one turn-by-turn instruction.
type RouteStep struct {
	Instruction string   `json:"instruction"`
	Name        string   `json:"name,omitempty"` // road name, if the router reports one
	Anchor      GeoPoint `json:"anchor"`
	// DistanceToAnchor is the router's distance in meters for this step.
	DistanceToAnchor float64  `json:"distance_to_anchor"`
	DurationSeconds  float64  `json:"duration_seconds,omitempty"`
	Hint             TurnHint `json:"turn_hint"`
}

// RouteModel is an immutable calculated route. A new destination always
// produces a new RouteModel; nothing mutates one in place.
type RouteModel struct {
	waypoints   []GeoPoint
	steps       []RouteStep
	destination GeoPoint
}

// BuildRoute validates router output and produces a RouteModel. Step
// distances are taken as given; the final step's anchor is forced to the
// destination so that arrival is always judged against it.
func BuildRoute(waypoints []GeoPoint, steps []RouteStep, destination GeoPoint) (*RouteModel, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("build route: %d waypoints: %w", len(waypoints), ErrInvalidRoute)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("build route: no steps: %w", ErrInvalidRoute)
	}
	if !destination.Valid() {
		return nil, fmt.Errorf("build route: destination %s: %w", destination, ErrInvalidRoute)
	}
	for i, s := range steps {
		if s.DistanceToAnchor < 0 {
			return nil, fmt.Errorf("build route: step %d has negative distance: %w", i, ErrInvalidRoute)
		}
	}

	r := &RouteModel{
		waypoints:   append([]GeoPoint(nil), waypoints...),
		steps:       append([]RouteStep(nil), steps...),
		destination: destination,
	}
	r.steps[len(r.steps)-1].Anchor = destination

	return r, nil
}

// Waypoints returns a copy of the route polyline. Waypoints()[0] is the
// origin at calculation time, not necessarily the live position.
func (r *RouteModel) Waypoints() []GeoPoint {
	return append([]GeoPoint(nil), r.waypoints...)
}

// Steps returns a copy of the navigation steps.
func (r *RouteModel) Steps() []RouteStep {
	return append([]RouteStep(nil), r.steps...)
}

// Step returns the step at index i.
func (r *RouteModel) Step(i int) (RouteStep, bool) {
	if i < 0 || i >= len(r.steps) {
		return RouteStep{}, false
	}
	return r.steps[i], true
}

// NumSteps returns the number of navigation steps.
func (r *RouteModel) NumSteps() int { return len(r.steps) }

// Destination returns the route's destination.
func (r *RouteModel) Destination() GeoPoint { return r.destination }

// RemainingMeters sums the distances of steps from index i to the end.
func (r *RouteModel) RemainingMeters(i int) float64 {
	if i < 0 {
		i = 0
	}
	total := 0.0
	for ; i < len(r.steps); i++ {
		total += r.steps[i].DistanceToAnchor
	}
	return total
}

// TotalMeters is the router's length of the whole route.
func (r *RouteModel) TotalMeters() float64 {
	return r.RemainingMeters(0)
}

// RemainingSeconds sums the router's step durations from index i on.
func (r *RouteModel) RemainingSeconds(i int) float64 {
	if i < 0 {
		i = 0
	}
	total := 0.0
	for ; i < len(r.steps); i++ {
		total += r.steps[i].DurationSeconds
	}
	return total
}

func (r *RouteModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Waypoints   []GeoPoint  `json:"waypoints"`
		Steps       []RouteStep `json:"steps"`
		Destination GeoPoint    `json:"destination"`
	}{r.waypoints, r.steps, r.destination})
}
