package nav

import (
	"encoding/json"
	"fmt"
)

// StatusKind names which rule produced a status message.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusArrived
	StatusPrepare
	StatusContinue
)

func (k StatusKind) String() string {
	switch k {
	case StatusArrived:
		return "arrived"
	case StatusPrepare:
		return "prepare"
	case StatusContinue:
		return "continue"
	default:
		return "idle"
	}
}

func (k StatusKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Status is the co-pilot line shown to the user.
type Status struct {
	Kind       StatusKind    `json:"kind"`
	Message    string        `json:"message"`
	Movement   MovementState `json:"movement"`
	SpeedKmh   float64       `json:"speed_kmh"`
	SpeedKnown bool          `json:"speed_known"`
	ETAMinutes float64       `json:"eta_minutes"`
	ETAKnown   bool          `json:"eta_known"`

	HasFix   bool    `json:"has_fix"`
	Quality  Quality `json:"quality"`
	Accuracy string  `json:"accuracy"`
	Tracking bool    `json:"tracking"`

	StepIndex       int      `json:"step_index"`
	StepCount       int      `json:"step_count"`
	Instruction     string   `json:"instruction,omitempty"`
	Hint            TurnHint `json:"turn_hint"`
	DistanceToStep  float64  `json:"distance_to_step"`
	RemainingMeters float64  `json:"remaining_meters"`
	// Compass is the direction to the current step's anchor, empty when
	// there is nothing to point at.
	Compass string `json:"compass,omitempty"`
}

// maneuverPhrase is the verb phrase used to announce a turn hint.
func maneuverPhrase(h TurnHint) string {
	switch h {
	case TurnLeft:
		return "turn left"
	case TurnRight:
		return "turn right"
	case TurnStraight:
		return "continue straight"
	case TurnArrive:
		return "arrive"
	default:
		return "turn"
	}
}

// Classify derives the co-pilot status from a position snapshot and the
// navigation progress. It is a pure function. The first matching rule
// wins: no route, arrived, turn within the prepare distance, continue.
func Classify(pos PositionState, progress NavProgress, cfg Config) Status {
	st := Status{
		Movement:  pos.Movement(cfg.StationaryBelowKmh),
		Tracking:  pos.Tracking,
		StepIndex: -1,
		Accuracy:  "N/A",
		Quality:   QualityCoarse,
	}
	st.SpeedKmh, st.SpeedKnown = pos.SpeedEstimate()

	point, hasFix := pos.Point()
	if hasFix {
		st.HasFix = true
		st.Quality = pos.LastFix.Quality()
		st.Accuracy = pos.LastFix.AccuracyLabel()
	}

	step, ok := progress.Step()
	if !ok {
		st.Kind = StatusIdle
		st.Message = "No active route. Set a destination to start navigating."
		return st
	}

	route := progress.Route
	st.StepIndex = progress.CurrentStep
	st.StepCount = route.NumSteps()
	st.Instruction = step.Instruction
	st.Hint = step.Hint
	st.RemainingMeters = route.RemainingMeters(progress.CurrentStep)
	if st.SpeedKnown && st.SpeedKmh > 0 {
		st.ETAMinutes = st.RemainingMeters / 1000 / st.SpeedKmh * 60
		st.ETAKnown = true
	}

	st.DistanceToStep = step.DistanceToAnchor
	if hasFix {
		st.DistanceToStep = Distance(point, step.Anchor)
		if b, ok := Bearing(point, step.Anchor); ok {
			st.Compass = CompassLabel(b)
		}
	}

	switch {
	case hasFix && progress.Arrived(point, cfg.ArrivalRadius):
		st.Kind = StatusArrived
		st.Message = "You have arrived at your destination."
		st.ETAMinutes, st.ETAKnown = 0, true
	case st.DistanceToStep <= cfg.PrepareDistance:
		st.Kind = StatusPrepare
		st.Message = fmt.Sprintf("Prepare to %s in %s", maneuverPhrase(step.Hint), FormatDistance(st.DistanceToStep))
	default:
		st.Kind = StatusContinue
		st.Message = fmt.Sprintf("Continue %s, then %s", FormatDistance(st.DistanceToStep), maneuverPhrase(step.Hint))
	}

	return st
}
