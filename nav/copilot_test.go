package nav

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestClassifyIdle(t *testing.T) {
	st := Classify(PositionState{}, NavProgress{CurrentStep: -1}, DefaultConfig())
	if st.Kind != StatusIdle {
		t.Errorf("Expected idle, got %v", st.Kind)
	}
	if st.Message != "No active route. Set a destination to start navigating." {
		t.Errorf("Unexpected idle message %q", st.Message)
	}
	if st.HasFix || st.Accuracy != "N/A" || st.StepIndex != -1 {
		t.Errorf("Unexpected idle status %+v", st)
	}
}

func TestClassifyWithoutFixUsesStepDistance(t *testing.T) {
	route := threeStepRoute(t)
	st := Classify(PositionState{}, NavProgress{Route: route, CurrentStep: 0}, DefaultConfig())

	if st.Kind != StatusContinue {
		t.Fatalf("Expected continue, got %v", st.Kind)
	}
	if st.Message != "Continue 300 m, then continue straight" {
		t.Errorf("Unexpected message %q", st.Message)
	}
	if st.Compass != "" {
		t.Errorf("Compass should be empty without a fix, got %q", st.Compass)
	}
	if st.RemainingMeters != 900 {
		t.Errorf("Expected 900 m remaining, got %f", st.RemainingMeters)
	}
}

func TestClassifyPrepare(t *testing.T) {
	route := threeStepRoute(t)
	origin := GeoPoint{13.08, 80.27}

	st := Classify(stateAt(northOf(origin, 480)), NavProgress{Route: route, CurrentStep: 1}, DefaultConfig())
	if st.Kind != StatusPrepare {
		t.Fatalf("Expected prepare, got %v (%s)", st.Kind, st.Message)
	}
	if !strings.HasPrefix(st.Message, "Prepare to turn left in ") {
		t.Errorf("Unexpected message %q", st.Message)
	}
	if st.Compass != "N" {
		t.Errorf("Expected compass N, got %q", st.Compass)
	}
	if math.Abs(st.DistanceToStep-120) > 0.5 {
		t.Errorf("Expected ~120 m to the step, got %f", st.DistanceToStep)
	}
}

func TestClassifyContinue(t *testing.T) {
	route := threeStepRoute(t)
	origin := GeoPoint{13.08, 80.27}

	st := Classify(stateAt(northOf(origin, 310)), NavProgress{Route: route, CurrentStep: 1}, DefaultConfig())
	if st.Kind != StatusContinue {
		t.Fatalf("Expected continue, got %v", st.Kind)
	}
	if !strings.HasPrefix(st.Message, "Continue ") || !strings.HasSuffix(st.Message, ", then turn left") {
		t.Errorf("Unexpected message %q", st.Message)
	}
}

func TestClassifyArrived(t *testing.T) {
	route := threeStepRoute(t)
	dest := route.Destination()

	st := Classify(stateAt(dest), NavProgress{Route: route, CurrentStep: 2}, DefaultConfig())
	if st.Kind != StatusArrived {
		t.Fatalf("Expected arrived, got %v", st.Kind)
	}
	if st.Message != "You have arrived at your destination." {
		t.Errorf("Unexpected message %q", st.Message)
	}
	if !st.ETAKnown || st.ETAMinutes != 0 {
		t.Errorf("Arrival should report ETA 0, got %f known=%v", st.ETAMinutes, st.ETAKnown)
	}

	// Arrival needs the last step to be current.
	st = Classify(stateAt(dest), NavProgress{Route: route, CurrentStep: 1}, DefaultConfig())
	if st.Kind == StatusArrived {
		t.Error("Should not report arrival before the last step")
	}
}

func TestClassifyETA(t *testing.T) {
	route := threeStepRoute(t)
	origin := GeoPoint{13.08, 80.27}
	prev := fixAt(northOf(origin, -50), testEpoch)
	last := fixAt(origin, testEpoch.Add(5*time.Second))
	pos := PositionState{LastFix: &last, PreviousFix: &prev}

	st := Classify(pos, NavProgress{Route: route, CurrentStep: 0}, DefaultConfig())
	if !st.SpeedKnown || math.Abs(st.SpeedKmh-36) > 0.5 {
		t.Errorf("Expected ~36 km/h, got %f known=%v", st.SpeedKmh, st.SpeedKnown)
	}
	if st.Movement != Moving {
		t.Errorf("Expected moving, got %v", st.Movement)
	}
	// 900 m at 36 km/h is 1.5 minutes.
	if !st.ETAKnown || math.Abs(st.ETAMinutes-1.5) > 0.05 {
		t.Errorf("Expected ETA ~1.5 min, got %f known=%v", st.ETAMinutes, st.ETAKnown)
	}
}

func TestClassifyETAUnknownWhenStationary(t *testing.T) {
	route := threeStepRoute(t)
	st := Classify(stateAt(GeoPoint{13.08, 80.27}), NavProgress{Route: route, CurrentStep: 0}, DefaultConfig())
	if st.ETAKnown {
		t.Error("ETA should be unknown without a speed estimate")
	}
	if st.Movement != Stationary {
		t.Errorf("Expected stationary, got %v", st.Movement)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := map[float64]string{
		0:    "0 m",
		850:  "850 m",
		999:  "999 m",
		1000: "1.0 km",
		1234: "1.2 km",
		-5:   "0 m",
	}
	for in, want := range tests {
		if got := FormatDistance(in); got != want {
			t.Errorf("FormatDistance(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		12 * time.Minute:             "12 min",
		65 * time.Minute:             "1h 5m",
		30 * time.Second:             "0 min",
		2*time.Hour + 59*time.Second: "2h 0m",
		-time.Minute:                 "0 min",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}
