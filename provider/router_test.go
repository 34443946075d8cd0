package provider

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go-termgps/nav"
)

func TestDirectRouter(t *testing.T) {
	origin := nav.GeoPoint{Latitude: 13.08, Longitude: 80.27}
	dest := nav.Destination(origin, 3000, 0)

	route, err := DirectRouter{}.Route(context.Background(), origin, dest)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if route.NumSteps() != 2 {
		t.Fatalf("Expected 2 steps, got %d", route.NumSteps())
	}

	head, _ := route.Step(0)
	if head.Instruction != "Head N" || head.Hint != nav.TurnStraight {
		t.Errorf("Unexpected departure step %+v", head)
	}
	if math.Abs(head.DistanceToAnchor-3000) > 1 {
		t.Errorf("Expected 3000 m leg, got %f", head.DistanceToAnchor)
	}
	// 3 km at 30 km/h.
	if head.DurationSeconds != 360 {
		t.Errorf("Expected 360 s, got %f", head.DurationSeconds)
	}

	arrive, _ := route.Step(1)
	if arrive.Hint != nav.TurnArrive || arrive.Anchor != dest {
		t.Errorf("Unexpected arrival step %+v", arrive)
	}
}

func TestDirectRouterErrors(t *testing.T) {
	origin := nav.GeoPoint{Latitude: 13.08, Longitude: 80.27}

	if _, err := (DirectRouter{}).Route(context.Background(), origin, nav.GeoPoint{Latitude: 91}); !errors.Is(err, nav.ErrInvalidRoute) {
		t.Errorf("Expected ErrInvalidRoute, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (DirectRouter{}).Route(ctx, origin, origin); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGPXRouter(t *testing.T) {
	r, err := NewGPXRouter(writeGPX(t, testRouteGPX))
	if err != nil {
		t.Fatalf("NewGPXRouter failed: %v", err)
	}
	if r.Name != "Marina loop" {
		t.Errorf("Expected route name Marina loop, got %q", r.Name)
	}

	start := nav.GeoPoint{Latitude: 13.0800, Longitude: 80.2700}
	route, err := r.Route(context.Background(), start, r.Destination())
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	tests := []struct {
		instruction string
		hint        nav.TurnHint
	}{
		{"Head N onto Beach Road", nav.TurnStraight},
		{"Turn right onto Anna Salai", nav.TurnRight},
		{"Turn left onto Museum", nav.TurnLeft},
		{"Arrive at destination", nav.TurnArrive},
	}
	if route.NumSteps() != len(tests) {
		t.Fatalf("Expected %d steps, got %d", len(tests), route.NumSteps())
	}
	for i, tt := range tests {
		step, _ := route.Step(i)
		if step.Instruction != tt.instruction {
			t.Errorf("Step %d: expected %q, got %q", i, tt.instruction, step.Instruction)
		}
		if step.Hint != tt.hint {
			t.Errorf("Step %d: expected hint %v, got %v", i, tt.hint, step.Hint)
		}
	}
}

func TestGPXRouterPrependsOrigin(t *testing.T) {
	r, err := NewGPXRouter(writeGPX(t, testRouteGPX))
	if err != nil {
		t.Fatal(err)
	}

	// Start 500 m south of the stored start.
	origin := nav.Destination(nav.GeoPoint{Latitude: 13.0800, Longitude: 80.2700}, 500, 180)
	route, err := r.Route(context.Background(), origin, r.Destination())
	if err != nil {
		t.Fatal(err)
	}
	if route.NumSteps() != 5 {
		t.Fatalf("Expected 5 steps with the origin prepended, got %d", route.NumSteps())
	}
	if wp := route.Waypoints(); wp[0] != origin {
		t.Errorf("Expected first waypoint to be the origin, got %v", wp[0])
	}
	head, _ := route.Step(0)
	if head.Instruction != "Head N onto Start" {
		t.Errorf("Unexpected departure %q", head.Instruction)
	}
}

func TestNewGPXRouterErrors(t *testing.T) {
	if _, err := NewGPXRouter(filepath.Join(t.TempDir(), "missing.gpx")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if _, err := NewGPXRouter(writeGPX(t, `<gpx version="1.1"></gpx>`)); !errors.Is(err, ErrEmptyGPX) {
		t.Errorf("Expected ErrEmptyGPX, got %v", err)
	}
}

func TestTurnHint(t *testing.T) {
	tests := []struct {
		delta    float64
		expected nav.TurnHint
	}{
		{0, nav.TurnStraight},
		{29, nav.TurnStraight},
		{-29, nav.TurnStraight},
		{30, nav.TurnRight},
		{90, nav.TurnRight},
		{-30, nav.TurnLeft},
		{180, nav.TurnRight},
	}

	for _, tt := range tests {
		if got := turnHint(tt.delta); got != tt.expected {
			t.Errorf("turnHint(%v) = %v, want %v", tt.delta, got, tt.expected)
		}
	}
}
