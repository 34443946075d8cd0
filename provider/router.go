package provider

import (
	"context"
	"fmt"
	"math"

	"go-termgps/nav"
)

const (
	// straightWithinDegrees is the heading change still announced as straight.
	straightWithinDegrees = 30
	// defaultCruiseKmh converts step lengths into nominal durations.
	defaultCruiseKmh = 30
)

// DirectRouter routes in a straight line. It needs no map data, so it is
// the offline fallback.
type DirectRouter struct {
	CruiseKmh float64
}

// Route returns a two-step route: head toward the destination, then arrive.
func (r DirectRouter) Route(ctx context.Context, origin, destination nav.GeoPoint) (*nav.RouteModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return polylineRoute([]nav.GeoPoint{origin, destination}, nil, destination, r.CruiseKmh)
}

// GPXRouter follows the route stored in a GPX file. The user's origin is
// prepended, and a step is derived at every intermediate route point from
// the change of heading there.
type GPXRouter struct {
	Name      string
	points    []nav.GeoPoint
	names     []string
	CruiseKmh float64
}

// NewGPXRouter loads the first route (or track) of filename.
func NewGPXRouter(filename string) (*GPXRouter, error) {
	name, rpts, err := ReadRoutePoints(filename)
	if err != nil {
		return nil, fmt.Errorf("load gpx route: %w", err)
	}

	r := &GPXRouter{Name: name}
	for _, rp := range rpts {
		p := nav.GeoPoint{Latitude: rp.Lat, Longitude: rp.Lon}
		if !p.Valid() {
			return nil, fmt.Errorf("load gpx route: point %v: %w", p, nav.ErrInvalidRoute)
		}
		r.points = append(r.points, p)
		r.names = append(r.names, rp.Name)
	}
	return r, nil
}

// Destination is the last point of the stored route.
func (r *GPXRouter) Destination() nav.GeoPoint {
	return r.points[len(r.points)-1]
}

// Route builds the stored route from origin. destination overrides the
// final point.
func (r *GPXRouter) Route(ctx context.Context, origin, destination nav.GeoPoint) (*nav.RouteModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	points := append([]nav.GeoPoint{origin}, r.points...)
	names := append([]string{""}, r.names...)
	// Drop the stored start when the user is standing on it.
	if len(points) > 2 && nav.Distance(points[0], points[1]) < 1 {
		points = append(points[:1], points[2:]...)
		names = append(names[:1], names[2:]...)
	}
	return polylineRoute(points, names, destination, r.CruiseKmh)
}

// polylineRoute derives turn-by-turn steps along points. Step 0 departs
// from the first point; step i is the maneuver at point i; the last step
// arrives. names[i], when present, labels point i; a step is announced
// onto the name of the point it heads for.
func polylineRoute(points []nav.GeoPoint, names []string, destination nav.GeoPoint, cruiseKmh float64) (*nav.RouteModel, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("build route: %d points: %w", len(points), nav.ErrInvalidRoute)
	}
	if cruiseKmh <= 0 {
		cruiseKmh = defaultCruiseKmh
	}
	mps := cruiseKmh / 3.6
	name := func(i int) string {
		if i < len(names) {
			return names[i]
		}
		return ""
	}

	last := len(points) - 1
	steps := make([]nav.RouteStep, 0, len(points))
	for i := 0; i < last; i++ {
		leg := nav.Distance(points[i], points[i+1])
		out, _ := nav.Bearing(points[i], points[i+1])

		step := nav.RouteStep{
			Name:             name(i + 1),
			Anchor:           points[i],
			DistanceToAnchor: leg,
			DurationSeconds:  math.Round(leg / mps),
		}
		if i == 0 {
			step.Hint = nav.TurnStraight
			step.Instruction = "Head " + nav.Compass(out).String()
		} else {
			in, _ := nav.Bearing(points[i-1], points[i])
			step.Hint = turnHint(nav.HeadingDifference(in, out))
			step.Instruction = turnInstruction(step.Hint)
		}
		if step.Name != "" {
			step.Instruction += " onto " + step.Name
		}
		steps = append(steps, step)
	}
	steps = append(steps, nav.RouteStep{
		Instruction: "Arrive at destination",
		Anchor:      points[last],
		Hint:        nav.TurnArrive,
	})

	return nav.BuildRoute(points, steps, destination)
}

// turnHint classifies a signed heading change; positive turns right.
func turnHint(delta float64) nav.TurnHint {
	switch {
	case math.Abs(delta) < straightWithinDegrees:
		return nav.TurnStraight
	case delta > 0:
		return nav.TurnRight
	default:
		return nav.TurnLeft
	}
}

func turnInstruction(h nav.TurnHint) string {
	switch h {
	case nav.TurnLeft:
		return "Turn left"
	case nav.TurnRight:
		return "Turn right"
	default:
		return "Continue"
	}
}
