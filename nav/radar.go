package nav

import (
	"fmt"
	"math"
)

// Cell is a position on the radar grid. The user sits at the origin
// before panning; X grows to the east and Y grows to the south, so the
// grid can be drawn row by row with north at the top.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the cell offset by o.
func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

// RadarFrame is a transient snapshot of the radar view.
type RadarFrame struct {
	Center     GeoPoint `json:"center"`
	Scale      float64  `json:"scale_meters_per_cell"`
	GridRadius int      `json:"grid_radius"`
	Pan        Cell     `json:"pan"`
	// User is the user's cell, i.e. the origin shifted by Pan. It is nil
	// when panned off the grid.
	User        *Cell  `json:"user,omitempty"`
	Route       []Cell `json:"route"`
	Destination *Cell  `json:"destination,omitempty"`
	NextTurn    *Cell  `json:"next_turn,omitempty"`
}

// InBounds reports whether c lies in [-GridRadius, GridRadius] on both axes.
func (f RadarFrame) InBounds(c Cell) bool {
	return c.X >= -f.GridRadius && c.X <= f.GridRadius &&
		c.Y >= -f.GridRadius && c.Y <= f.GridRadius
}

// Offset projects p relative to center with a local equirectangular
// approximation and returns fractional cell offsets. It is only meaningful
// within a few tens of kilometers of center; distance and bearing logic
// must use Distance and Bearing instead.
func Offset(center, p GeoPoint, scale float64) (dx, dy float64) {
	cosLat := math.Cos(radians(center.Latitude))
	dx = (p.Longitude - center.Longitude) * cosLat * metersPerDegree / scale
	dy = (center.Latitude - p.Latitude) * metersPerDegree / scale
	return dx, dy
}

// Project builds the radar frame around the last fix. Points that fall
// outside the grid after panning are left out rather than reported as
// errors.
func Project(state PositionState, route *RouteModel, currentStep int, scale float64, gridRadius int, pan Cell) (RadarFrame, error) {
	if state.LastFix == nil {
		return RadarFrame{}, ErrNoFix
	}
	if scale <= 0 || math.IsNaN(scale) || gridRadius < 0 {
		return RadarFrame{}, fmt.Errorf("project: scale=%v radius=%d: %w", scale, gridRadius, ErrInvalidScale)
	}

	center := state.LastFix.Point
	frame := RadarFrame{
		Center:     center,
		Scale:      scale,
		GridRadius: gridRadius,
		Pan:        pan,
		Route:      []Cell{},
	}
	if frame.InBounds(pan) {
		user := pan
		frame.User = &user
	}

	project := func(p GeoPoint) (Cell, bool) {
		dx, dy := Offset(center, p, scale)
		if math.Abs(dx) > math.MaxInt32 || math.Abs(dy) > math.MaxInt32 {
			return Cell{}, false
		}
		c := Cell{X: int(math.Round(dx)), Y: int(math.Round(dy))}.Add(pan)
		return c, frame.InBounds(c)
	}

	if route == nil {
		return frame, nil
	}

	for _, wp := range route.waypoints {
		if c, ok := project(wp); ok {
			frame.Route = append(frame.Route, c)
		}
	}
	if c, ok := project(route.destination); ok {
		frame.Destination = &c
	}
	if step, ok := route.Step(currentStep); ok {
		if c, ok := project(step.Anchor); ok {
			frame.NextTurn = &c
		}
	}

	return frame, nil
}
