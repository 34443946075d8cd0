// Package provider holds the collaborators that feed the navigation core:
// location sources, route builders, place search and track recording.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-termgps/nav"
)

// Common errors returned by providers
var (
	ErrNoPosition       = errors.New("no position available")
	ErrNoLocator        = errors.New("no locator configured")
	ErrChecksum         = errors.New("nmea checksum mismatch")
	ErrMalformed        = errors.New("malformed nmea sentence")
	ErrUnsupported      = errors.New("unsupported nmea sentence")
	ErrNoSatelliteFix   = errors.New("receiver has no satellite fix")
	ErrReplayExhausted  = errors.New("replay track exhausted")
	ErrEmptyGPX         = errors.New("no track points or route points in gpx")
	ErrSchedulerRunning = errors.New("scheduler is already running")
	ErrSchedulerStopped = errors.New("scheduler is not running")
)

// Locator produces a single position fix.
type Locator interface {
	Locate(ctx context.Context) (nav.Fix, error)
}

// Router turns an origin and a destination into a route.
type Router interface {
	Route(ctx context.Context, origin, destination nav.GeoPoint) (*nav.RouteModel, error)
}

// Geocoder searches for places by name.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// Place is a named search result.
type Place struct {
	Name  string       `json:"name"`
	Point nav.GeoPoint `json:"point"`
}

// ParsePoint parses "lat,lon" into a point.
func ParsePoint(input string) (nav.GeoPoint, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return nav.GeoPoint{}, fmt.Errorf("invalid coordinate: %q", input)
	}

	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nav.GeoPoint{}, fmt.Errorf("invalid lat/lon: %q", input)
	}

	p := nav.GeoPoint{Latitude: lat, Longitude: lon}
	if !p.Valid() {
		return nav.GeoPoint{}, fmt.Errorf("coordinate out of range: %q", input)
	}
	return p, nil
}
