package nav

import (
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters used by the spherical formulas.
const EarthRadius = 6371000.0

// metersPerDegree is the length of one degree of arc on the spherical Earth.
const metersPerDegree = math.Pi * EarthRadius / 180

// GeoPoint is a latitude/longitude pair in decimal degrees
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies inside the legal coordinate ranges.
func (p GeoPoint) Valid() bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.5f, %.5f", p.Latitude, p.Longitude)
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in meters
// using the Haversine formula.
func Distance(a, b GeoPoint) float64 {
	if a == b {
		return 0
	}

	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	deltaLat := radians(b.Latitude - a.Latitude)
	deltaLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadius * c
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// normalized to [0, 360). The second result is false when a == b, in which
// case there is no direction to draw.
func Bearing(a, b GeoPoint) (float64, bool) {
	if a == b {
		return 0, false
	}

	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	deltaLon := radians(b.Longitude - a.Longitude)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	return NormalizeHeading(degrees(math.Atan2(y, x))), true
}

// Destination returns the point reached by travelling the given distance
// (meters) from p along the initial bearing (degrees).
func Destination(p GeoPoint, distance, bearing float64) GeoPoint {
	lat := radians(p.Latitude)
	lon := radians(p.Longitude)
	brg := radians(bearing)
	angular := distance / EarthRadius

	newLat := math.Asin(math.Sin(lat)*math.Cos(angular) +
		math.Cos(lat)*math.Sin(angular)*math.Cos(brg))
	newLon := lon + math.Atan2(
		math.Sin(brg)*math.Sin(angular)*math.Cos(lat),
		math.Cos(angular)-math.Sin(lat)*math.Sin(newLat))

	out := GeoPoint{Latitude: degrees(newLat), Longitude: degrees(newLon)}
	for out.Longitude > 180 {
		out.Longitude -= 360
	}
	for out.Longitude < -180 {
		out.Longitude += 360
	}
	return out
}

// NormalizeHeading maps any angle in degrees into [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// HeadingDifference returns the signed turn in degrees (-180, 180] needed
// to go from heading cur to heading target; positive is a right turn.
func HeadingDifference(cur, target float64) float64 {
	d := NormalizeHeading(target - cur)
	if d > 180 {
		d -= 360
	}
	return d
}

///////////////////////////////////////////////////////////////////////////
// compass

// CompassDirection is one of the eight cardinal and intercardinal directions.
type CompassDirection int

const (
	North CompassDirection = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var compassLabels = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func (c CompassDirection) String() string {
	if c < North || c > NorthWest {
		return "ERROR"
	}
	return compassLabels[c]
}

// Heading returns the center heading of the direction's sector.
func (c CompassDirection) Heading() float64 {
	return float64(c) * 45
}

// Compass buckets a bearing into one of eight 45° sectors centered on the
// direction it names. Each sector includes its lower boundary, so 22.5°
// is NE and 337.5° is N.
func Compass(bearing float64) CompassDirection {
	b := NormalizeHeading(bearing)
	return CompassDirection(int(math.Floor((b+22.5)/45)) % 8)
}

// CompassLabel is shorthand for Compass(bearing).String().
func CompassLabel(bearing float64) string {
	return Compass(bearing).String()
}
