package provider

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go-termgps/nav"
)

// uereMeters converts HDOP into a horizontal accuracy estimate.
const uereMeters = 5.0

// Sentence is the position content of a decoded GGA or RMC sentence.
type Sentence struct {
	Type  string // "GGA" or "RMC"
	Point nav.GeoPoint
	// HDOP is only carried by GGA; zero means not reported.
	HDOP float64
}

// AccuracyMeters estimates the horizontal accuracy from HDOP.
func (s Sentence) AccuracyMeters() float64 {
	if s.HDOP <= 0 {
		return nav.UnknownAccuracy
	}
	return s.HDOP * uereMeters
}

// calculateChecksum calculates the NMEA checksum for a sentence
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ { // Skip the '$' character
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// formatNMEA formats a complete NMEA sentence with checksum
func formatNMEA(sentence string) string {
	checksum := calculateChecksum(sentence)
	return fmt.Sprintf("%s*%s\r\n", sentence, checksum)
}

// nmeaCoord splits a coordinate into NMEA degrees, minutes and hemisphere.
// Minutes are rounded to the four decimals the encoders print, carrying
// into the degrees so that 60.0000 is never written.
func nmeaCoord(v float64, pos, neg string) (int, float64, string) {
	hem := pos
	if v < 0 {
		hem = neg
	}
	deg := int(math.Abs(v))
	minutes := math.Round((math.Abs(v)-float64(deg))*60*1e4) / 1e4
	if minutes >= 60 {
		deg++
		minutes = 0
	}
	return deg, minutes, hem
}

// EncodeGGA renders a fix as a GGA sentence.
func EncodeGGA(fix nav.Fix, satellites int) string {
	timeStr := fix.Timestamp.UTC().Format("150405")
	latDeg, latMin, latHem := nmeaCoord(fix.Point.Latitude, "N", "S")
	lonDeg, lonMin, lonHem := nmeaCoord(fix.Point.Longitude, "E", "W")

	hdop := ""
	if fix.HasAccuracy() {
		hdop = fmt.Sprintf("%.1f", fix.AccuracyMeters/uereMeters)
	}

	sentence := fmt.Sprintf("$GPGGA,%s,%02d%07.4f,%s,%03d%07.4f,%s,1,%02d,%s,0.0,M,0.0,M,,",
		timeStr,
		latDeg, latMin, latHem,
		lonDeg, lonMin, lonHem,
		satellites, hdop)

	return formatNMEA(sentence)
}

// EncodeRMC renders a fix as an RMC sentence.
func EncodeRMC(fix nav.Fix, speedKnots, course float64) string {
	timeStr := fix.Timestamp.UTC().Format("150405") // HHMMSS
	dateStr := fix.Timestamp.UTC().Format("020106") // DDMMYY
	latDeg, latMin, latHem := nmeaCoord(fix.Point.Latitude, "N", "S")
	lonDeg, lonMin, lonHem := nmeaCoord(fix.Point.Longitude, "E", "W")

	sentence := fmt.Sprintf("$GPRMC,%s,A,%02d%07.4f,%s,%03d%07.4f,%s,%.1f,%.1f,%s,,,A",
		timeStr,
		latDeg, latMin, latHem,
		lonDeg, lonMin, lonHem,
		speedKnots, course, dateStr)

	return formatNMEA(sentence)
}

// ParseSentence verifies and decodes a GGA or RMC sentence from any talker
// (GP, GN, GL, ...). Sentences reporting no fix return ErrNoSatelliteFix.
func ParseSentence(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Sentence{}, fmt.Errorf("%w: missing '$'", ErrMalformed)
	}

	star := strings.LastIndexByte(line, '*')
	if star < 0 || star+3 != len(line) {
		return Sentence{}, fmt.Errorf("%w: missing checksum", ErrMalformed)
	}
	body, sum := line[:star], strings.ToUpper(line[star+1:])
	if want := calculateChecksum(body); sum != want {
		return Sentence{}, fmt.Errorf("%w: got %s, want %s", ErrChecksum, sum, want)
	}

	fields := strings.Split(body[1:], ",")
	if len(fields[0]) != 5 {
		return Sentence{}, fmt.Errorf("%w: address %q", ErrMalformed, fields[0])
	}

	switch kind := fields[0][2:]; kind {
	case "GGA":
		return parseGGA(fields)
	case "RMC":
		return parseRMC(fields)
	default:
		return Sentence{}, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

func parseGGA(f []string) (Sentence, error) {
	if len(f) < 10 {
		return Sentence{}, fmt.Errorf("%w: GGA has %d fields", ErrMalformed, len(f))
	}
	if f[6] == "" || f[6] == "0" {
		return Sentence{}, ErrNoSatelliteFix
	}

	p, err := parseLatLon(f[2], f[3], f[4], f[5])
	if err != nil {
		return Sentence{}, err
	}
	s := Sentence{Type: "GGA", Point: p}
	if f[8] != "" {
		if s.HDOP, err = strconv.ParseFloat(f[8], 64); err != nil {
			return Sentence{}, fmt.Errorf("%w: hdop %q", ErrMalformed, f[8])
		}
	}
	return s, nil
}

func parseRMC(f []string) (Sentence, error) {
	if len(f) < 10 {
		return Sentence{}, fmt.Errorf("%w: RMC has %d fields", ErrMalformed, len(f))
	}
	if f[2] != "A" {
		return Sentence{}, ErrNoSatelliteFix
	}

	p, err := parseLatLon(f[3], f[4], f[5], f[6])
	if err != nil {
		return Sentence{}, err
	}
	return Sentence{Type: "RMC", Point: p}, nil
}

// parseLatLon decodes DDMM.MMMM / DDDMM.MMMM coordinates.
func parseLatLon(lat, latHem, lon, lonHem string) (nav.GeoPoint, error) {
	la, err := parseDegreesMinutes(lat)
	if err != nil {
		return nav.GeoPoint{}, err
	}
	lo, err := parseDegreesMinutes(lon)
	if err != nil {
		return nav.GeoPoint{}, err
	}

	switch latHem {
	case "N":
	case "S":
		la = -la
	default:
		return nav.GeoPoint{}, fmt.Errorf("%w: hemisphere %q", ErrMalformed, latHem)
	}
	switch lonHem {
	case "E":
	case "W":
		lo = -lo
	default:
		return nav.GeoPoint{}, fmt.Errorf("%w: hemisphere %q", ErrMalformed, lonHem)
	}

	p := nav.GeoPoint{Latitude: la, Longitude: lo}
	if !p.Valid() {
		return nav.GeoPoint{}, fmt.Errorf("%w: coordinate %v out of range", ErrMalformed, p)
	}
	return p, nil
}

func parseDegreesMinutes(v string) (float64, error) {
	raw, err := strconv.ParseFloat(v, 64)
	if err != nil || raw < 0 {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformed, v)
	}
	deg := math.Floor(raw / 100)
	minutes := raw - deg*100
	if minutes >= 60 {
		return 0, fmt.Errorf("%w: minutes in %q", ErrMalformed, v)
	}
	return deg + minutes/60, nil
}
