package nav

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnknownAccuracy marks a fix whose provider could not estimate its error radius.
const UnknownAccuracy = -1.0

// Source identifies which location backend produced a fix.
type Source int

const (
	SourceNativeGPS Source = iota
	SourceIPFallback
)

func (s Source) String() string {
	switch s {
	case SourceNativeGPS:
		return "native-gps"
	case SourceIPFallback:
		return "ip-fallback"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Quality is the accuracy tier of a fix.
type Quality int

const (
	QualityExcellent Quality = iota // <= 10 m
	QualityGood                     // <= 50 m
	QualityFair                     // <= 100 m
	QualityCoarse                   // IP level or unknown
)

func (q Quality) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityGood:
		return "good"
	case QualityFair:
		return "fair"
	default:
		return "coarse"
	}
}

func (q Quality) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// Fix is a single timestamped location sample.
type Fix struct {
	Point          GeoPoint  `json:"point"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Source         Source    `json:"source"`
	Timestamp      time.Time `json:"timestamp"`
}

// HasAccuracy reports whether the provider supplied an error radius.
func (f Fix) HasAccuracy() bool {
	return f.AccuracyMeters >= 0
}

// Quality classifies the fix by its accuracy radius.
func (f Fix) Quality() Quality {
	switch {
	case !f.HasAccuracy():
		return QualityCoarse
	case f.AccuracyMeters <= 10:
		return QualityExcellent
	case f.AccuracyMeters <= 50:
		return QualityGood
	case f.AccuracyMeters <= 100:
		return QualityFair
	default:
		return QualityCoarse
	}
}

// AccuracyLabel formats the accuracy radius for display, e.g. "±8m" or "~10km".
func (f Fix) AccuracyLabel() string {
	if !f.HasAccuracy() {
		return "N/A"
	}
	if f.AccuracyMeters >= 1000 {
		return fmt.Sprintf("~%.0fkm", f.AccuracyMeters/1000)
	}
	return fmt.Sprintf("±%.0fm", f.AccuracyMeters)
}
