package nav

import "time"

// Config holds the navigation policy thresholds. The distances are policy
// rather than hard requirements, so every one of them can be tuned.
type Config struct {
	// ArrivalRadius is the distance in meters under which a step anchor
	// or the destination counts as reached.
	ArrivalRadius float64 `json:"arrival_radius" mapstructure:"arrival_radius"`
	// PrepareDistance is the distance in meters under which the co-pilot
	// announces the upcoming turn.
	PrepareDistance float64 `json:"prepare_distance" mapstructure:"prepare_distance"`
	// StationaryBelowKmh absorbs GPS jitter at rest.
	StationaryBelowKmh float64 `json:"stationary_below_kmh" mapstructure:"stationary_below_kmh"`
	// RadarScale is in meters per cell, RadarRadius in cells.
	RadarScale  float64 `json:"radar_scale" mapstructure:"radar_scale"`
	RadarRadius int     `json:"radar_radius" mapstructure:"radar_radius"`
	// RefreshInterval is how often the scheduler probes for a fix while tracking.
	RefreshInterval time.Duration `json:"refresh_interval" mapstructure:"refresh_interval"`
	// StopOnArrival turns tracking off once the destination is reached.
	StopOnArrival bool `json:"stop_on_arrival" mapstructure:"stop_on_arrival"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		ArrivalRadius:      50,
		PrepareDistance:    150,
		StationaryBelowKmh: 1,
		RadarScale:         50,
		RadarRadius:        10,
		RefreshInterval:    5 * time.Second,
		StopOnArrival:      true,
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if c.ArrivalRadius <= 0 {
		return ErrInvalidArrivalRadius
	}
	if c.PrepareDistance < c.ArrivalRadius {
		return ErrInvalidPrepareDistance
	}
	if c.StationaryBelowKmh < 0 {
		return ErrInvalidStationarySpeed
	}
	if c.RadarScale <= 0 || c.RadarRadius < 0 {
		return ErrInvalidScale
	}
	if c.RefreshInterval <= 0 {
		return ErrInvalidRefreshInterval
	}
	return nil
}
