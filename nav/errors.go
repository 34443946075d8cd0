package nav

import "errors"

// Errors returned by the navigation engine. None of them are fatal; they
// describe why an operation was a no-op.
var (
	ErrStaleFix         = errors.New("fix is older than the current position")
	ErrInvalidFix       = errors.New("fix coordinates out of range")
	ErrInvalidRoute     = errors.New("route needs at least 2 waypoints and 1 step")
	ErrNoFix            = errors.New("no position fix available")
	ErrNoRoute          = errors.New("no active route")
	ErrAtFirstStep      = errors.New("already at the first step")
	ErrAtLastStep       = errors.New("already at the last step")
	ErrInvalidScale     = errors.New("radar scale must be positive and grid radius non-negative")
	ErrTrackingDisabled = errors.New("tracking is disabled")

	ErrInvalidArrivalRadius   = errors.New("arrival radius must be positive")
	ErrInvalidPrepareDistance = errors.New("prepare distance must not be below the arrival radius")
	ErrInvalidStationarySpeed = errors.New("stationary speed threshold must be non-negative")
	ErrInvalidRefreshInterval = errors.New("refresh interval must be positive")
)
