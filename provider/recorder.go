package provider

import (
	"log/slog"
	"sync"

	"go-termgps/nav"
)

// flushEvery is how many points are buffered between file rewrites.
const flushEvery = 10

// TrackRecorder appends every applied fix to a GPX track. Register
// Record with Navigator.OnFix.
type TrackRecorder struct {
	mu      sync.Mutex
	writer  *GPXWriter
	pending int
	logger  *slog.Logger
}

// NewTrackRecorder creates the GPX file and returns a recorder for it.
func NewTrackRecorder(filename string, logger *slog.Logger) (*TrackRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := NewGPXWriter(filename, "termgps track")
	if err != nil {
		return nil, err
	}
	return &TrackRecorder{writer: w, logger: logger}, nil
}

// Record stores the fix of u. Coarse fixes are skipped so that IP-based
// positions do not scribble over the track.
func (r *TrackRecorder) Record(u nav.Update) {
	if u.Fix.Quality() == nav.QualityCoarse {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return
	}

	r.writer.AddTrackPoint(u.Fix.Point.Latitude, u.Fix.Point.Longitude, u.Fix.Timestamp)
	r.pending++
	if r.pending < flushEvery {
		return
	}
	r.pending = 0
	if err := r.writer.WriteToFile(); err != nil {
		r.logger.Warn("failed to flush track", slog.Any("error", err))
	}
}

// Points returns the number of recorded points.
func (r *TrackRecorder) Points() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return 0
	}
	return r.writer.TrackPointCount()
}

// Close flushes the remaining points and closes the file.
func (r *TrackRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	return err
}
