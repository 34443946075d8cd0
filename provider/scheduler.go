package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go-termgps/nav"
)

// Tracker is the part of the navigator the scheduler drives.
type Tracker interface {
	Tracking() bool
	TrackFix(fix nav.Fix) (nav.Update, error)
}

// Scheduler probes a locator on a fixed interval and feeds the fixes to
// the navigator while tracking is on.
type Scheduler struct {
	mu       sync.Mutex
	locator  Locator
	tracker  Tracker
	interval time.Duration
	running  bool
	cancel   context.CancelFunc
	ticker   *time.Ticker
	done     chan struct{}
	logger   *slog.Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(locator Locator, tracker Tracker, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		locator:  locator,
		tracker:  tracker,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the probing loop. It stops when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx, s.ticker, s.done)
	return nil
}

// Stop halts the loop and waits for an in-flight probe to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	s.cancel()
	s.ticker.Stop()
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// IsRunning returns whether the loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetInterval changes the probing interval, also while running.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	if s.running {
		s.ticker.Reset(d)
	}
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one probe. Failures are logged and leave the navigator
// state untouched.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.tracker.Tracking() {
		return
	}

	fix, err := s.locator.Locate(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("location probe failed", slog.Any("error", err))
		}
		return
	}

	if _, err := s.tracker.TrackFix(fix); err != nil {
		switch {
		case errors.Is(err, nav.ErrTrackingDisabled), errors.Is(err, nav.ErrStaleFix):
			s.logger.Debug("tracked fix not applied", slog.Any("error", err))
		default:
			s.logger.Warn("tracked fix rejected", slog.Any("error", err))
		}
	}
}
