package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"go-termgps/nav"
)

// SerialLocator reads NMEA 0183 from a GPS receiver and keeps the most
// recent position. Locate never blocks on the port.
type SerialLocator struct {
	portName string
	baudRate int
	// MaxAge bounds how old the held position may be before Locate
	// reports ErrNoPosition.
	MaxAge time.Duration

	mu     sync.RWMutex
	latest *nav.Fix
	hdop   float64
	cancel context.CancelFunc
	done   chan struct{}

	now    func() time.Time
	logger *slog.Logger
}

// NewSerialLocator creates a locator for the given port. Call Start to
// open the port.
func NewSerialLocator(portName string, baudRate int, logger *slog.Logger) *SerialLocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialLocator{
		portName: portName,
		baudRate: baudRate,
		MaxAge:   10 * time.Second,
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens the serial port and reads sentences until ctx is done or
// Close is called.
func (s *SerialLocator) Start(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: s.baudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.portName, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		port.Close()
	}()
	go func() {
		defer close(s.done)
		if err := s.Consume(port); err != nil && ctx.Err() == nil {
			s.logger.Warn("serial reader stopped", slog.String("port", s.portName), slog.Any("error", err))
		}
	}()

	s.logger.Info("serial gps opened", slog.String("port", s.portName), slog.Int("baud", s.baudRate))
	return nil
}

// Consume reads NMEA lines from r until EOF. Undecodable lines are skipped.
func (s *SerialLocator) Consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.handleLine(scanner.Text())
	}
	return scanner.Err()
}

func (s *SerialLocator) handleLine(line string) {
	sentence, err := ParseSentence(line)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) && !errors.Is(err, ErrNoSatelliteFix) {
			s.logger.Debug("skipping nmea line", slog.String("line", line), slog.Any("error", err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// RMC carries no HDOP; reuse the last one reported by GGA.
	if sentence.HDOP > 0 {
		s.hdop = sentence.HDOP
	} else {
		sentence.HDOP = s.hdop
	}
	s.latest = &nav.Fix{
		Point:          sentence.Point,
		AccuracyMeters: sentence.AccuracyMeters(),
		Source:         nav.SourceNativeGPS,
		Timestamp:      s.now(),
	}
}

// Locate returns the latest decoded position.
func (s *SerialLocator) Locate(ctx context.Context) (nav.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nav.Fix{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nav.Fix{}, fmt.Errorf("serial %s: %w", s.portName, ErrNoPosition)
	}
	if s.MaxAge > 0 && s.now().Sub(s.latest.Timestamp) > s.MaxAge {
		return nav.Fix{}, fmt.Errorf("serial %s: last sentence too old: %w", s.portName, ErrNoPosition)
	}
	return *s.latest, nil
}

// Close stops the reader and closes the port.
func (s *SerialLocator) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
