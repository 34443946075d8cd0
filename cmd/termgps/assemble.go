package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"go-termgps/app"
	"go-termgps/config"
	"go-termgps/nav"
	"go-termgps/provider"
)

const (
	searchCacheSize = 64
	searchCacheTTL  = 10 * time.Minute
)

// assembly is the wired application.
type assembly struct {
	navigator *nav.Navigator
	ctrl      *app.Controller
	scheduler *provider.Scheduler
	closers   []io.Closer
}

func (a *assembly) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// assemble builds the navigator and its collaborators from settings.
// Optional sources that fail to open are reported and skipped.
func assemble(ctx context.Context, s config.Settings, logger *slog.Logger, stderr io.Writer, quiet bool) (*assembly, error) {
	navigator, err := nav.NewNavigator(s.Nav, logger)
	if err != nil {
		return nil, fmt.Errorf("create navigator: %w", err)
	}
	a := &assembly{navigator: navigator}
	say := func(format string, args ...any) {
		if !quiet {
			fmt.Fprintf(stderr, format, args...)
		}
	}

	locator, err := buildLocator(ctx, s.Location, logger, a, say)
	if err != nil {
		a.close()
		return nil, err
	}

	var (
		router   provider.Router = provider.DirectRouter{CruiseKmh: s.Route.CruiseKmh}
		catalog                  = provider.DefaultCatalog()
		geocoder provider.MultiGeocoder
		places   app.PlaceStore
	)
	if s.Route.GPXFile != "" {
		gr, err := provider.NewGPXRouter(s.Route.GPXFile)
		if err != nil {
			a.close()
			return nil, err
		}
		gr.CruiseKmh = s.Route.CruiseKmh
		router = gr
		name := gr.Name
		if name == "" {
			name = "Route end"
		}
		catalog = append(catalog, provider.Place{Name: name, Point: gr.Destination()})
		say("Route: %s from %s\n", name, s.Route.GPXFile)
	}

	if s.PlacesDB != "" {
		store, err := provider.OpenPlaceStore(ctx, s.PlacesDB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, store)
		geocoder = append(geocoder, store)
		places = store
	}
	geocoder = append(geocoder, catalog)

	if s.TrackLog != "" {
		rec, err := provider.NewTrackRecorder(s.TrackLog, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, rec)
		navigator.OnFix(rec.Record)
		say("Recording track to: %s\n", s.TrackLog)
	}

	a.ctrl, err = app.New(navigator, app.Options{
		Locator:  locator,
		Router:   router,
		Geocoder: provider.NewCachedGeocoder(geocoder, searchCacheSize, searchCacheTTL),
		Places:   places,
		Logger:   logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.scheduler = provider.NewScheduler(locator, navigator, s.Nav.RefreshInterval, logger)
	return a, nil
}

// buildLocator chains the configured sources, most precise first.
func buildLocator(ctx context.Context, s config.LocationConfig, logger *slog.Logger, a *assembly, say func(string, ...any)) (provider.Locator, error) {
	var chain provider.Chain

	if s.SerialPort != "" {
		sl := provider.NewSerialLocator(s.SerialPort, s.BaudRate, logger)
		if err := sl.Start(ctx); err != nil {
			logger.Warn("serial receiver unavailable", slog.Any("error", err))
			say("Serial receiver unavailable: %v\n", err)
		} else {
			a.closers = append(a.closers, sl)
			chain = append(chain, sl)
			say("GPS receiver: %s at %d baud\n", s.SerialPort, s.BaudRate)
		}
	}

	if s.ReplayFile != "" {
		rl, err := provider.NewReplayLocator(s.ReplayFile, s.ReplayLoop, s.Accuracy)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rl)
		say("Replaying track: %s\n", s.ReplayFile)
	}

	if s.IPFallback {
		chain = append(chain, provider.NewIPLocator(s.IPURL))
	}

	if len(chain) == 0 {
		say("No position source configured\n")
	}
	return chain, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s)) * time.Second
}
