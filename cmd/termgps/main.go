package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-termgps/config"
	"go-termgps/logging"
	"go-termgps/nav"
	"go-termgps/provider"
	"go-termgps/web"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

// options are the command line settings that do not live in the config file.
type options struct {
	showVersion bool
	configFile  string
	envFile     string
	destination string
	track       bool
	quiet       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "termgps: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet defines the flags. Flags bound to settings only override
// them when given explicitly, see applyFlags.
func newFlagSet(opts *options, s *config.Settings, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("termgps", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&opts.showVersion, "version", false, "Show version information and exit")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file, reloaded on change")
	fs.StringVar(&opts.envFile, "env", ".env", "Environment file with TERMGPS_* overrides")
	fs.StringVar(&opts.destination, "dest", "", "Destination to route to on start (\"lat,lon\")")
	fs.BoolVar(&opts.track, "track", false, "Start with live tracking enabled")
	fs.BoolVar(&opts.quiet, "quiet", false, "Do not print status lines")

	fs.StringVar(&s.Location.SerialPort, "serial", s.Location.SerialPort, "Serial port of an NMEA GPS receiver (e.g., /dev/ttyUSB0, COM1)")
	fs.IntVar(&s.Location.BaudRate, "baud", s.Location.BaudRate, "Serial port baud rate")
	fs.StringVar(&s.Location.ReplayFile, "replay", s.Location.ReplayFile, "GPX track to replay as the position source")
	fs.BoolVar(&s.Location.ReplayLoop, "replay-loop", s.Location.ReplayLoop, "Loop the GPX replay continuously")
	fs.BoolVar(&s.Location.IPFallback, "ip-fallback", s.Location.IPFallback, "Fall back to IP geolocation")
	fs.StringVar(&s.Location.IPURL, "ip-url", s.Location.IPURL, "IP geolocation endpoint")
	fs.StringVar(&s.Route.GPXFile, "route", s.Route.GPXFile, "GPX route to follow instead of straight-line routing")
	fs.StringVar(&s.PlacesDB, "places", s.PlacesDB, "Saved places database (SQLite file or postgres:// URL)")
	fs.StringVar(&s.TrackLog, "record", s.TrackLog, "Record the driven track to this GPX file")
	fs.StringVar(&s.WebAddr, "web", s.WebAddr, "Serve the HTTP API on this address (e.g., :8080)")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&s.LogDir, "log-dir", s.LogDir, "Directory for the log file")
	fs.DurationVar(&s.Nav.RefreshInterval, "interval", s.Nav.RefreshInterval, "Tracking refresh interval")
	fs.Float64Var(&s.Nav.ArrivalRadius, "arrival-radius", s.Nav.ArrivalRadius, "Arrival radius in meters")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: termgps [options]\n")
		fmt.Fprintf(stderr, "\nTerminal GPS navigator\n")
		fmt.Fprintf(stderr, "Tracks your position, routes to a destination and projects it on a radar grid.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs
}

// applyFlags copies the explicitly given settings flags from flagged onto s.
func applyFlags(fs *flag.FlagSet, flagged config.Settings, s *config.Settings) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "serial":
			s.Location.SerialPort = flagged.Location.SerialPort
		case "baud":
			s.Location.BaudRate = flagged.Location.BaudRate
		case "replay":
			s.Location.ReplayFile = flagged.Location.ReplayFile
		case "replay-loop":
			s.Location.ReplayLoop = flagged.Location.ReplayLoop
		case "ip-fallback":
			s.Location.IPFallback = flagged.Location.IPFallback
		case "ip-url":
			s.Location.IPURL = flagged.Location.IPURL
		case "route":
			s.Route.GPXFile = flagged.Route.GPXFile
		case "places":
			s.PlacesDB = flagged.PlacesDB
		case "record":
			s.TrackLog = flagged.TrackLog
		case "web":
			s.WebAddr = flagged.WebAddr
		case "log-level":
			s.LogLevel = flagged.LogLevel
		case "log-dir":
			s.LogDir = flagged.LogDir
		case "interval":
			s.Nav.RefreshInterval = flagged.Nav.RefreshInterval
		case "arrival-radius":
			s.Nav.ArrivalRadius = flagged.Nav.ArrivalRadius
		}
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	flagged := config.Default()
	fs := newFlagSet(&opts, &flagged, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.showVersion {
		if Version != "dev" {
			fmt.Fprintf(stdout, "v%s\n", Version)
		} else {
			fmt.Fprintf(stdout, "%s\n", Commit)
		}
		return nil
	}

	if err := config.LoadEnv(opts.envFile); err != nil {
		return err
	}
	loader, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	settings := loader.Current()
	applyFlags(fs, flagged, &settings)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := logging.New(settings.LogLevel, settings.LogDir)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("termgps starting",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("build_date", BuildDate))

	if !opts.quiet {
		fmt.Fprintf(stderr, "Starting termgps %s\n", Version)
		fmt.Fprintf(stderr, "Log file: %s\n", logger.LogFile)
	}

	a, err := assemble(ctx, settings, logger.Logger, stderr, opts.quiet)
	if err != nil {
		return err
	}
	defer a.close()

	// Settings from the command line stay pinned; the file only retunes
	// the navigation thresholds.
	loader.Watch(func(s config.Settings) {
		applyFlags(fs, flagged, &s)
		if err := a.navigator.UpdateConfig(s.Nav); err != nil {
			logger.Warn("config reload rejected", slog.Any("error", err))
			return
		}
		a.scheduler.SetInterval(s.Nav.RefreshInterval)
		logger.Info("config reloaded")
	}, func(err error) {
		logger.Warn("config reload failed", slog.Any("error", err))
	})

	if !opts.quiet {
		a.navigator.OnFix(func(u nav.Update) {
			fmt.Fprintf(stdout, "[%s] %s %s | %s\n",
				u.Fix.Timestamp.Format("15:04:05"),
				u.Fix.Point, u.Fix.AccuracyLabel(), u.Status.Message)
		})
	}

	if _, err := a.ctrl.RefreshLocation(ctx); err != nil {
		fmt.Fprintf(stderr, "No initial position: %v\n", err)
	}
	if opts.destination != "" {
		dest, err := provider.ParsePoint(opts.destination)
		if err != nil {
			return err
		}
		route, err := a.ctrl.SetDestination(ctx, dest)
		if err != nil {
			return err
		}
		if !opts.quiet {
			fmt.Fprintf(stderr, "Route: %d steps, %s, about %s\n",
				route.NumSteps(), nav.FormatDistance(route.TotalMeters()),
				nav.FormatDuration(secondsToDuration(route.RemainingSeconds(0))))
		}
	}
	if opts.track {
		a.navigator.SetTracking(true)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	if settings.WebAddr != "" {
		if !opts.quiet {
			fmt.Fprintf(stderr, "HTTP API: http://%s/api/status\n", settings.WebAddr)
		}
		return web.NewServer(a.ctrl, logger.Logger).ListenAndServe(ctx, settings.WebAddr)
	}

	if !opts.quiet {
		fmt.Fprintf(stderr, "\nPress Ctrl+C to stop\n\n")
	}
	<-ctx.Done()
	return nil
}
