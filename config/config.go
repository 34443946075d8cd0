// Package config loads application settings from an optional YAML file,
// a .env file and TERMGPS_* environment variables, and reloads the file
// when it changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-termgps/nav"
)

// EnvPrefix prefixes every environment override, e.g. TERMGPS_NAV_ARRIVAL_RADIUS.
const EnvPrefix = "TERMGPS"

// LocationConfig selects the position sources.
type LocationConfig struct {
	SerialPort string  `mapstructure:"serial_port"`
	BaudRate   int     `mapstructure:"baud_rate"`
	ReplayFile string  `mapstructure:"replay_file"`
	ReplayLoop bool    `mapstructure:"replay_loop"`
	Accuracy   float64 `mapstructure:"replay_accuracy"`
	IPFallback bool    `mapstructure:"ip_fallback"`
	IPURL      string  `mapstructure:"ip_url"`
}

// RouteConfig selects the router.
type RouteConfig struct {
	GPXFile   string  `mapstructure:"gpx_file"`
	CruiseKmh float64 `mapstructure:"cruise_kmh"`
}

// Settings holds the entire configuration.
type Settings struct {
	Nav      nav.Config     `mapstructure:"nav"`
	Location LocationConfig `mapstructure:"location"`
	Route    RouteConfig    `mapstructure:"route"`
	PlacesDB string         `mapstructure:"places_db"`
	TrackLog string         `mapstructure:"track_log"`
	WebAddr  string         `mapstructure:"web_addr"`
	LogLevel string         `mapstructure:"log_level"`
	LogDir   string         `mapstructure:"log_dir"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Nav: nav.DefaultConfig(),
		Location: LocationConfig{
			BaudRate:   9600,
			Accuracy:   5,
			IPFallback: true,
		},
		Route:    RouteConfig{CruiseKmh: 30},
		LogLevel: "info",
	}
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	if err := s.Nav.Validate(); err != nil {
		return err
	}
	if s.Location.BaudRate <= 0 {
		return fmt.Errorf("baud rate %d: %w", s.Location.BaudRate, ErrInvalidSettings)
	}
	if s.Route.CruiseKmh <= 0 {
		return fmt.Errorf("cruise speed %v: %w", s.Route.CruiseKmh, ErrInvalidSettings)
	}
	return nil
}

// ErrInvalidSettings reports a setting outside its range.
var ErrInvalidSettings = errors.New("invalid settings")

// Loader holds the current settings and refreshes them on file changes.
type Loader struct {
	v       *viper.Viper
	path    string
	mu      sync.RWMutex
	current Settings
}

// Load reads path, which may be empty, on top of the defaults and the
// environment.
func Load(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	l := &Loader{v: v, path: path}
	s, err := l.decode()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	l.current = s
	return l, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("nav.arrival_radius", d.Nav.ArrivalRadius)
	v.SetDefault("nav.prepare_distance", d.Nav.PrepareDistance)
	v.SetDefault("nav.stationary_below_kmh", d.Nav.StationaryBelowKmh)
	v.SetDefault("nav.radar_scale", d.Nav.RadarScale)
	v.SetDefault("nav.radar_radius", d.Nav.RadarRadius)
	v.SetDefault("nav.refresh_interval", d.Nav.RefreshInterval)
	v.SetDefault("nav.stop_on_arrival", d.Nav.StopOnArrival)

	v.SetDefault("location.serial_port", d.Location.SerialPort)
	v.SetDefault("location.baud_rate", d.Location.BaudRate)
	v.SetDefault("location.replay_file", d.Location.ReplayFile)
	v.SetDefault("location.replay_loop", d.Location.ReplayLoop)
	v.SetDefault("location.replay_accuracy", d.Location.Accuracy)
	v.SetDefault("location.ip_fallback", d.Location.IPFallback)
	v.SetDefault("location.ip_url", d.Location.IPURL)

	v.SetDefault("route.gpx_file", d.Route.GPXFile)
	v.SetDefault("route.cruise_kmh", d.Route.CruiseKmh)

	v.SetDefault("places_db", d.PlacesDB)
	v.SetDefault("track_log", d.TrackLog)
	v.SetDefault("web_addr", d.WebAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_dir", d.LogDir)
}

func (l *Loader) decode() (Settings, error) {
	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Current returns the latest valid settings.
func (l *Loader) Current() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch reloads the file whenever it changes and passes valid settings to
// onChange. Invalid edits are reported to onError and otherwise ignored.
// It does nothing when no file was loaded.
func (l *Loader) Watch(onChange func(Settings), onError func(error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		s, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		l.mu.Lock()
		l.current = s
		l.mu.Unlock()
		if onChange != nil {
			onChange(s)
		}
	})
	l.v.WatchConfig()
}

// LoadEnv loads the given .env files into the process environment without
// overriding variables already set. Missing files are skipped; with no
// arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env %s: %w", f, err)
		}
	}
	return nil
}
