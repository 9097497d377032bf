package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds the service's construction-time parameters.
// Precedence, lowest to highest: built-in defaults, config file,
// QUARTERDECK_* environment variables.
type Settings struct {
	ServiceName   string
	Host          string
	Port          int
	LogLevel      string
	BusBuffer     int
	SweepInterval time.Duration
	BindingsFile  string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		ServiceName:   "quarterdeck",
		Host:          "127.0.0.1",
		Port:          8000,
		LogLevel:      "info",
		BusBuffer:     256,
		SweepInterval: 5 * time.Second,
	}
}

// LoadSettings resolves settings from defaults, an optional config file,
// and the environment. An empty path skips the file layer; the
// QUARTERDECK_CONFIG_FILE variable supplies the path when set.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	if env := os.Getenv("QUARTERDECK_CONFIG_FILE"); env != "" {
		path = env
	}
	if path != "" {
		cfg, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		s.applyConfig(cfg)
	}

	s.applyEnv()
	return s, nil
}

// applyConfig overlays values from a loaded config file. The file uses
// service/bus/state/paths sections.
func (s *Settings) applyConfig(cfg Config) {
	service := cfg.Section("service")
	s.ServiceName = service.String("name", s.ServiceName)
	s.Host = service.String("host", s.Host)
	s.Port = service.Int("port", s.Port)
	s.LogLevel = service.String("log_level", s.LogLevel)

	s.BusBuffer = cfg.Section("bus").Int("buffer_size", s.BusBuffer)
	s.SweepInterval = cfg.Section("state").Duration("sweep_interval", s.SweepInterval)
	s.BindingsFile = cfg.Section("paths").String("bindings_file", s.BindingsFile)
}

// applyEnv overlays QUARTERDECK_* environment variables, the highest
// precedence layer.
func (s *Settings) applyEnv() {
	if host := os.Getenv("QUARTERDECK_HOST"); host != "" {
		s.Host = host
	}
	if portStr := os.Getenv("QUARTERDECK_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			s.Port = port
		}
	}
	if level := os.Getenv("QUARTERDECK_LOG_LEVEL"); level != "" {
		s.LogLevel = level
	}
	if bindings := os.Getenv("QUARTERDECK_BINDINGS_FILE"); bindings != "" {
		s.BindingsFile = bindings
	}
	if sweep := os.Getenv("QUARTERDECK_SWEEP_INTERVAL"); sweep != "" {
		if d, err := time.ParseDuration(sweep); err == nil {
			s.SweepInterval = d
		}
	}
}

// Addr returns the host:port listen address.
func (s Settings) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// SlogLevel maps the configured log level name onto slog's levels.
// Unknown names fall back to info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
