package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/reugn/kadence/protocol"
	"github.com/reugn/kadence/session"
	"github.com/reugn/kadence/stats"
)

const (
	defaultSampleInterval = 16 * time.Millisecond
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// Session identifies the session registered at start-up.
type Session struct {
	ID          uint64 `toml:"id"`
	ProcessID   int32  `toml:"process_id"`
	ProcessName string `toml:"process_name"`
}

// Config holds the daemon configuration.
type Config struct {
	SocketPath        string `toml:"socket_path"`
	MetricsSocketPath string `toml:"metrics_socket_path"`

	// Synthetic enables the built-in sample clock for the default session.
	Synthetic      bool          `toml:"synthetic"`
	SampleInterval time.Duration `toml:"sample_interval"`
	// SamplesFile is a line-delimited JSON sample feed; "-" reads stdin.
	SamplesFile string `toml:"samples_file"`

	WindowCapacity  int     `toml:"window_capacity"`
	DropThresholdMs float64 `toml:"drop_threshold_ms"`
	MaxRequestBytes int     `toml:"max_request_bytes"`
	AutoRegister    bool    `toml:"auto_register"`

	Session Session `toml:"session"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		SocketPath:      filepath.Join(os.TempDir(), "kadence"),
		Synthetic:       true,
		SampleInterval:  defaultSampleInterval,
		WindowCapacity:  stats.DefaultCapacity,
		DropThresholdMs: stats.DefaultDropThresholdMs,
		MaxRequestBytes: protocol.DefaultMaxRequestBytes,
		Session: Session{
			ID: session.DefaultID,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

// Load returns the validated result of Read.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read returns the default configuration overlaid with the TOML file at
// path, when path is not empty. Callers applying command line and
// environment overrides validate the result themselves.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile decodes the TOML file at path into the configuration. Keys
// missing from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate reports the first invalid configuration value.
func (c *Config) Validate() error {
	switch {
	case c.SocketPath == "":
		return errors.New("socket_path is empty")
	case c.SocketPath == c.MetricsSocketPath:
		return errors.New("socket_path and metrics_socket_path must differ")
	case !c.Synthetic && c.SamplesFile == "":
		return errors.New("no sample source: synthetic is disabled and samples_file is empty")
	case c.Synthetic && c.SampleInterval <= 0:
		return fmt.Errorf("invalid sample_interval: %s", c.SampleInterval)
	case c.WindowCapacity < 1:
		return fmt.Errorf("invalid window_capacity: %d", c.WindowCapacity)
	case !(c.DropThresholdMs > 0) || math.IsInf(c.DropThresholdMs, 0):
		return fmt.Errorf("invalid drop_threshold_ms: %v", c.DropThresholdMs)
	case c.MaxRequestBytes < 1:
		return fmt.Errorf("invalid max_request_bytes: %d", c.MaxRequestBytes)
	case c.Session.ProcessID < 0:
		return fmt.Errorf("invalid session process_id: %d", c.Session.ProcessID)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}
	return nil
}

// Logger returns a structured logger writing to w with the configured
// level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log_level: %q", s)
	}
	return level, nil
}
