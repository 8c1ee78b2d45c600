package config

import (
	"fmt"
	"math"

	"github.com/urfave/cli/v2"
)

const (
	FlagConfig          = "config"
	FlagSocket          = "socket"
	FlagMetricsSocket   = "metrics-socket"
	FlagSynthetic       = "synthetic"
	FlagSampleInterval  = "sample-interval"
	FlagSamples         = "samples"
	FlagWindowCapacity  = "window-capacity"
	FlagDropThreshold   = "drop-threshold-ms"
	FlagMaxRequestBytes = "max-request-bytes"
	FlagAutoRegister    = "auto-register"
	FlagSessionID       = "session-id"
	FlagProcessID       = "process-id"
	FlagProcessName     = "process-name"
	FlagLogLevel        = "log-level"
	FlagLogFormat       = "log-format"
)

// Flags returns the daemon command line flags. Every flag can also be set
// with its KADENCE_* environment variable. Flags hold parse state, so a
// new slice is returned for every application.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Usage:   "path to a TOML configuration file",
			EnvVars: []string{"KADENCE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    FlagSocket,
			Usage:   "query socket path",
			EnvVars: []string{"KADENCE_SOCKET_PATH"},
		},
		&cli.StringFlag{
			Name:    FlagMetricsSocket,
			Usage:   "metrics socket path, empty to disable",
			EnvVars: []string{"KADENCE_METRICS_SOCKET_PATH"},
		},
		&cli.BoolFlag{
			Name:    FlagSynthetic,
			Usage:   "emit synthetic samples for the default session",
			EnvVars: []string{"KADENCE_SYNTHETIC"},
		},
		&cli.DurationFlag{
			Name:    FlagSampleInterval,
			Usage:   "synthetic sample interval",
			EnvVars: []string{"KADENCE_SAMPLE_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    FlagSamples,
			Usage:   "line-delimited JSON sample feed, - for stdin",
			EnvVars: []string{"KADENCE_SAMPLES_FILE"},
		},
		&cli.IntFlag{
			Name:    FlagWindowCapacity,
			Usage:   "samples retained per session",
			EnvVars: []string{"KADENCE_WINDOW_CAPACITY"},
		},
		&cli.Float64Flag{
			Name:    FlagDropThreshold,
			Usage:   "frame time in milliseconds counted as dropped",
			EnvVars: []string{"KADENCE_DROP_THRESHOLD_MS"},
		},
		&cli.IntFlag{
			Name:    FlagMaxRequestBytes,
			Usage:   "largest buffered partial request per connection",
			EnvVars: []string{"KADENCE_MAX_REQUEST_BYTES"},
		},
		&cli.BoolFlag{
			Name:    FlagAutoRegister,
			Usage:   "register unknown session ids found in the feed",
			EnvVars: []string{"KADENCE_AUTO_REGISTER"},
		},
		&cli.Uint64Flag{
			Name:    FlagSessionID,
			Usage:   "default session id",
			EnvVars: []string{"KADENCE_SESSION_ID"},
		},
		&cli.Int64Flag{
			Name:    FlagProcessID,
			Usage:   "pid of the monitored process",
			EnvVars: []string{"KADENCE_PROCESS_ID"},
		},
		&cli.StringFlag{
			Name:    FlagProcessName,
			Usage:   "name of the monitored process",
			EnvVars: []string{"KADENCE_PROCESS_NAME"},
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Usage:   "log level: debug, info, warn or error",
			EnvVars: []string{"KADENCE_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    FlagLogFormat,
			Usage:   "log format: text or json",
			EnvVars: []string{"KADENCE_LOG_FORMAT"},
		},
	}
}

// FromContext reads the configuration file named by the config flag and
// overlays the flags and environment variables that were set. The result
// is validated.
func FromContext(ctx *cli.Context) (*Config, error) {
	cfg, err := Read(ctx.String(FlagConfig))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFlags overrides the configuration with the flags set on the command
// line or through their environment variables.
func (c *Config) ApplyFlags(ctx *cli.Context) error {
	if ctx.IsSet(FlagSocket) {
		c.SocketPath = ctx.String(FlagSocket)
	}
	if ctx.IsSet(FlagMetricsSocket) {
		c.MetricsSocketPath = ctx.String(FlagMetricsSocket)
	}
	if ctx.IsSet(FlagSynthetic) {
		c.Synthetic = ctx.Bool(FlagSynthetic)
	}
	if ctx.IsSet(FlagSampleInterval) {
		c.SampleInterval = ctx.Duration(FlagSampleInterval)
	}
	if ctx.IsSet(FlagSamples) {
		c.SamplesFile = ctx.String(FlagSamples)
	}
	if ctx.IsSet(FlagWindowCapacity) {
		c.WindowCapacity = ctx.Int(FlagWindowCapacity)
	}
	if ctx.IsSet(FlagDropThreshold) {
		c.DropThresholdMs = ctx.Float64(FlagDropThreshold)
	}
	if ctx.IsSet(FlagMaxRequestBytes) {
		c.MaxRequestBytes = ctx.Int(FlagMaxRequestBytes)
	}
	if ctx.IsSet(FlagAutoRegister) {
		c.AutoRegister = ctx.Bool(FlagAutoRegister)
	}
	if ctx.IsSet(FlagSessionID) {
		c.Session.ID = ctx.Uint64(FlagSessionID)
	}
	if ctx.IsSet(FlagProcessID) {
		pid := ctx.Int64(FlagProcessID)
		if pid < 0 || pid > math.MaxInt32 {
			return fmt.Errorf("invalid %s: %d", FlagProcessID, pid)
		}
		c.Session.ProcessID = int32(pid)
	}
	if ctx.IsSet(FlagProcessName) {
		c.Session.ProcessName = ctx.String(FlagProcessName)
	}
	if ctx.IsSet(FlagLogLevel) {
		c.LogLevel = ctx.String(FlagLogLevel)
	}
	if ctx.IsSet(FlagLogFormat) {
		c.LogFormat = ctx.String(FlagLogFormat)
	}
	return nil
}
