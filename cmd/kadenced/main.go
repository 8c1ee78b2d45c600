package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/reugn/kadence"
	"github.com/reugn/kadence/config"
	ext "github.com/reugn/kadence/extension"
	"github.com/reugn/kadence/flow"
	"github.com/reugn/kadence/metrics"
	"github.com/reugn/kadence/protocol"
	"github.com/reugn/kadence/session"
	"github.com/reugn/kadence/stats"
)

const syntheticProcessName = "synthetic"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "kadenced: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kadenced",
		Usage: "Frame timing statistics daemon",
		Flags: config.Flags(),
		Action: func(c *cli.Context) error {
			cfg, err := config.FromContext(c)
			if err != nil {
				return err
			}
			return run(c.Context, cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	analyzer := stats.NewAnalyzer(
		stats.WithCapacity(cfg.WindowCapacity),
		stats.WithDropThreshold(cfg.DropThresholdMs),
	)
	service := session.NewService(analyzer,
		session.WithLogger(logger),
		session.WithAutoRegister(cfg.AutoRegister),
	)
	processName := resolveProcessName(ctx, cfg.Session, logger)
	if err := service.Register(cfg.Session.ID, cfg.Session.ProcessID, processName); err != nil {
		return err
	}

	handler := protocol.NewHandler(service,
		protocol.WithDefaultSession(cfg.Session.ID),
		protocol.WithHandlerLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)

	server, err := ext.NewSocketServer(cfg.SocketPath, handler,
		ext.WithContext(gctx),
		ext.WithLogger(logger),
		ext.WithMaxRequestBytes(cfg.MaxRequestBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}
	g.Go(server.AwaitCompletion)

	if cfg.MetricsSocketPath != "" {
		registry := metrics.NewRegistry()
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsSocketPath, registry, logger)
		})
	}

	g.Go(func() error {
		return runPipeline(gctx, cfg, service, logger)
	})

	logger.Info("Started",
		slog.String("socket", cfg.SocketPath),
		slog.Uint64("session", cfg.Session.ID),
		slog.String("process", processName))

	err = g.Wait()
	logger.Info("Stopped")
	return err
}

// resolveProcessName returns the configured process name, looking it up by
// pid when only the pid is configured.
func resolveProcessName(ctx context.Context, s config.Session, logger *slog.Logger) string {
	if s.ProcessName != "" {
		return s.ProcessName
	}
	if s.ProcessID > 0 {
		name, err := ext.LookupProcess(ctx, s.ProcessID)
		if err == nil {
			return name
		}
		logger.Warn("Failed to resolve process name",
			slog.Int("pid", int(s.ProcessID)),
			slog.Any("error", err))
		return ""
	}
	return syntheticProcessName
}

// runPipeline streams samples from the configured sources into the
// session service until the sources are exhausted or the context is
// canceled.
func runPipeline(ctx context.Context, cfg *config.Config, service *session.Service,
	logger *slog.Logger) error {
	var flows []kadence.Flow
	var feedFilter *flow.Filter[*ext.SessionSample]

	if cfg.Synthetic {
		source := ext.NewSyntheticSource(cfg.SampleInterval,
			ext.WithContext(ctx), ext.WithLogger(logger))
		flows = append(flows, source.
			Via(flow.NewMap(ext.SyntheticSample(cfg.Session.ID), 1)))
	}

	if cfg.SamplesFile != "" {
		reader, err := openFeed(cfg.SamplesFile)
		if err != nil {
			return err
		}
		source, err := ext.NewReaderSource(reader, ext.ReadLine,
			ext.WithContext(ctx), ext.WithLogger(logger))
		if err != nil {
			return err
		}
		feedFilter = flow.NewFilter(ext.NonNilSample, 1)
		flows = append(flows, source.
			Via(flow.NewMap(ext.FeedDecoder(cfg.Session.ID, logger), 1)).
			Via(feedFilter))
	}

	stream := flows[0]
	if len(flows) > 1 {
		stream = flow.Merge(flows...)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.To(ext.NewSessionSink(service, ext.WithLogger(logger)))
	}()

	// a feed blocked on stdin does not observe cancellation
	select {
	case <-done:
		logger.Info("Sample sources exhausted")
	case <-ctx.Done():
	}
	if feedFilter != nil {
		logger.Info("Feed records processed",
			slog.Uint64("accepted", feedFilter.Passed()),
			slog.Uint64("skipped", feedFilter.Rejected()))
	}
	return nil
}

func openFeed(path string) (io.ReadCloser, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}
	return file, nil
}
