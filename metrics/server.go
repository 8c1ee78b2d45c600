package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reugn/kadence/internal/unixsock"
)

const shutdownTimeout = 5 * time.Second

// NewHandler returns an HTTP handler exposing the registry at /metrics.
func NewHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes the registry over HTTP on the unix socket at path until the
// context is canceled.
func Serve(ctx context.Context, path string, registry *prometheus.Registry,
	logger *slog.Logger) error {
	listener, err := unixsock.Listen(path)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	server := &http.Server{
		Handler:           NewHandler(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("Serving metrics", slog.String("socket", path))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
