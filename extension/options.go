package extension

import (
	"context"
	"log/slog"
)

// options represents configuration options for kadence connectors.
type options struct {
	logger          *slog.Logger
	ctx             context.Context
	maxRequestBytes int
	readBufferSize  int
}

// makeDefaultOptions returns an options with default values.
func makeDefaultOptions() options {
	return options{
		logger:         slog.Default(),
		ctx:            context.Background(),
		readBufferSize: 4096,
	}
}

// Opt is a functional option type used to configure an options.
type Opt func(*options)

// WithLogger configures the options with a custom logger.
// If not specified, the default slog.Default() will be used.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithContext configures the options with a context.
// Source connectors stop producing samples and the socket server stops
// accepting connections when the context is canceled.
func WithContext(ctx context.Context) Opt {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithMaxRequestBytes limits the size of a buffered partial request on a
// server connection. A connection exceeding the limit is closed.
// If not specified, protocol.DefaultMaxRequestBytes is used.
func WithMaxRequestBytes(n int) Opt {
	return func(o *options) {
		o.maxRequestBytes = n
	}
}

// WithReadBufferSize sets the size of the per-connection read buffer.
// Non-positive values are ignored.
func WithReadBufferSize(n int) Opt {
	return func(o *options) {
		if n > 0 {
			o.readBufferSize = n
		}
	}
}
