package extension

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reugn/kadence/internal/unixsock"
	"github.com/reugn/kadence/metrics"
	"github.com/reugn/kadence/protocol"
)

// RequestHandler turns one request message into one encoded response line.
type RequestHandler interface {
	Handle(message []byte) []byte
}

var _ RequestHandler = (*protocol.Handler)(nil)

// SocketServer serves the query protocol on a local unix domain socket.
// Every accepted connection is served by its own goroutine with its own
// protocol.Framer; requests on a connection are answered in order.
type SocketServer struct {
	listener net.Listener
	handler  RequestHandler

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	err    error

	// accept retry policy
	minAcceptDelay    time.Duration
	maxAcceptDelay    time.Duration
	maxAcceptFailures int

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}

	opts options
}

// NewSocketServer binds the socket at path and starts accepting
// connections. A stale socket file at path is replaced. The server stops
// when the context configured with WithContext is canceled or Close is
// called.
func NewSocketServer(path string, handler RequestHandler, opts ...Opt) (*SocketServer, error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}

	listener, err := unixsock.Listen(path)
	if err != nil {
		return nil, err
	}

	server := newSocketServer(listener, handler, opts...)
	server.opts.logger.Info("Listening", slog.String("socket", path))
	server.start()

	return server, nil
}

func newSocketServer(listener net.Listener, handler RequestHandler, opts ...Opt) *SocketServer {
	server := &SocketServer{
		listener:          listener,
		handler:           handler,
		conns:             make(map[net.Conn]struct{}),
		minAcceptDelay:    5 * time.Millisecond,
		maxAcceptDelay:    time.Second,
		maxAcceptFailures: 120,
		done:              make(chan struct{}),
		opts:              makeDefaultOptions(),
	}

	// apply functional options to configure the server
	for _, opt := range opts {
		opt(&server.opts)
	}
	return server
}

func (s *SocketServer) start() {
	s.wg.Add(1)
	go s.acceptConnections()

	// await the context cancellation and then shut down the server
	go func() {
		select {
		case <-s.opts.ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}

// Addr returns the path of the listening socket.
func (s *SocketServer) Addr() string {
	return s.listener.Addr().String()
}

// Close stops accepting connections, closes all open connections and
// removes the socket file. It is safe to call Close multiple times.
func (s *SocketServer) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		conns := make([]net.Conn, 0, len(s.conns))
		for conn := range s.conns {
			conns = append(conns, conn)
		}
		s.mu.Unlock()

		if err := s.listener.Close(); err != nil {
			s.opts.logger.Warn("Failed to close listener", slog.Any("error", err))
		}
		for _, conn := range conns {
			_ = conn.Close()
		}
		close(s.done)
	})
}

// AwaitCompletion blocks until the server has been closed and every
// connection goroutine has returned. It returns the error that stopped the
// server, or nil when it was closed.
func (s *SocketServer) AwaitCompletion() error {
	<-s.done
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// acceptConnections accepts until the listener is closed. Accept errors
// such as running out of file descriptors are retried with a capped
// backoff; the server shuts down with an error once maxAcceptFailures
// consecutive attempts have failed.
func (s *SocketServer) acceptConnections() {
	defer s.wg.Done()

	var (
		delay    time.Duration
		failures int
	)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			failures++
			if failures >= s.maxAcceptFailures {
				s.opts.logger.Error("Accept failed, shutting down",
					slog.Int("attempts", failures), slog.Any("error", err))
				s.fail(fmt.Errorf("accept failed %d times: %w", failures, err))
				return
			}

			delay = min(max(2*delay, s.minAcceptDelay), s.maxAcceptDelay)
			s.opts.logger.Warn("Accept failed, retrying",
				slog.Duration("delay", delay), slog.Any("error", err))
			select {
			case <-time.After(delay):
				continue
			case <-s.done:
				return
			}
		}
		delay, failures = 0, 0

		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go s.serveConnection(conn)
	}
}

// fail records the error returned by AwaitCompletion and closes the server.
func (s *SocketServer) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.Close()
}

// track registers an accepted connection. It reports false once the
// server is closed.
func (s *SocketServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *SocketServer) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// serveConnection reads newline-delimited requests from the connection and
// writes one response line per request until the client disconnects, a
// write fails or the partial request exceeds the size limit.
func (s *SocketServer) serveConnection(conn net.Conn) {
	logger := s.opts.logger.With(slog.String("conn", uuid.NewString()))
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	logger.Debug("Client connected")

	defer func() {
		s.untrack(conn)
		_ = conn.Close()
		metrics.ConnectionsActive.Dec()
		logger.Debug("Client disconnected")
		s.wg.Done()
	}()

	framer := protocol.NewFramer(s.opts.maxRequestBytes)
	buf := make([]byte, s.opts.readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			messages, frameErr := framer.Feed(buf[:n])
			for _, message := range messages {
				if _, err := conn.Write(s.handler.Handle(message)); err != nil {
					logger.Warn("Failed to write response", slog.Any("error", err))
					return
				}
			}
			if frameErr != nil {
				logger.Warn("Closing connection", slog.Any("error", frameErr))
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("Read failed", slog.Any("error", err))
			}
			return
		}
	}
}
