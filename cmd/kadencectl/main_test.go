package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ext "github.com/reugn/kadence/extension"
	"github.com/reugn/kadence/internal/assert"
	"github.com/reugn/kadence/protocol"
	"github.com/reugn/kadence/session"
	"github.com/reugn/kadence/stats"
)

func startServer(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "kd")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	service := session.NewService(nil)
	_ = service.Register(session.DefaultID, 0, "synthetic")
	_ = service.Register(2, 42, "game")
	_ = service.Ingest(2, stats.FrameSample{TimestampNs: 1, FrameTimeMs: 25})

	path := filepath.Join(dir, "sock")
	server, err := ext.NewSocketServer(path, protocol.NewHandler(service))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(server.Close)
	return path
}

func TestRun_Once(t *testing.T) {
	path := startServer(t)

	var out bytes.Buffer
	err := newApp(&out).RunContext(context.Background(),
		[]string{"kadencectl", "--socket", path, "--session", "2"})
	if err != nil {
		t.Fatal(err)
	}

	var response protocol.LiveMetricsResponse
	if err := json.Unmarshal(out.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, response.ID)
	assert.Equal(t, 40.0, response.FPS)
}

func TestRun_Watch(t *testing.T) {
	path := startServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	var out bytes.Buffer
	err := newApp(&out).RunContext(ctx,
		[]string{"kadencectl", "--socket", path, "--type", "list_sessions", "--watch", "10ms"})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected repeated responses, got %d", len(lines))
	}
	var response protocol.SessionsResponse
	if err := json.Unmarshal([]byte(lines[1]), &response); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, response.ID)
	assert.Equal(t, 2, len(response.Sessions))
}

func TestRun_NoServer(t *testing.T) {
	err := newApp(io.Discard).RunContext(context.Background(),
		[]string{"kadencectl", "--socket", filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "failed to connect")
}

func TestRun_SocketFromEnv(t *testing.T) {
	t.Setenv("KADENCE_SOCKET_PATH", startServer(t))

	var out bytes.Buffer
	err := newApp(&out).RunContext(context.Background(),
		[]string{"kadencectl", "--type", "get_session_info"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, true, strings.Contains(out.String(), `"process_name":"synthetic"`))
}
