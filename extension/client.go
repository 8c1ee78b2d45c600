package extension

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/reugn/kadence/protocol"
)

// Client is a connection to a SocketServer. Requests are answered in
// order; a Client must not be used by multiple goroutines concurrently.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	once   sync.Once
}

type clientRequest struct {
	ID        int     `json:"id"`
	Type      string  `json:"type"`
	SessionID *uint64 `json:"session_id,omitempty"`
}

// Dial connects to the server listening on the unix socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Query sends a request of the given type and returns the raw response
// line. A nil sessionID targets the server's default session.
func (c *Client) Query(ctx context.Context, id int, requestType string,
	sessionID *uint64) ([]byte, error) {
	line, err := protocol.Encode(clientRequest{
		ID:        id,
		Type:      requestType,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	return c.Roundtrip(ctx, line)
}

// Roundtrip writes a single request line and reads the response line.
// A trailing newline is appended to line when missing. Canceling ctx
// interrupts a pending write or read; the Client should be closed after
// an interrupted Roundtrip.
func (c *Client) Roundtrip(ctx context.Context, line []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		line = append(line, '\n')
	}

	// the zero deadline clears a previous one
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := c.conn.Write(line); err != nil {
		return nil, interrupted(ctx, fmt.Errorf("failed to write request: %w", err))
	}
	response, err := c.ReadLine()
	if err != nil {
		return nil, interrupted(ctx, err)
	}
	return response, nil
}

// interrupted reports the context error in place of the i/o timeout caused
// by cancellation.
func interrupted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// ReadLine reads the next response line, including the trailing newline.
func (c *Client) ReadLine() ([]byte, error) {
	response, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return response, nil
}

// Write sends raw bytes to the server without waiting for a response.
func (c *Client) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Close closes the connection. It is safe to call Close multiple times.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		err = c.conn.Close()
	})
	return err
}
