package protocol

import (
	"bytes"
	"errors"
)

// DefaultMaxRequestBytes is the default upper bound of a buffered partial
// request.
const DefaultMaxRequestBytes = 64 * 1024

// ErrFrameTooLarge is returned by Framer.Feed when the buffered partial
// request exceeds the configured limit. The connection cannot recover from
// it and should be closed.
var ErrFrameTooLarge = errors.New("request frame too large")

// Framer splits a byte stream into newline-delimited request messages.
// Every connection owns its own Framer; it is not safe for concurrent use.
type Framer struct {
	buf      []byte
	maxBytes int
}

// NewFramer returns a new Framer. A non-positive maxBytes selects
// DefaultMaxRequestBytes.
func NewFramer(maxBytes int) *Framer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBytes
	}
	return &Framer{maxBytes: maxBytes}
}

// Feed appends p to the accumulation buffer and returns all the complete
// messages it now holds, in order. Messages are trimmed of surrounding
// whitespace; empty messages are skipped. The returned slices do not alias
// the internal buffer.
func (f *Framer) Feed(p []byte) ([][]byte, error) {
	f.buf = append(f.buf, p...)

	var messages [][]byte
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}

		line := bytes.TrimSpace(f.buf[:i])
		if len(line) > 0 {
			messages = append(messages, bytes.Clone(line))
		}
		f.buf = f.buf[i+1:]
	}

	if len(f.buf) > f.maxBytes {
		f.Reset()
		return messages, ErrFrameTooLarge
	}

	// release the consumed prefix of the backing array
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return messages, nil
}

// Buffered returns the number of bytes of the pending partial message.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset discards any buffered bytes.
func (f *Framer) Reset() {
	f.buf = nil
}
