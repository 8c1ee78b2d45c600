package extension

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"

	"github.com/reugn/kadence"
	"github.com/reugn/kadence/flow"
)

// ElementReader reads the next element from the buffered reader.
// It returns io.EOF, possibly together with a final element, when the
// stream ends.
type ElementReader func(*bufio.Reader) ([]byte, error)

// ReadLine is an ElementReader returning newline-delimited elements with
// surrounding whitespace removed.
func ReadLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadBytes('\n')
	return bytes.TrimSpace(line), err
}

// ReaderSource represents an inbound connector that reads elements from an
// io.ReadCloser. It uses an ElementReader function to split the stream.
type ReaderSource struct {
	reader        io.ReadCloser
	elementReader ElementReader
	out           chan any

	opts options
}

var _ kadence.Source = (*ReaderSource)(nil)

// NewReaderSource returns a new ReaderSource connector.
// A nil elementReader selects ReadLine.
func NewReaderSource(reader io.ReadCloser, elementReader ElementReader,
	opts ...Opt) (*ReaderSource, error) {
	if reader == nil {
		return nil, errors.New("reader is nil")
	}
	if elementReader == nil {
		elementReader = ReadLine
	}

	readerSource := &ReaderSource{
		reader:        reader,
		elementReader: elementReader,
		out:           make(chan any),
		opts:          makeDefaultOptions(),
	}

	// apply functional options to configure the source
	for _, opt := range opts {
		opt(&readerSource.opts)
	}

	// asynchronously send element bytes downstream
	go readerSource.process()

	return readerSource, nil
}

func (s *ReaderSource) process() {
	defer func() {
		if err := s.reader.Close(); err != nil {
			s.opts.logger.Error("Failed to close reader", slog.Any("error", err))
		}
		s.opts.logger.Info("Closed reader")
		close(s.out)
	}()

	buffered := bufio.NewReaderSize(s.reader, s.opts.readBufferSize)
	for s.opts.ctx.Err() == nil {
		element, err := s.elementReader(buffered)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.opts.logger.Info("Reader finished")
				s.emitElement(element)
			} else {
				s.opts.logger.Error("Failed to read element", slog.Any("error", err))
			}
			return
		}

		s.emitElement(element)
	}
	s.opts.logger.Info("Context canceled", slog.Any("error", s.opts.ctx.Err()))
}

// emitElement sends a non-empty element downstream unless the context is
// canceled.
func (s *ReaderSource) emitElement(element []byte) {
	if len(element) == 0 {
		return
	}
	select {
	case s.out <- element:
	case <-s.opts.ctx.Done():
	}
}

// Via asynchronously streams data to the given Flow and returns it.
func (s *ReaderSource) Via(operator kadence.Flow) kadence.Flow {
	flow.DoStream(s, operator)
	return operator
}

// Out returns the output channel of the ReaderSource connector.
func (s *ReaderSource) Out() <-chan any {
	return s.out
}
