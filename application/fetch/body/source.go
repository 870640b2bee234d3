package body

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Source is where a body reads its payload from.
type Source interface {
	// Snapshot returns the whole payload.
	Snapshot() ([]byte, error)
	// Clone returns an independent duplicate without consuming the receiver.
	Clone() (Source, error)
}

// bytesSource is an immutable in-memory payload.
type bytesSource struct{ b []byte }

var _ Source = bytesSource{}

func (s bytesSource) Snapshot() ([]byte, error) { return bytes.Clone(s.b), nil }

// The payload is never mutated, so duplicates can share it.
func (s bytesSource) Clone() (Source, error) { return s, nil }

// streamSource reads its payload from r exactly once.
// Cloning buffers the rest of r so that both sides get their own cursor.
type streamSource struct {
	mu sync.Mutex

	r        io.Reader
	buf      []byte
	buffered bool
	err      error
}

var _ Source = (*streamSource)(nil)

func newStreamSource(r io.Reader) *streamSource {
	return &streamSource{r: r}
}

func (s *streamSource) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bufferLocked(); err != nil {
		return nil, err
	}

	return bytes.Clone(s.buf), nil
}

func (s *streamSource) Clone() (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bufferLocked(); err != nil {
		return nil, err
	}

	return bytesSource{b: s.buf}, nil
}

// Close releases the underlying reader without reading it.
func (s *streamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffered {
		return nil
	}
	s.buffered = true
	s.err = ErrClosed

	return closeReader(s.r)
}

func (s *streamSource) bufferLocked() error {
	if s.buffered {
		return s.err
	}
	s.buffered = true

	b, err := io.ReadAll(s.r)
	if cerr := closeReader(s.r); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "closing stream")
	}
	if err != nil {
		s.err = errors.Wrap(err, "reading stream")
		return s.err
	}

	s.buf = b
	return nil
}

func closeReader(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
