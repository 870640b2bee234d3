package iolib

import "io"

// LimitReader reads exactly n bytes from r.
func LimitReader(r io.Reader, n uint64) io.Reader { return &LimitedReader{r, n} }

// LimitedReader is [io.LimitedReader] for a length that was announced up
// front: running out of data before N bytes is [io.ErrUnexpectedEOF].
type LimitedReader struct {
	R io.Reader // underlying reader
	N uint64    // bytes remaining
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > l.N {
		p = p[:l.N]
	}

	n, err = l.R.Read(p)
	l.N -= uint64(n)

	if err == io.EOF && l.N > 0 {
		err = io.ErrUnexpectedEOF
	}
	return
}
