package bytesutil

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrTooLong = errors.New("delimiter not found within limit")

// ReadUntil reads from r until delim. The output will include delim.
//
// A non-zero limit bounds the output length; reading stops with [ErrTooLong]
// as soon as it is exceeded. EOF before any byte is read is returned as is,
// EOF in the middle of a line as [io.ErrUnexpectedEOF].
func ReadUntil(r *bufio.Reader, delim []byte, limit uint) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	for {
		b, err := r.ReadSlice(delim[len(delim)-1])
		buf.Write(b)

		if limit > 0 && uint(buf.Len()) > limit {
			return nil, ErrTooLong
		}

		switch {
		case err == nil:
			if bytes.HasSuffix(buf.Bytes(), delim) {
				return buf.Bytes(), nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if buf.Len() == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
