package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"network-fetch/application/http"
	"network-fetch/application/util/rule"
	bytesutil "network-fetch/util/bytes"

	"github.com/pkg/errors"
)

// Chunk size lines and trailer lines longer than this are rejected.
const maxLineLength = 4 << 10

type Chunk struct {
	Size       uint64
	Extensions [][2]string
}

// ChunkedReader converts a chunked message body into a byte stream.
type ChunkedReader struct {
	br    *bufio.Reader
	chunk *Chunk
	read  uint64 // reset for each chunk
	err   error

	// OnTrailers is called with the trailer section once the last chunk
	// was read.
	OnTrailers func(http.Fields)
}

var _ io.Reader = (*ChunkedReader)(nil)

func NewChunkedReader(br *bufio.Reader) *ChunkedReader {
	return &ChunkedReader{br: br}
}

func (cr *ChunkedReader) Read(b []byte) (int, error) {
	if cr.err != nil {
		return 0, cr.err
	}

	n, err := cr.read0(b)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, errLastChunk):
		err = io.EOF
	case errors.Is(err, io.EOF):
		// The body ended before the last chunk.
		err = io.ErrUnexpectedEOF
	}
	cr.err = err

	return n, err
}

var errLastChunk = errors.New("last chunk")

func (cr *ChunkedReader) read0(b []byte) (int, error) {
	if cr.chunk == nil {
		chunk, err := cr.decodeChunk()
		if err != nil {
			return 0, errors.Wrap(err, "decoding chunk")
		}

		if chunk.Size == 0 {
			if err := cr.decodeTrailers(); err != nil {
				return 0, errors.Wrap(err, "decoding trailers")
			}
			return 0, errLastChunk
		}

		cr.chunk = chunk
		cr.read = 0
	}

	remain := cr.chunk.Size - cr.read
	if uint64(len(b)) > remain {
		b = b[:remain]
	}

	n, err := cr.br.Read(b)
	cr.read += uint64(n)
	if err != nil {
		return n, errors.Wrap(err, "reading chunk data")
	}

	if cr.read == cr.chunk.Size {
		delim := make([]byte, len(rule.CRLF))
		if _, err := io.ReadFull(cr.br, delim); err != nil {
			return n, errors.Wrap(err, "reading chunk delimiter")
		}
		if !bytes.Equal(delim, rule.CRLF) {
			return n, errors.New("CRLF delimiter not found")
		}

		cr.chunk = nil
	}

	return n, nil
}

func (cr *ChunkedReader) decodeChunk() (*Chunk, error) {
	line, err := readLine(cr.br)
	if err != nil {
		return nil, err
	}

	parts := bytes.Split(line, []byte{';'})

	size, err := decodeChunkSize(bytes.TrimFunc(parts[0], rule.IsWhitespace))
	if err != nil {
		return nil, errors.Wrap(err, "decoding chunk size")
	}

	extensions := make([][2]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		k, v, _ := bytes.Cut(part, []byte{'='})
		// Trim BWS.
		k = bytes.TrimFunc(k, rule.IsWhitespace)
		v = bytes.TrimFunc(v, rule.IsWhitespace)

		extensions = append(extensions, [2]string{string(k), string(rule.Unquote(v))})
	}

	return &Chunk{Size: size, Extensions: extensions}, nil
}

func decodeChunkSize(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty chunk size")
	}

	size, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return 0, errors.Errorf("failed to decode hex: %q", b)
	}

	return size, nil
}

func (cr *ChunkedReader) decodeTrailers() error {
	fields := make(http.Fields, 0)
	for {
		line, err := readLine(cr.br)
		if err != nil {
			return errors.Wrap(err, "reading line")
		}

		if len(line) == 0 {
			break
		}

		field, err := http.ParseField(line)
		if err != nil {
			return errors.Wrap(err, "parsing field")
		}

		fields = append(fields, field)
	}

	if cr.OnTrailers != nil && len(fields) > 0 {
		cr.OnTrailers(fields)
	}

	return nil
}

// readLine reads until CRLF and cuts it.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := bytesutil.ReadUntil(br, rule.CRLF, maxLineLength)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return line[:len(line)-len(rule.CRLF)], nil
}
