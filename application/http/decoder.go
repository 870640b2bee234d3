package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"network-fetch/application/util/rule"
	bytesutil "network-fetch/util/bytes"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies whether a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// LenientWhitespace replaces all [rule.Whitespaces] into [rule.SP].
	// And also trims preceding and trailing whitespace.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-3
	LenientWhitespace bool

	// MaxFieldLineLength sets the limit of field line length.
	MaxFieldLineLength uint

	// MaxFieldCount sets the limit of fields in a single head.
	MaxFieldCount uint

	// MaxStatusLineLength sets the limit of status line length.
	MaxStatusLineLength uint
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:         false,
	LenientWhitespace:   false,
	MaxFieldLineLength:  16 << 10,
	MaxFieldCount:       256,
	MaxStatusLineLength: 8 << 10,
}

var (
	ErrMissingCRBeforeLF   = errors.New("missing CR before LF")
	ErrStatusLineTooLong   = errors.New("status line length exceeds limit")
	ErrMalformedStatusLine = errors.New("status line is malformed")
	ErrFieldLineTooLong    = errors.New("field line length exceeds limit")
	ErrMalformedFieldLine  = errors.New("field line is malformed")
	ErrTooManyFields       = errors.New("number of fields exceeds limit")
)

type ResponseDecoder struct {
	br   *bufio.Reader
	opts DecodeOptions
}

func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{br: bufio.NewReader(r), opts: opts}
}

// Reader returns the buffered reader positioned right after the last
// decoded head. Response content is read from it.
func (rd *ResponseDecoder) Reader() *bufio.Reader { return rd.br }

// Decode reads a single response head into h.
func (rd *ResponseDecoder) Decode(h *ResponseHead) error {
	if err := rd.decodeStatusLine(h); err != nil {
		return errors.Wrap(err, "parsing status line")
	}

	fields, err := rd.decodeFields()
	if err != nil {
		return errors.Wrap(err, "parsing fields")
	}
	h.Fields = fields

	return nil
}

func (rd *ResponseDecoder) readLine(limit uint) ([]byte, error) {
	b, err := bytesutil.ReadUntil(rd.br, []byte{rule.LF}, limit)
	if err != nil {
		return nil, err
	}

	b = b[:len(b)-1] // Remove LF.

	if !rd.opts.AllowSoleLF {
		if len(b) == 0 || b[len(b)-1] != rule.CR {
			return nil, ErrMissingCRBeforeLF
		}
		b = b[:len(b)-1] // Remove CR.
	} else {
		b = bytes.TrimSuffix(b, []byte{rule.CR})
	}

	if rd.opts.LenientWhitespace {
		for _, c := range rule.Whitespaces {
			b = bytes.ReplaceAll(b, []byte{c}, []byte{rule.SP})
		}
		return bytes.Trim(b, string([]byte{rule.SP})), nil
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
	return bytes.ReplaceAll(b, []byte{rule.CR}, []byte{rule.SP}), nil
}

func (rd *ResponseDecoder) decodeStatusLine(h *ResponseHead) error {
	var line []byte
	for {
		b, err := rd.readLine(rd.opts.MaxStatusLineLength)
		if err != nil {
			if errors.Is(err, bytesutil.ErrTooLong) {
				return ErrStatusLineTooLong
			}
			return errors.Wrap(err, "reading line")
		}

		// An empty line can be received before message.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
		if len(b) > 0 {
			line = b
			break
		}
	}

	if err := parseStatusLine(line, h); err != nil {
		return errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	return nil
}

func parseStatusLine(line []byte, h *ResponseHead) error {
	parts := bytes.SplitN(line, []byte{rule.SP}, 3)
	if len(parts) < 2 {
		return errors.Errorf("too few parts: %q", line)
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return errors.Wrap(err, "parsing version")
	}

	code := string(parts[1])
	statusCode, err := strconv.Atoi(code)
	if err != nil || len(code) != 3 || statusCode < 100 {
		return errors.Errorf("status code is malformed: %q", code)
	}

	// reason-phrase is optional, and so is the space before it.
	var reasonPhrase string
	if len(parts) == 3 {
		reasonPhrase = string(parts[2])
	}
	if !rule.IsValidReasonPhrase(reasonPhrase) {
		return errors.Errorf("reason phrase is malformed: %q", reasonPhrase)
	}

	h.Version = ver
	h.StatusCode = statusCode
	h.ReasonPhrase = reasonPhrase

	return nil
}

func (rd *ResponseDecoder) decodeFields() (Fields, error) {
	fields := make(Fields, 0)
	for {
		fieldLine, err := rd.readLine(rd.opts.MaxFieldLineLength)
		if err != nil {
			switch {
			case errors.Is(err, bytesutil.ErrTooLong):
				return nil, ErrFieldLineTooLong
			case errors.Is(err, io.EOF):
				// The head is not complete yet.
				err = io.ErrUnexpectedEOF
			}
			return nil, errors.Wrap(err, "reading line")
		}

		if len(fieldLine) == 0 {
			// An empty line. This means that there are no more fields.
			return fields, nil
		}

		if rd.opts.MaxFieldCount > 0 && uint(len(fields)) >= rd.opts.MaxFieldCount {
			return nil, ErrTooManyFields
		}

		field, err := ParseField(fieldLine)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedFieldLine, err.Error())
		}

		fields = append(fields, field)
	}
}
