package http

import (
	"bufio"
	"io"

	"network-fetch/application/util/rule"

	"github.com/pkg/errors"
)

type EncodeOptions struct {
	// UseSoleLF specifies whether a single LF character should be used as a line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

var DefaultEncodeOptions = EncodeOptions{
	UseSoleLF: false,
}

type RequestEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{bw: bufio.NewWriter(w), opts: opts}
}

// Encode writes head followed by body and flushes.
// Framing fields for body are expected in head already.
func (re *RequestEncoder) Encode(head RequestHead, body []byte) error {
	if err := re.encodeRequestLine(head); err != nil {
		return errors.Wrap(err, "encoding request line")
	}

	if err := re.encodeFields(head.Fields); err != nil {
		return errors.Wrap(err, "encoding fields")
	}

	if _, err := re.bw.Write(body); err != nil {
		return errors.Wrap(err, "writing request body")
	}

	if err := re.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing request")
	}

	return nil
}

func (re *RequestEncoder) encodeRequestLine(head RequestHead) error {
	if !rule.IsValidToken(head.Method) {
		return errors.Errorf("method is not a valid token: %q", head.Method)
	}
	if head.Target == "" {
		return errors.New("request target should not be empty")
	}

	line := head.Method + " " + head.Target + " " + head.Version.String()

	return re.writeLine(line)
}

func (re *RequestEncoder) encodeFields(fields Fields) error {
	for _, field := range fields {
		if !rule.IsValidToken(field.Name) || !rule.IsValidFieldValue(field.Value) {
			return errors.Errorf("invalid field: %q", field.String())
		}
		if err := re.writeLine(field.String()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// An empty line ends the fields.
	if err := re.writeLine(""); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (re *RequestEncoder) writeLine(line string) error {
	if _, err := re.bw.WriteString(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	term := rule.CRLF
	if re.opts.UseSoleLF {
		term = term[1:]
	}

	if _, err := re.bw.Write(term); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}
