// Package transfer decodes the transfer codings of an HTTP/1.1 message body.
package transfer

import (
	"bufio"
	"io"
	"strings"

	"network-fetch/application/http"

	"github.com/pkg/errors"
)

type Coding string

const (
	CodingChunked  Coding = "chunked"
	CodingIdentity Coding = "identity"
)

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// ParseCodings splits Transfer-Encoding field values into codings, in the
// order they were applied.
func ParseCodings(values []string) []Coding {
	var codings []Coding
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			// Drop transfer-parameters, none of the supported codings take one.
			name, _, _ := strings.Cut(part, ";")
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || Coding(name) == CodingIdentity {
				continue
			}
			codings = append(codings, Coding(name))
		}
	}
	return codings
}

// Decode undoes codings on r.
// Only chunked is supported, and it must be the final coding.
// onTrailers, when not nil, receives the trailer section.
func Decode(r *bufio.Reader, codings []Coding, onTrailers func(http.Fields)) (io.Reader, error) {
	if len(codings) == 0 {
		return r, nil
	}

	if len(codings) > 1 || codings[0] != CodingChunked {
		return nil, errors.Wrapf(ErrUnsupportedCoding, "%v", codings)
	}

	cr := NewChunkedReader(r)
	cr.OnTrailers = onTrailers

	return cr, nil
}
