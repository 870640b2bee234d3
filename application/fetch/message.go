package fetch

import (
	"network-fetch/application/fetch/body"
	"network-fetch/application/fetch/header"

	"github.com/pkg/errors"
)

const headerContentType = "content-type"

// message is what requests and responses have in common.
// The embedded body provides the extraction methods.
type message struct {
	*body.Body
	headers *header.Headers
}

// Headers returns the message's own header set. Changes are visible to
// later dispatches of the same message.
func (m *message) Headers() *header.Headers { return m.headers }

func (m *message) clone() (message, error) {
	b, err := m.Body.Clone()
	if err != nil {
		return message{}, err
	}
	return message{Body: b, headers: m.headers.Clone()}, nil
}

// newHeaders builds the header set of a message.
func newHeaders(init header.Init) (*header.Headers, error) {
	h, err := header.New(init)
	if err != nil {
		return nil, errors.Wrap(err, "creating headers")
	}
	return h, nil
}

// inferContentType sets the type the body init implies unless the caller
// already supplied one.
func inferContentType(h *header.Headers, init body.Init) error {
	typ := init.ContentType()
	if typ == "" {
		return nil
	}

	has, err := h.Has(headerContentType)
	if err != nil || has {
		return err
	}

	return errors.Wrap(h.Set(headerContentType, typ), "setting inferred content type")
}
