// Package body implements the single-consumption body shared by requests
// and responses.
//
// A body can be read through exactly one of its extraction methods, once.
// Extraction fails synchronously when the body was already used; everything
// that can go wrong while producing the payload is reported through the
// returned future instead.
package body

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"sync/atomic"

	"network-fetch/lib/future"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyConsumed = errors.New("body has already been consumed")
	ErrMalformedJSON   = errors.New("body is not valid json")
	ErrMalformedForm   = errors.New("body is not a valid url-encoded form")
	ErrClosed          = errors.New("body source is closed")
)

type Body struct {
	source Source // nil for a null body.
	used   atomic.Bool
}

func New(init Init) *Body {
	return &Body{source: init.source}
}

// BodyUsed reports whether an extraction method was called.
func (b *Body) BodyUsed() bool { return b.used.Load() }

// HasBody reports whether the body is non-null.
func (b *Body) HasBody() bool { return b.source != nil }

// Bytes extracts the payload as raw bytes.
func (b *Body) Bytes() (*future.Future[[]byte], error) {
	return consume(b, func(p []byte) ([]byte, error) { return p, nil })
}

func (b *Body) Text() (*future.Future[string], error) {
	return consume(b, func(p []byte) (string, error) { return string(p), nil })
}

// JSON extracts the payload and decodes it into generic JSON values.
func (b *Body) JSON() (*future.Future[any], error) {
	return consume(b, func(p []byte) (any, error) {
		var v any
		if err := json.Unmarshal(p, &v); err != nil {
			return nil, errors.Wrap(ErrMalformedJSON, err.Error())
		}
		return v, nil
	})
}

// Form extracts the payload as url-encoded form fields.
func (b *Body) Form() (*future.Future[url.Values], error) {
	return consume(b, func(p []byte) (url.Values, error) {
		v, err := url.ParseQuery(string(bytes.TrimSpace(p)))
		if err != nil {
			return nil, errors.Wrap(ErrMalformedForm, err.Error())
		}
		return v, nil
	})
}

// Clone duplicates an unused body. Both bodies can then be consumed
// independently.
func (b *Body) Clone() (*Body, error) {
	if b.used.Load() {
		return nil, ErrAlreadyConsumed
	}
	if b.source == nil {
		return &Body{}, nil
	}

	dup, err := b.source.Clone()
	if err != nil {
		return nil, errors.Wrap(err, "duplicating body source")
	}

	return &Body{source: dup}, nil
}

// Close releases the source without consuming the body.
func (b *Body) Close() error {
	if c, ok := b.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// consume marks b as used and settles the future with the converted payload.
// Of concurrent callers exactly one passes the compare-and-swap.
func consume[T any](b *Body, convert func([]byte) (T, error)) (*future.Future[T], error) {
	if !b.used.CompareAndSwap(false, true) {
		return nil, ErrAlreadyConsumed
	}

	src := b.source
	if src == nil {
		// Nothing to read, so the result is known already.
		v, err := convert(nil)
		if err != nil {
			return future.Rejected[T](err), nil
		}
		return future.Resolved(v), nil
	}

	return future.Go(func() (T, error) {
		p, err := src.Snapshot()
		if err != nil {
			var zero T
			return zero, err
		}
		return convert(p)
	}), nil
}
