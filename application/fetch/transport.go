package fetch

import (
	"context"
	"io"

	"network-fetch/application/fetch/header"
)

// RawRequest is a request as handed to a [Transport].
// URL is always absolute and Header is sorted by name.
type RawRequest struct {
	Method string
	URL    string
	Header []header.Entry
	Body   []byte

	Mode        Mode
	Credentials Credentials
	Redirect    Redirect
}

// RawResponse is what a [Transport] produced for a completed exchange.
// Body may be nil when there is no content. The caller closes it otherwise.
type RawResponse struct {
	Status     int
	StatusText string
	Header     []header.Entry
	Body       io.ReadCloser
	// URL is the address the response came from, if it differs from the
	// request URL.
	URL string
}

// Transport performs a single exchange. It must not follow redirects.
// Returning an error means no exchange completed.
type Transport interface {
	RoundTrip(ctx context.Context, req *RawRequest) (*RawResponse, error)
}

type TransportFunc func(ctx context.Context, req *RawRequest) (*RawResponse, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req *RawRequest) (*RawResponse, error) {
	return f(ctx, req)
}
