package fetch

import (
	"net/url"

	"network-fetch/application/fetch/body"
	"network-fetch/application/fetch/header"
	"network-fetch/application/fetch/status"
	"network-fetch/application/util/rule"

	"github.com/pkg/errors"
)

type ResponseType string

const (
	ResponseTypeDefault        ResponseType = "default"
	ResponseTypeBasic          ResponseType = "basic"
	ResponseTypeCORS           ResponseType = "cors"
	ResponseTypeError          ResponseType = "error"
	ResponseTypeOpaque         ResponseType = "opaque"
	ResponseTypeOpaqueRedirect ResponseType = "opaqueredirect"
)

const headerLocation = "location"

type ResponseInit struct {
	// Status defaults to 200 when zero.
	Status int
	// StatusText defaults to "OK" when Status is zero as well.
	StatusText string
	Headers    header.Init
}

type Response struct {
	message

	status     int
	statusText string
	typ        ResponseType
	url        string
	redirected bool
}

func NewResponse(b body.Init, init ResponseInit) (*Response, error) {
	code, text := init.Status, init.StatusText
	if code == 0 {
		code = status.OK.Code
		if text == "" {
			text = status.OK.Text
		}
	} else if !status.IsValid(code) {
		return nil, errors.Wrapf(ErrInvalidStatus, "%d", code)
	}

	if !rule.IsValidReasonPhrase(text) {
		return nil, errors.Wrapf(ErrInvalidStatusText, "%q", text)
	}

	if !b.IsZero() && status.IsNullBody(code) {
		return nil, errors.Wrapf(ErrBodyNotAllowed, "status %d", code)
	}

	h, err := newHeaders(init.Headers)
	if err != nil {
		return nil, err
	}
	if err := inferContentType(h, b); err != nil {
		return nil, err
	}

	return &Response{
		message:    message{Body: body.New(b), headers: h},
		status:     code,
		statusText: text,
		typ:        ResponseTypeDefault,
	}, nil
}

// ErrorResponse is the response a failed network exchange stands for.
func ErrorResponse() *Response {
	h, _ := header.New(nil)
	return &Response{
		message: message{Body: body.New(body.Init{}), headers: h},
		typ:     ResponseTypeError,
	}
}

// RedirectResponse points at rawURL, which must be absolute.
func RedirectResponse(rawURL string, code int) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: %s", rawURL, err)
	}
	if !u.IsAbs() {
		return nil, errors.Wrapf(ErrInvalidURL, "%q is not absolute", rawURL)
	}

	if !status.IsRedirect(code) {
		return nil, errors.Wrapf(ErrInvalidRedirectStatus, "%d", code)
	}

	h, _ := header.New(nil)
	if err := h.Set(headerLocation, u.String()); err != nil {
		return nil, errors.Wrap(ErrInvalidURL, err.Error())
	}

	return &Response{
		message: message{Body: body.New(body.Init{}), headers: h},
		status:  code,
		typ:     ResponseTypeDefault,
	}, nil
}

// Clone copies r, body included. It fails once r's body was read.
func (r *Response) Clone() (*Response, error) {
	m, err := r.message.clone()
	if err != nil {
		return nil, errors.Wrap(err, "copying response body")
	}

	dup := *r
	dup.message = m
	return &dup, nil
}

func (r *Response) Status() int        { return r.status }
func (r *Response) StatusText() string { return r.statusText }
func (r *Response) Type() ResponseType { return r.typ }
func (r *Response) URL() string        { return r.url }
func (r *Response) Redirected() bool   { return r.redirected }

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool { return status.IsOK(r.status) }
