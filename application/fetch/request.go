package fetch

import (
	"slices"
	"strings"

	"network-fetch/application/fetch/body"
	"network-fetch/application/fetch/header"
	"network-fetch/application/util/rule"

	"github.com/pkg/errors"
)

const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
)

var forbiddenMethods = []string{"CONNECT", "TRACE", "TRACK"}

const DefaultReferrer = "about:client"

type Mode string

const (
	ModeCORS       Mode = "cors"
	ModeNoCORS     Mode = "no-cors"
	ModeSameOrigin Mode = "same-origin"
	ModeNavigate   Mode = "navigate"
)

type Credentials string

const (
	CredentialsOmit       Credentials = "omit"
	CredentialsSameOrigin Credentials = "same-origin"
	CredentialsInclude    Credentials = "include"
)

type Cache string

const (
	CacheDefault      Cache = "default"
	CacheNoStore      Cache = "no-store"
	CacheReload       Cache = "reload"
	CacheNoCache      Cache = "no-cache"
	CacheForceCache   Cache = "force-cache"
	CacheOnlyIfCached Cache = "only-if-cached"
)

type Redirect string

const (
	RedirectFollow Redirect = "follow"
	RedirectError  Redirect = "error"
	RedirectManual Redirect = "manual"
)

// Input is what a request is built from. A *Request is copied, anything else
// is taken as a URL through its String method.
type Input interface {
	String() string
}

// URL is a plain string input.
type URL string

func (u URL) String() string { return string(u) }

// RequestInit overrides the defaults, or what is copied from an input
// request. Zero fields are left alone.
type RequestInit struct {
	Method string
	// Headers replaces the whole header set when non-nil.
	Headers header.Init
	Body    body.Init

	Referrer    string
	Mode        Mode
	Credentials Credentials
	Cache       Cache
	Redirect    Redirect
}

type Request struct {
	message

	method string
	url    string

	referrer    string
	mode        Mode
	credentials Credentials
	cache       Cache
	redirect    Redirect
}

func NewRequest(input Input, init RequestInit) (*Request, error) {
	if input == nil {
		return nil, errors.Wrap(ErrInvalidURL, "no input given")
	}

	r := &Request{
		method:      MethodGet,
		referrer:    DefaultReferrer,
		mode:        ModeCORS,
		credentials: CredentialsSameOrigin,
		cache:       CacheDefault,
		redirect:    RedirectFollow,
	}

	src, isRequest := input.(*Request)
	if isRequest && src == nil {
		return nil, errors.Wrap(ErrInvalidURL, "nil request")
	}

	if isRequest {
		r.method = src.method
		r.url = src.url
		r.referrer = src.referrer
		r.mode = src.mode
		r.credentials = src.credentials
		r.cache = src.cache
		r.redirect = src.redirect
		r.headers = src.headers.Clone()
	} else {
		r.url = input.String()
	}

	if err := r.apply(init); err != nil {
		return nil, err
	}

	if err := r.attachBody(src, init.Body); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Request) apply(init RequestInit) error {
	if init.Method != "" {
		method, err := normalizeMethod(init.Method)
		if err != nil {
			return err
		}
		r.method = method
	}

	if init.Referrer != "" {
		r.referrer = init.Referrer
	}

	if init.Mode != "" {
		if !slices.Contains([]Mode{ModeCORS, ModeNoCORS, ModeSameOrigin, ModeNavigate}, init.Mode) {
			return errors.Wrapf(ErrInvalidOption, "mode %q", init.Mode)
		}
		r.mode = init.Mode
	}
	if init.Credentials != "" {
		if !slices.Contains([]Credentials{CredentialsOmit, CredentialsSameOrigin, CredentialsInclude}, init.Credentials) {
			return errors.Wrapf(ErrInvalidOption, "credentials %q", init.Credentials)
		}
		r.credentials = init.Credentials
	}
	if init.Cache != "" {
		if !slices.Contains([]Cache{
			CacheDefault, CacheNoStore, CacheReload, CacheNoCache, CacheForceCache, CacheOnlyIfCached,
		}, init.Cache) {
			return errors.Wrapf(ErrInvalidOption, "cache %q", init.Cache)
		}
		r.cache = init.Cache
	}
	if init.Redirect != "" {
		if !slices.Contains([]Redirect{RedirectFollow, RedirectError, RedirectManual}, init.Redirect) {
			return errors.Wrapf(ErrInvalidOption, "redirect %q", init.Redirect)
		}
		r.redirect = init.Redirect
	}

	switch {
	case init.Headers != nil:
		h, err := newHeaders(init.Headers)
		if err != nil {
			return err
		}
		r.headers = h
	case r.headers == nil:
		r.headers, _ = header.New(nil)
	}

	return nil
}

// attachBody installs b, or a duplicate of the body of src when b is absent.
func (r *Request) attachBody(src *Request, b body.Init) error {
	switch {
	case !b.IsZero():
		if !methodAllowsBody(r.method) {
			return errors.Wrapf(ErrBodyNotAllowed, "%s request", r.method)
		}
		if err := inferContentType(r.headers, b); err != nil {
			return err
		}
		r.Body = body.New(b)

	case src != nil && src.HasBody():
		if !methodAllowsBody(r.method) {
			return errors.Wrapf(ErrBodyNotAllowed, "%s request", r.method)
		}
		dup, err := src.Body.Clone()
		if err != nil {
			return errors.Wrap(err, "copying request body")
		}
		r.Body = dup

	default:
		r.Body = body.New(body.Init{})
	}

	return nil
}

// Clone copies r, body included. It fails once r's body was read.
func (r *Request) Clone() (*Request, error) {
	return NewRequest(r, RequestInit{})
}

func (r *Request) Method() string           { return r.method }
func (r *Request) URL() string              { return r.url }
func (r *Request) Referrer() string         { return r.referrer }
func (r *Request) Mode() Mode               { return r.mode }
func (r *Request) Credentials() Credentials { return r.credentials }
func (r *Request) Cache() Cache             { return r.cache }
func (r *Request) Redirect() Redirect       { return r.redirect }

// String returns the URL, so a request is itself an [Input].
func (r *Request) String() string { return r.url }

func normalizeMethod(method string) (string, error) {
	if !rule.IsValidToken(method) {
		return "", errors.Wrapf(ErrInvalidMethod, "%q", method)
	}

	method = strings.ToUpper(method)
	if slices.Contains(forbiddenMethods, method) {
		return "", errors.Wrapf(ErrForbiddenMethod, "%q", method)
	}

	return method, nil
}

func methodAllowsBody(method string) bool {
	return method != MethodGet && method != MethodHead
}
