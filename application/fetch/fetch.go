// Package fetch implements the fetch message model: requests and responses
// with single-consumption bodies, and a [Fetcher] that dispatches requests
// over a pluggable [Transport].
package fetch

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"network-fetch/application/fetch/body"
	"network-fetch/application/fetch/header"
	"network-fetch/application/fetch/metrics"
	"network-fetch/application/fetch/status"
	"network-fetch/lib/future"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

const (
	headerUserAgent = "user-agent"

	cacheBustingParam = "_"
)

// Dropped when a redirect turns the request into a GET.
var requestBodyHeaders = []string{
	"content-encoding",
	"content-language",
	"content-location",
	"content-length",
	"content-type",
}

type Fetcher struct {
	transport Transport

	opts Options

	logger  *slog.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(t Transport, logger *slog.Logger, clock clock.Clock, opts Options) *Fetcher {
	return &Fetcher{
		transport: t,
		opts:      opts,
		logger:    logger,
		clock:     clock,
	}
}

// WithMetrics makes f record every dispatch on m.
func (f *Fetcher) WithMetrics(m *metrics.Metrics) *Fetcher {
	f.metrics = m
	return f
}

// Fetch builds a request from input and init and dispatches it.
// Construction errors are returned directly.
func (f *Fetcher) Fetch(ctx context.Context, input Input, init RequestInit) (*future.Future[*Response], error) {
	req, err := NewRequest(input, init)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	return f.Do(ctx, req)
}

// Do dispatches req. Its body is read, so req cannot be dispatched twice
// unless it has none.
//
// The future resolves with the response of any completed exchange, whatever
// its status. It rejects with a *NetworkError otherwise.
func (f *Fetcher) Do(ctx context.Context, req *Request) (*future.Future[*Response], error) {
	target, err := f.resolveURL(req.url)
	if err != nil {
		return nil, err
	}

	if req.method == MethodGet || req.method == MethodHead {
		if req.cache == CacheNoStore || req.cache == CacheNoCache {
			bustCache(target, f.clock.Now())
		}
	}

	id := uuid.NewString()

	h := req.headers.Clone()
	if err := f.setDefaultHeaders(h, id); err != nil {
		return nil, err
	}

	var payload *future.Future[[]byte]
	if req.HasBody() {
		payload, err = req.Bytes()
		if err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
	}

	x := &exchange{
		method:      req.method,
		url:         target,
		header:      h,
		mode:        req.mode,
		credentials: req.credentials,
		redirect:    req.redirect,
	}
	logger := f.logger.With("id", id)

	return future.Go(func() (*Response, error) {
		if payload != nil {
			b, err := payload.Await(ctx)
			if err != nil {
				return nil, newNetworkError(errors.Wrap(err, "reading request body"))
			}
			x.body = b
		}

		return f.dispatch(ctx, logger, x)
	}), nil
}

func (f *Fetcher) dispatch(ctx context.Context, logger *slog.Logger, x *exchange) (*Response, error) {
	logger.Debug("dispatching request", "method", x.method, "url", x.url.String())

	start := f.clock.Now()
	elapsed := func() time.Duration { return f.clock.Since(start) }

	var res *Response
	err := f.observe(x.method, elapsed, func() (string, error) {
		r, err := f.roundTrip(ctx, logger, x)
		if err != nil {
			return "", err
		}
		res = r
		return status.Class(r.status), nil
	})
	if err != nil {
		logger.Warn("request failed", "error", err, "elapsed", elapsed())
		return nil, err
	}

	logger.Debug("request completed", "status", res.status, "elapsed", elapsed())
	return res, nil
}

// roundTrip runs the exchange and any redirects it is allowed to follow.
func (f *Fetcher) roundTrip(ctx context.Context, logger *slog.Logger, x *exchange) (*Response, error) {
	redirected := false
	for redirects := 0; ; redirects++ {
		if err := ctx.Err(); err != nil {
			return nil, newNetworkError(err)
		}

		raw, err := f.transport.RoundTrip(ctx, x.raw())
		if err != nil {
			return nil, newNetworkError(errors.Wrap(err, "round trip"))
		}
		if raw == nil {
			return nil, newNetworkError(errors.New("transport returned no response"))
		}

		loc, ok := location(raw.Header)
		if !status.IsRedirect(raw.Status) || !ok {
			return f.newResponse(logger, raw, x.url.String(), redirected), nil
		}
		discard(logger, raw)

		switch x.redirect {
		case RedirectManual:
			return opaqueRedirectResponse(x.url.String()), nil
		case RedirectError:
			return nil, newNetworkError(errors.Wrapf(ErrRedirectNotAllowed, "%d to %q", raw.Status, loc))
		}

		if redirects >= f.opts.maxRedirects() {
			return nil, newNetworkError(errors.Wrapf(ErrTooManyRedirects, "stopped after %d", redirects))
		}

		next, err := x.url.Parse(loc)
		if err != nil {
			return nil, newNetworkError(errors.Wrapf(ErrInvalidURL, "location %q: %s", loc, err))
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			return nil, newNetworkError(errors.Wrapf(ErrInvalidURL, "redirect to scheme %q", next.Scheme))
		}
		if err := toASCIIHost(next); err != nil {
			return nil, newNetworkError(err)
		}

		logger.Debug("following redirect", "status", raw.Status, "location", next.String())
		if f.metrics != nil {
			f.metrics.ObserveRedirect(strconv.Itoa(raw.Status))
		}

		x.redirectTo(raw.Status, next)
		redirected = true
	}
}

func (f *Fetcher) observe(method string, elapsed func() time.Duration, fn func() (string, error)) error {
	if f.metrics == nil {
		_, err := fn()
		return err
	}
	return f.metrics.ObserveFetch(method, elapsed, fn)
}

func (f *Fetcher) newResponse(logger *slog.Logger, raw *RawResponse, requestURL string, redirected bool) *Response {
	h, _ := header.New(nil)
	for _, e := range raw.Header {
		if err := h.Append(e.Name, e.Value); err != nil {
			logger.Warn("dropping malformed response header", "name", e.Name, "error", err)
		}
	}

	text := raw.StatusText
	if !f.opts.UseReceivedStatusText || text == "" {
		if registered := status.Text(raw.Status); registered != "" {
			text = registered
		}
	}

	var b body.Init
	if raw.Body != nil {
		if status.IsNullBody(raw.Status) {
			discard(logger, raw)
		} else {
			b = body.Stream(raw.Body)
		}
	}

	u := raw.URL
	if u == "" {
		u = requestURL
	}

	return &Response{
		message:    message{Body: body.New(b), headers: h},
		status:     raw.Status,
		statusText: text,
		typ:        ResponseTypeBasic,
		url:        u,
		redirected: redirected,
	}
}

func opaqueRedirectResponse(u string) *Response {
	r := ErrorResponse()
	r.typ = ResponseTypeOpaqueRedirect
	r.url = u
	return r
}

func (f *Fetcher) setDefaultHeaders(h *header.Headers, id string) error {
	defaults := []header.Entry{
		{Name: headerUserAgent, Value: f.opts.UserAgent},
		{Name: f.opts.RequestIDHeader, Value: id},
	}

	for _, e := range defaults {
		if e.Name == "" || e.Value == "" {
			continue
		}

		has, err := h.Has(e.Name)
		if err != nil {
			return errors.Wrapf(err, "setting default header %q", e.Name)
		}
		if has {
			continue
		}

		if err := h.Set(e.Name, e.Value); err != nil {
			return errors.Wrapf(err, "setting default header %q", e.Name)
		}
	}

	return nil
}

// resolveURL turns a request URL into the absolute URL to dispatch to.
func (f *Fetcher) resolveURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: %s", raw, err)
	}

	if !u.IsAbs() {
		if f.opts.BaseURL == "" {
			return nil, errors.Wrapf(ErrInvalidURL, "%q is relative and there is no base url", raw)
		}

		base, err := url.Parse(f.opts.BaseURL)
		if err != nil || !base.IsAbs() {
			return nil, errors.Wrapf(ErrInvalidURL, "base url %q", f.opts.BaseURL)
		}
		u = base.ResolveReference(u)
	}

	if err := toASCIIHost(u); err != nil {
		return nil, err
	}

	return u, nil
}

// toASCIIHost converts an internationalized host name to its ASCII form.
func toASCIIHost(u *url.URL) error {
	host := u.Hostname()
	if isASCII(host) {
		return nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return errors.Wrapf(ErrInvalidURL, "host %q: %s", host, err)
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(ascii, port)
	} else {
		u.Host = ascii
	}

	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// bustCache replaces or appends the "_" query parameter with the current
// time, so that caches between here and the origin miss.
func bustCache(u *url.URL, now time.Time) {
	param := cacheBustingParam + "=" + strconv.FormatInt(now.UnixMilli(), 10)

	if u.RawQuery == "" {
		u.RawQuery = param
		return
	}

	parts := strings.Split(u.RawQuery, "&")
	for idx, p := range parts {
		if p == cacheBustingParam || strings.HasPrefix(p, cacheBustingParam+"=") {
			parts[idx] = param
			u.RawQuery = strings.Join(parts, "&")
			return
		}
	}

	u.RawQuery += "&" + param
}

func location(entries []header.Entry) (string, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.Name, headerLocation) {
			return e.Value, true
		}
	}
	return "", false
}

func discard(logger *slog.Logger, raw *RawResponse) {
	if raw.Body == nil {
		return
	}
	if err := raw.Body.Close(); err != nil {
		logger.Debug("closing discarded response body", "error", err)
	}
}

// exchange is the state of a dispatch that changes across redirects.
type exchange struct {
	method string
	url    *url.URL
	header *header.Headers
	body   []byte

	mode        Mode
	credentials Credentials
	redirect    Redirect
}

func (x *exchange) raw() *RawRequest {
	return &RawRequest{
		Method:      x.method,
		URL:         x.url.String(),
		Header:      x.header.List(),
		Body:        x.body,
		Mode:        x.mode,
		Credentials: x.credentials,
		Redirect:    x.redirect,
	}
}

func (x *exchange) redirectTo(code int, next *url.URL) {
	switch {
	case code == status.SeeOther.Code && x.method != MethodGet && x.method != MethodHead,
		(code == status.MovedPermanently.Code || code == status.Found.Code) && x.method == MethodPost:
		x.method = MethodGet
		x.body = nil
		for _, name := range requestBodyHeaders {
			_ = x.header.Delete(name)
		}
	}

	x.url = next
}
