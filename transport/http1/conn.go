package http1

import (
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"network-fetch/application/fetch"
	"network-fetch/application/fetch/header"
	"network-fetch/application/fetch/status"
	"network-fetch/application/http"
	"network-fetch/application/http/transfer"
	iolib "network-fetch/lib/io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Fields the transport owns. Values from the request for these are dropped.
var connectionFields = []string{
	"connection",
	"content-length",
	"host",
	"keep-alive",
	"te",
	"trailer",
	"transfer-encoding",
	"upgrade",
}

type conn struct {
	con net.Conn
	dec *http.ResponseDecoder

	logger *slog.Logger
	clock  clock.Clock
	opts   Options

	stopWatch func() bool
	closeOnce sync.Once
	closeErr  error
}

func newConn(con net.Conn, logger *slog.Logger, clock clock.Clock, opts Options) *conn {
	return &conn{
		con:    con,
		dec:    http.NewResponseDecoder(con, opts.Receive.Decode),
		logger: logger,
		clock:  clock,
		opts:   opts,
	}
}

func (c *conn) roundTrip(req *fetch.RawRequest, u *url.URL) (*fetch.RawResponse, error) {
	if err := c.writeRequest(req, u); err != nil {
		return nil, errors.Wrap(err, "writing request")
	}

	res, err := c.readResponse(req.Method)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	return res, nil
}

func (c *conn) writeRequest(req *fetch.RawRequest, u *url.URL) error {
	head := http.RequestHead{
		Method:  req.Method,
		Target:  u.RequestURI(),
		Version: http.Version11,
		Fields:  requestFields(req, u),
	}

	if d := c.opts.Timeout.Write; d > 0 {
		if err := c.con.SetWriteDeadline(c.clock.Now().Add(d)); err != nil {
			return errors.Wrap(err, "setting write deadline")
		}
	}

	enc := http.NewRequestEncoder(c.con, c.opts.Send.Encode)
	return enc.Encode(head, req.Body)
}

func requestFields(req *fetch.RawRequest, u *url.URL) http.Fields {
	fields := http.Fields{{Name: "Host", Value: u.Host}}

	for _, e := range req.Header {
		if isConnectionField(e.Name) {
			continue
		}
		fields = append(fields, http.Field{Name: header.Canonical(e.Name), Value: e.Value})
	}

	// A request without content still announces its length when the method
	// usually carries some, so that the server does not wait for it.
	if len(req.Body) > 0 || req.Method == fetch.MethodPost || req.Method == fetch.MethodPut || req.Method == fetch.MethodPatch {
		fields = append(fields, http.Field{Name: "Content-Length", Value: strconv.Itoa(len(req.Body))})
	}

	return append(fields, http.Field{Name: "Connection", Value: "close"})
}

func isConnectionField(name string) bool {
	for _, f := range connectionFields {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func (c *conn) readResponse(method string) (*fetch.RawResponse, error) {
	var head http.ResponseHead
	for {
		if err := c.setReadDeadline(); err != nil {
			return nil, err
		}

		if err := c.dec.Decode(&head); err != nil {
			return nil, errors.Wrap(err, "decoding response head")
		}

		if !head.IsInterim() {
			break
		}
		c.logger.Debug("skipping interim response", "status", head.StatusCode)
	}

	if head.StatusCode == status.SwitchingProtocols.Code {
		return nil, ErrProtocolSwitch
	}

	r, err := c.bodyReader(method, head)
	if err != nil {
		return nil, errors.Wrap(err, "framing response body")
	}

	res := &fetch.RawResponse{
		Status:     head.StatusCode,
		StatusText: head.ReasonPhrase,
		Header:     make([]header.Entry, 0, len(head.Fields)),
	}
	for _, f := range head.Fields {
		res.Header = append(res.Header, header.Entry{Name: f.Name, Value: f.Value})
	}

	if r == nil {
		c.close()
	} else {
		res.Body = &body{r: r, c: c}
	}

	return res, nil
}

// bodyReader frames the response content that follows head.
// It returns nil when there is none.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func (c *conn) bodyReader(method string, head http.ResponseHead) (io.Reader, error) {
	br := c.dec.Reader()

	if method == fetch.MethodHead ||
		head.StatusCode == status.NoContent.Code ||
		head.StatusCode == status.NotModified.Code {
		return nil, nil
	}

	if te := head.Fields.Values("Transfer-Encoding"); len(te) > 0 {
		codings := transfer.ParseCodings(te)
		if len(codings) == 0 {
			// Only identity. The message ends when the server closes.
			return br, nil
		}

		return transfer.Decode(br, codings, func(trailers http.Fields) {
			c.logger.Debug("ignoring trailers", "count", len(trailers))
		})
	}

	if cl := head.Fields.Values("Content-Length"); len(cl) > 0 {
		n, err := parseContentLength(cl)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return iolib.LimitReader(br, n), nil
	}

	// Neither transfer-encoding nor content-length exists.
	// The message is finished when server closes connection.
	return br, nil
}

// parseContentLength accepts repeated Content-Length values only when they
// all agree.
func parseContentLength(values []string) (uint64, error) {
	var (
		n     uint64
		found bool
	)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)

			parsed, err := strconv.ParseUint(part, 10, 63)
			if err != nil {
				return 0, errors.Errorf("invalid content-length: %q", part)
			}
			if found && parsed != n {
				return 0, errors.Errorf("conflicting content-length: %v", values)
			}
			n, found = parsed, true
		}
	}
	return n, nil
}

func (c *conn) setReadDeadline() error {
	d := c.opts.Timeout.Read
	if d <= 0 {
		return nil
	}

	if err := c.con.SetReadDeadline(c.clock.Now().Add(d)); err != nil {
		return errors.Wrap(err, "setting read deadline")
	}
	return nil
}

func (c *conn) close() error {
	c.closeOnce.Do(func() {
		if c.stopWatch != nil {
			c.stopWatch()
		}
		c.closeErr = c.con.Close()
	})
	return c.closeErr
}

// body is the response content. Closing it closes the connection.
type body struct {
	r io.Reader
	c *conn
}

func (b *body) Read(p []byte) (int, error) {
	if err := b.c.setReadDeadline(); err != nil {
		return 0, err
	}
	return b.r.Read(p)
}

func (b *body) Close() error {
	return b.c.close()
}
