// Package http1 is a [fetch.Transport] speaking HTTP/1.1, one connection per
// exchange.
package http1

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/url"

	"network-fetch/application/fetch"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Dialer opens connections. [net.Dialer] satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

var (
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrProtocolSwitch    = errors.New("protocol switch is not supported")
)

type Transport struct {
	dialer Dialer

	opts Options

	logger *slog.Logger
	clock  clock.Clock
}

var _ fetch.Transport = (*Transport)(nil)

func New(d Dialer, logger *slog.Logger, clock clock.Clock, opts Options) *Transport {
	return &Transport{
		dialer: d,
		opts:   opts,
		logger: logger,
		clock:  clock,
	}
}

// RoundTrip sends req on a new connection and reads the response head.
// The connection is closed once the response body is closed, or right away
// when there is none. A done ctx closes it too.
func (t *Transport) RoundTrip(ctx context.Context, req *fetch.RawRequest) (*fetch.RawResponse, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}

	con, err := t.dial(ctx, u)
	if err != nil {
		return nil, err
	}

	c := newConn(con, t.logger.With("addr", con.RemoteAddr().String()), t.clock, t.opts)
	c.stopWatch = context.AfterFunc(ctx, func() {
		c.logger.Debug("context done, closing connection")
		c.close()
	})

	res, err := c.roundTrip(req, u)
	if err != nil {
		c.close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, err.Error())
		}
		return nil, err
	}

	return res, nil
}

func (t *Transport) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	addr, err := address(u)
	if err != nil {
		return nil, err
	}

	if d := t.opts.Timeout.Dial; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = t.clock.WithTimeout(ctx, d)
		defer cancel()
	}

	con, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	if u.Scheme != "https" {
		return con, nil
	}

	cfg := t.opts.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}

	tlsCon := tls.Client(con, cfg)
	if err := tlsCon.HandshakeContext(ctx); err != nil {
		con.Close()
		return nil, errors.Wrapf(err, "tls handshake with %s", addr)
	}

	return tlsCon, nil
}

// address is host:port of u, with the port defaulted from the scheme.
func address(u *url.URL) (string, error) {
	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		if port == "" {
			port = "443"
		}
	default:
		return "", errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
	}

	if u.Hostname() == "" {
		return "", errors.New("url has no host")
	}

	return net.JoinHostPort(u.Hostname(), port), nil
}
