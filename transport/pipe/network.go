package pipe

import (
	"context"
	"net"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	ErrConnRefused   = errors.New("connection refused")
	ErrAddrInUse     = errors.New("address already in use")
	ErrListenerClosed = errors.New("listener is closed")
)

// Network connects dialers to listeners by address.
type Network struct {
	clock clock.Clock

	mu        sync.Mutex
	listeners map[string]*Listener
}

func New(clock clock.Clock) *Network {
	return &Network{
		clock:     clock,
		listeners: make(map[string]*Listener),
	}
}

type dialRequest struct {
	conn     net.Conn
	accepted chan struct{}
}

// DialContext connects to the listener at address. network is ignored.
func (n *Network) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	n.mu.Lock()
	l, ok := n.listeners[address]
	n.mu.Unlock()

	if !ok {
		return nil, errors.Wrap(ErrConnRefused, address)
	}

	c1, c2 := Pipe("dialer", address, n.clock)

	req := dialRequest{
		conn:     c2,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, errors.Wrap(ErrConnRefused, address)
	case l.requests <- req:
	}

	select {
	case <-ctx.Done():
		c1.Close()
		return nil, ctx.Err()
	case <-req.accepted:
	}

	return c1, nil
}

func (n *Network) Listen(address string) (*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[address]; ok {
		return nil, errors.Wrap(ErrAddrInUse, address)
	}

	l := &Listener{
		addr:     Addr{Name: address},
		network:  n,
		requests: make(chan dialRequest),
		closed:   make(chan struct{}),
	}
	n.listeners[address] = l

	return l, nil
}

type Listener struct {
	addr    Addr
	network *Network

	requests chan dialRequest

	closed chan struct{}
	once   sync.Once
}

var _ net.Listener = (*Listener)(nil)

func (l *Listener) Addr() net.Addr { return l.addr }

func (l *Listener) Accept() (net.Conn, error) {
	select {
	case <-l.closed:
		return nil, ErrListenerClosed
	case req := <-l.requests:
		req.accepted <- struct{}{}
		return req.conn, nil
	}
}

// Close stops accepting. Connections already accepted stay open.
func (l *Listener) Close() error {
	err := ErrListenerClosed
	l.once.Do(func() {
		close(l.closed)

		l.network.mu.Lock()
		delete(l.network.listeners, l.addr.Name)
		l.network.mu.Unlock()

		err = nil
	})
	return err
}
