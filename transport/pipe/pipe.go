// Package pipe is an in-memory network.
// Its connections are synchronous and unbuffered like [net.Pipe], but their
// deadlines follow a [clock.Clock] so that tests can drive them.
package pipe

import (
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Addr struct {
	Name string
}

var _ net.Addr = Addr{}

func (a Addr) Network() string { return "pipe" }
func (a Addr) String() string  { return a.Name }

type conn struct {
	stream chan []byte // stream that this conn reads from.
	nc     chan int    // counterpart's respond will be sent here.

	writeMu sync.Mutex

	closed chan struct{}
	once   sync.Once

	rdeadline *deadline
	wdeadline *deadline

	// the opposite end.
	counterpart *conn

	addr Addr
}

var _ net.Conn = (*conn)(nil)

// Pipe creates a pair of connected ends.
// Reading on one end after the other is closed returns [io.EOF].
func Pipe(name1, name2 string, clock clock.Clock) (net.Conn, net.Conn) {
	c1, c2 := newConn(name1, clock), newConn(name2, clock)
	c1.counterpart, c2.counterpart = c2, c1
	return c1, c2
}

func newConn(name string, clock clock.Clock) *conn {
	return &conn{
		stream:    make(chan []byte),
		nc:        make(chan int),
		closed:    make(chan struct{}),
		rdeadline: newDeadline(clock),
		wdeadline: newDeadline(clock),
		addr:      Addr{Name: name},
	}
}

func (c *conn) LocalAddr() net.Addr  { return c.addr }
func (c *conn) RemoteAddr() net.Addr { return c.counterpart.addr }

func (c *conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *conn) Read(b []byte) (int, error) {
	switch {
	case isClosed(c.closed):
		return 0, net.ErrClosed
	case isClosed(c.counterpart.closed):
		return 0, io.EOF
	case isClosed(c.rdeadline.wait()):
		return 0, os.ErrDeadlineExceeded
	}

	select {
	case received := <-c.stream:
		n := copy(b, received)
		c.counterpart.nc <- n
		return n, nil
	case <-c.closed:
		return 0, net.ErrClosed
	case <-c.counterpart.closed:
		return 0, io.EOF
	case <-c.rdeadline.wait():
		return 0, os.ErrDeadlineExceeded
	}
}

func (c *conn) Write(b []byte) (int, error) {
	switch {
	case isClosed(c.closed):
		return 0, net.ErrClosed
	case isClosed(c.counterpart.closed):
		return 0, io.ErrClosedPipe
	case isClosed(c.wdeadline.wait()):
		return 0, os.ErrDeadlineExceeded
	}

	// Serialize writes so that they do not interleave.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	nn := 0
	for len(b) > 0 {
		select {
		case c.counterpart.stream <- b:
			n := <-c.nc
			b = b[n:]
			nn += n
		case <-c.closed:
			return nn, net.ErrClosed
		case <-c.counterpart.closed:
			return nn, io.ErrClosedPipe
		case <-c.wdeadline.wait():
			return nn, os.ErrDeadlineExceeded
		}
	}

	return nn, nil
}

func (c *conn) SetDeadline(t time.Time) error {
	c.rdeadline.set(t)
	c.wdeadline.set(t)
	return nil
}

func (c *conn) SetReadDeadline(t time.Time) error {
	c.rdeadline.set(t)
	return nil
}

func (c *conn) SetWriteDeadline(t time.Time) error {
	c.wdeadline.set(t)
	return nil
}

// deadline is a channel closed once the time set is reached.
// The zero time means no deadline.
type deadline struct {
	clock clock.Clock

	mu    sync.Mutex
	timer *clock.Timer

	closed chan struct{}
}

func newDeadline(clock clock.Clock) *deadline {
	return &deadline{
		clock:  clock,
		closed: make(chan struct{}),
	}
}

func (d *deadline) set(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A timer that could not be stopped has fired, and may still be closing
	// the current channel.
	if (d.timer != nil && !d.timer.Stop()) || isClosed(d.closed) {
		d.closed = make(chan struct{})
	}
	d.timer = nil

	if t.IsZero() {
		return
	}

	dur := d.clock.Until(t)
	if dur <= 0 {
		close(d.closed)
		return
	}

	closed := d.closed
	d.timer = d.clock.AfterFunc(dur, func() { close(closed) })
}

func (d *deadline) wait() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
