package connector

import (
	"fmt"
	"net"
	"sync"
	"time"

	"dominicbreuker/sockprobe/pkg/wire"
)

// Conn is one established outbound connection of a batch. It is owned by
// the batch until closed and never reused afterwards.
type Conn struct {
	nc      net.Conn
	attempt int
	index   int

	mu     sync.Mutex
	closed bool
}

// Attempt is the attempt number that produced the connection.
func (c *Conn) Attempt() int { return c.attempt }

// Index is the position of the connection in its batch.
func (c *Conn) Index() int { return c.index }

// RemoteAddr ...
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Send writes b in a single write. A positive timeout bounds the write.
func (c *Conn) Send(b []byte, timeout time.Duration) error {
	if c.Closed() {
		return fmt.Errorf("send on conn %d: %w", c.index, net.ErrClosed)
	}

	if timeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(timeout))
		defer c.nc.SetWriteDeadline(time.Time{})
	}

	if _, err := c.nc.Write(b); err != nil {
		return fmt.Errorf("send on conn %d: %w", c.index, err)
	}
	return nil
}

// Receive performs a single read of at most max bytes. A positive timeout
// bounds the read.
func (c *Conn) Receive(max int, timeout time.Duration) ([]byte, error) {
	if c.Closed() {
		return nil, fmt.Errorf("receive on conn %d: %w", c.index, net.ErrClosed)
	}

	if timeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(timeout))
		defer c.nc.SetReadDeadline(time.Time{})
	}

	b, err := wire.ReadOnce(c.nc, max)
	if err != nil {
		return nil, fmt.Errorf("receive on conn %d: %w", c.index, err)
	}
	return b, nil
}

// Close closes the connection. Closing is idempotent: calls after the
// first are no-ops returning nil.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.nc.Close()
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
