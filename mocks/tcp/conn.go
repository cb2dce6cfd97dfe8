package tcp

import (
	"net"
	"sync/atomic"
)

// MockTCPConn is one end of a mock TCP connection. It reports TCP
// addresses and remembers whether it was closed.
type MockTCPConn struct {
	net.Conn
	localAddr  *net.TCPAddr
	remoteAddr *net.TCPAddr
	closed     atomic.Bool
}

// LocalAddr returns the local network address.
func (c *MockTCPConn) LocalAddr() net.Addr {
	if c.localAddr != nil {
		return c.localAddr
	}
	return c.Conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *MockTCPConn) RemoteAddr() net.Addr {
	if c.remoteAddr != nil {
		return c.remoteAddr
	}
	return c.Conn.RemoteAddr()
}

// Close closes the pipe end.
func (c *MockTCPConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

// IsClosed reports whether Close was called on this end.
func (c *MockTCPConn) IsClosed() bool {
	return c.closed.Load()
}

var _ net.Conn = (*MockTCPConn)(nil)
