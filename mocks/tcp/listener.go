package tcp

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// MockTCPListener is a mock implementation of net.TCPListener. Pending
// connections queue up to the backlog of 12; further dials block.
type MockTCPListener struct {
	addr       *net.TCPAddr
	connCh     chan *MockTCPConn
	acceptedCh chan *MockTCPConn
	closeCh    chan struct{}
	closed     bool
	deadline   time.Time
	mu         sync.Mutex
	network    *MockTCPNetwork
}

// Accept waits for and returns the next connection to the listener.
// It honors the deadline set with SetDeadline.
func (l *MockTCPListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	deadline := l.deadline
	l.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case conn := <-l.connCh:
		select {
		case l.acceptedCh <- conn:
		default:
		}
		return conn, nil
	case <-l.closeCh:
		return nil, fmt.Errorf("accept on %s: %w", l.addr, net.ErrClosed)
	case <-timeout:
		return nil, fmt.Errorf("accept on %s: %w", l.addr, os.ErrDeadlineExceeded)
	}
}

// SetDeadline sets the deadline for future Accept calls. A zero value
// disables the deadline.
func (l *MockTCPListener) SetDeadline(t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deadline = t
	return nil
}

// Close closes the listener.
func (l *MockTCPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	close(l.closeCh)

	l.network.mu.Lock()
	delete(l.network.listeners, l.addr.String())
	l.network.mu.Unlock()

	return nil
}

// Addr returns the listener's network address.
func (l *MockTCPListener) Addr() net.Addr {
	return l.addr
}

// Closed reports whether Close has been called.
func (l *MockTCPListener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

var _ net.Listener = (*MockTCPListener)(nil)

// WaitForNewConnection waits until Accept has returned a new connection,
// the listener is closed, or timeoutMs elapses.
func (l *MockTCPListener) WaitForNewConnection(timeoutMs int) (*MockTCPConn, error) {
	timeout := time.Duration(timeoutMs) * time.Millisecond

	select {
	case conn := <-l.acceptedCh:
		return conn, nil
	case <-l.closeCh:
		return nil, fmt.Errorf("listener closed")
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for new connection on %s", l.addr.String())
	}
}
