// Package transport defines what every sockprobe transport (tcp, ws, udp,
// mux) provides:
//
//   - a Dialer that establishes one outbound connection per Dial call;
//   - a net.Listener handing out one inbound connection per Accept call.
//
// Dial never retries. Timeouts are applied by wrapping a Dialer with
// WithTimeout; deadlines on established connections are the caller's job.
package transport

import (
	"context"
	"io"
	"net"
	"time"
)

// Dialer establishes outbound connections to a fixed address.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
}

// DeadlineListener is implemented by listeners whose Accept honors a deadline.
type DeadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type timeoutDialer struct {
	d       Dialer
	timeout time.Duration
}

// WithTimeout bounds every Dial of d by timeout. A zero timeout returns d.
func WithTimeout(d Dialer, timeout time.Duration) Dialer {
	if timeout <= 0 {
		return d
	}
	return &timeoutDialer{d: d, timeout: timeout}
}

func (t *timeoutDialer) Dial(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.d.Dial(ctx)
}

// Close closes the wrapped dialer if it holds resources.
func (t *timeoutDialer) Close() error {
	return CloseDialer(t.d)
}

// CloseDialer releases resources held by d, if any.
func CloseDialer(d Dialer) error {
	if c, ok := d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
