package mux

import (
	"context"
	"fmt"
	"net"
	"sync"

	"dominicbreuker/sockprobe/pkg/transport"

	"github.com/hashicorp/yamux"
)

// Dialer opens streams on a shared yamux client session. The carrier is
// dialed lazily on first use and redialed if it dies.
type Dialer struct {
	carrier transport.Dialer

	mu      sync.Mutex
	session *yamux.Session
}

// NewDialer returns a dialer whose carrier connections come from carrier.
func NewDialer(carrier transport.Dialer) *Dialer {
	return &Dialer{carrier: carrier}
}

// Dial opens one stream.
func (d *Dialer) Dial(ctx context.Context) (net.Conn, error) {
	sess, err := d.getSession(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := sess.OpenStream()
	if err != nil {
		return nil, fmt.Errorf("session.OpenStream(): %w", err)
	}
	return stream, nil
}

func (d *Dialer) getSession(ctx context.Context) (*yamux.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil && !d.session.IsClosed() {
		return d.session, nil
	}

	conn, err := d.carrier.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialing carrier: %w", err)
	}

	sess, err := yamux.Client(conn, yamuxConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("yamux.Client(conn): %w", err)
	}

	d.session = sess
	return sess, nil
}

// Close closes the carrier and with it every open stream.
func (d *Dialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	return err
}
