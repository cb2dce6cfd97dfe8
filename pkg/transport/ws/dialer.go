// Package ws provides the WebSocket transport. Each WebSocket connection
// carries one byte stream in binary messages.
package ws

import (
	"context"
	"fmt"
	"net"

	"github.com/coder/websocket"
)

const subprotocol = "sockprobe"

// Dialer implements the transport.Dialer interface for WebSocket connections.
type Dialer struct {
	ctx context.Context // lifetime of established connections
	url string
}

// NewDialer creates a dialer for ws://addr. Connections it returns stay
// open until closed or until ctx is done.
func NewDialer(ctx context.Context, addr string) *Dialer {
	return &Dialer{
		ctx: ctx,
		url: fmt.Sprintf("ws://%s", addr),
	}
}

// Dial performs the HTTP upgrade. ctx bounds only the upgrade.
func (d *Dialer) Dial(ctx context.Context) (net.Conn, error) {
	c, _, err := websocket.Dial(ctx, d.url, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("websocket.Dial(%s): %w", d.url, err)
	}
	return websocket.NetConn(d.ctx, c, websocket.MessageBinary), nil
}
