// Package udp provides the UDP transport. Streams are carried over KCP
// sessions for reliable, ordered delivery.
package udp

import (
	"context"
	"fmt"
	"net"

	"dominicbreuker/sockprobe/pkg/config"

	kcp "github.com/xtaci/kcp-go/v5"
)

// Dialer implements the transport.Dialer interface for UDP connections with KCP.
type Dialer struct {
	remoteAddr   *net.UDPAddr
	packetConnFn config.PacketListenerFunc
}

// NewDialer creates a new UDP dialer for the specified address.
// The deps parameter is optional and can be nil to use default implementations.
func NewDialer(addr string, deps *config.Dependencies) (*Dialer, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.ResolveUDPAddr(udp, %s): %w", addr, err)
	}

	return &Dialer{
		remoteAddr:   udpAddr,
		packetConnFn: config.GetPacketListenerFunc(deps),
	}, nil
}

// preamble is the first byte of every dialed session. KCP only surfaces a
// session on the listener once a segment arrives, and peers of an accept
// loop read before they write.
const preamble byte = 0x5a

// Dial opens a KCP session to the configured address and sends the
// preamble. UDP has no handshake, so an unreachable peer only shows up on
// the first read.
func (d *Dialer) Dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := d.packetConnFn("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("net.ListenPacket(udp, :0): %w", err)
	}

	sess, err := kcp.NewConn(d.remoteAddr.String(), nil, 0, 0, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("kcp.NewConn(%s): %w", d.remoteAddr, err)
	}
	configure(sess)

	if _, err := sess.Write([]byte{preamble}); err != nil {
		sess.Close()
		conn.Close()
		return nil, fmt.Errorf("writing preamble to %s: %w", d.remoteAddr, err)
	}

	return &sessionConn{UDPSession: sess, pc: conn}, nil
}

// configure tunes a session for low latency stream use.
func configure(sess *kcp.UDPSession) {
	sess.SetNoDelay(1, 10, 2, 1)
	sess.SetStreamMode(true)
	sess.SetWindowSize(1024, 1024)
}

// sessionConn owns the packet conn a dialed session was created on.
type sessionConn struct {
	*kcp.UDPSession
	pc net.PacketConn
}

func (c *sessionConn) Close() error {
	err := c.UDPSession.Close()
	if perr := c.pc.Close(); err == nil {
		err = perr
	}
	return err
}
