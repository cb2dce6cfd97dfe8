package udp

import (
	"fmt"
	"io"
	"net"
	"time"

	"dominicbreuker/sockprobe/pkg/config"

	kcp "github.com/xtaci/kcp-go/v5"
)

// preambleTimeout bounds the wait for the preamble of a fresh session.
const preambleTimeout = 5 * time.Second

// Listener accepts KCP sessions on a UDP socket. It supports SetDeadline.
type Listener struct {
	*kcp.Listener
	pc net.PacketConn
}

// NewListener creates a new UDP listener with KCP on the specified address.
// The deps parameter is optional and can be nil to use default implementations.
func NewListener(addr string, deps *config.Dependencies) (*Listener, error) {
	if _, err := net.ResolveUDPAddr("udp", addr); err != nil {
		return nil, fmt.Errorf("net.ResolveUDPAddr(udp, %s): %w", addr, err)
	}

	conn, err := config.GetPacketListenerFunc(deps)("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen(udp, %s): %w", addr, err)
	}

	kl, err := kcp.ServeConn(nil, 0, 0, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("kcp.ServeConn(): %w", err)
	}

	return &Listener{Listener: kl, pc: conn}, nil
}

// Accept waits for the next KCP session that starts with the preamble.
// Sessions sending anything else are dropped.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		sess, err := l.AcceptKCP()
		if err != nil {
			return nil, err
		}
		configure(sess)

		if err := readPreamble(sess); err != nil {
			sess.Close()
			continue
		}
		return sess, nil
	}
}

func readPreamble(sess *kcp.UDPSession) error {
	if err := sess.SetReadDeadline(time.Now().Add(preambleTimeout)); err != nil {
		return err
	}
	var b [1]byte
	if _, err := io.ReadFull(sess, b[:]); err != nil {
		return err
	}
	if b[0] != preamble {
		return fmt.Errorf("unexpected preamble %#x", b[0])
	}
	return sess.SetReadDeadline(time.Time{})
}

// Close closes the listener and its UDP socket.
func (l *Listener) Close() error {
	err := l.Listener.Close()
	// ServeConn does not take ownership of the packet conn
	if perr := l.pc.Close(); err == nil {
		err = perr
	}
	return err
}
