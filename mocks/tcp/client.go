package tcp

import (
	"fmt"
	"net"

	"dominicbreuker/sockprobe/pkg/wire"
)

// DialFunc is a minimal dial function used by the test client.
// It matches the signature of MockTCPNetwork.DialTCP.
type DialFunc func(network string, laddr, raddr *net.TCPAddr) (net.Conn, error)

// Client plays the peer side of an accept loop handshake: it reads the
// greeting and answers with whatever the test wants.
type Client struct {
	conn net.Conn
}

// NewClient creates and returns a connected Client using the provided dial function.
func NewClient(dial DialFunc, network, addr string) (*Client, error) {
	if dial == nil {
		return nil, fmt.Errorf("dial func is nil")
	}

	raddr, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, err
	}

	conn, err := dial(network, nil, raddr)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

// ReadGreeting performs a single read of at most max bytes.
func (c *Client) ReadGreeting(max int) ([]byte, error) {
	return wire.ReadOnce(c.conn, max)
}

// Reply writes b as is.
func (c *Client) Reply(b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

// Handshake reads the greeting and replies with reply.
func (c *Client) Handshake(reply []byte) ([]byte, error) {
	greeting, err := c.ReadGreeting(1024)
	if err != nil {
		return nil, fmt.Errorf("reading greeting: %w", err)
	}
	if err := c.Reply(reply); err != nil {
		return greeting, fmt.Errorf("replying: %w", err)
	}
	return greeting, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
