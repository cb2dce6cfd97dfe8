package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/log"
	"dominicbreuker/sockprobe/pkg/semaphore"
	"dominicbreuker/sockprobe/pkg/transport/tcp"

	"github.com/coder/websocket"
)

// Listener accepts WebSocket upgrades on a TCP socket and hands each
// upgraded connection out through Accept. Only one upgraded connection is
// outstanding at a time; further clients wait for a slot (up to timeout)
// and receive HTTP 503 if none frees up.
type Listener struct {
	nl     net.Listener
	server *http.Server
	sem    *semaphore.ConnSemaphore
	logger *log.Logger

	conns     chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
	serveErr  chan error
}

// NewListener binds addr and starts serving upgrades.
func NewListener(addr string, reuseAddr bool, timeout time.Duration, logger *log.Logger, deps *config.Dependencies) (*Listener, error) {
	nl, err := tcp.NewListener(addr, reuseAddr, deps)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		nl:       nl,
		sem:      semaphore.New(1, timeout),
		logger:   logger,
		conns:    make(chan net.Conn),
		closed:   make(chan struct{}),
		serveErr: make(chan error, 1),
	}
	l.server = &http.Server{
		Handler:           http.HandlerFunc(l.handle),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := l.server.Serve(nl)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		l.serveErr <- err
	}()

	return l, nil
}

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	if err := l.sem.Acquire(r.Context()); err != nil {
		l.logger.VerboseMsg("Rejecting WS upgrade from %s: %s", r.RemoteAddr, err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer l.sem.Release()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		l.logger.ErrorMsg("websocket.Accept(): %s\n", err)
		return
	}

	// the request context ends when this handler returns, so hold the
	// handler until the accepted conn is closed
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &notifyConn{
		Conn: websocket.NetConn(ctx, c, websocket.MessageBinary),
		done: make(chan struct{}),
	}

	select {
	case l.conns <- conn:
	case <-l.closed:
		_ = conn.Close()
		return
	}

	select {
	case <-conn.done:
	case <-l.closed:
		_ = conn.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	case err := <-l.serveErr:
		l.serveErr <- err
		if err == nil {
			err = net.ErrClosed
		}
		return nil, fmt.Errorf("serving websocket: %w", err)
	}
}

// Close stops serving and closes the TCP socket.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.server.Close()
	})
	return err
}

// Addr returns the bound TCP address.
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// notifyConn signals done when closed.
type notifyConn struct {
	net.Conn
	once sync.Once
	done chan struct{}
}

func (c *notifyConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.done) })
	return err
}
