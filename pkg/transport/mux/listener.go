package mux

import (
	"net"
	"sync"

	"dominicbreuker/sockprobe/pkg/log"

	"github.com/hashicorp/yamux"
)

// Listener accepts carrier connections on an underlying listener and hands
// out the streams opened on them.
type Listener struct {
	nl     net.Listener
	logger *log.Logger

	streams   chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
	acceptErr error // set before closed is closed by the carrier loop

	mu       sync.Mutex
	sessions map[*yamux.Session]struct{}
}

// NewListener serves streams from carriers accepted on nl. The Listener
// takes ownership of nl.
func NewListener(nl net.Listener, logger *log.Logger) *Listener {
	l := &Listener{
		nl:       nl,
		logger:   logger,
		streams:  make(chan net.Conn),
		closed:   make(chan struct{}),
		sessions: make(map[*yamux.Session]struct{}),
	}
	go l.acceptCarriers()
	return l
}

func (l *Listener) acceptCarriers() {
	for {
		conn, err := l.nl.Accept()
		if err != nil {
			l.shutdown(err)
			return
		}

		sess, err := yamux.Server(conn, yamuxConfig())
		if err != nil {
			l.logger.ErrorMsg("yamux.Server(conn): %s\n", err)
			conn.Close()
			continue
		}
		l.logger.VerboseMsg("New mux carrier from %s", conn.RemoteAddr())

		if !l.track(sess) {
			return
		}
		go l.acceptStreams(sess)
	}
}

// track registers sess for Close. A session arriving after Close has
// walked the registry is closed instead and false is returned.
func (l *Listener) track(sess *yamux.Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.closed:
		sess.Close()
		return false
	default:
	}

	l.sessions[sess] = struct{}{}
	return true
}

func (l *Listener) acceptStreams(sess *yamux.Session) {
	defer func() {
		l.mu.Lock()
		delete(l.sessions, sess)
		l.mu.Unlock()
		sess.Close()
	}()

	for {
		stream, err := sess.AcceptStream()
		if err != nil {
			return
		}

		select {
		case l.streams <- stream:
		case <-l.closed:
			stream.Close()
			return
		}
	}
}

// Accept waits for the next stream.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case s := <-l.streams:
		return s, nil
	case <-l.closed:
		if l.acceptErr != nil {
			return nil, l.acceptErr
		}
		return nil, net.ErrClosed
	}
}

func (l *Listener) shutdown(err error) {
	l.closeOnce.Do(func() {
		l.acceptErr = err
		close(l.closed)
	})
}

// Close closes the underlying listener and all carriers.
func (l *Listener) Close() error {
	l.shutdown(nil)
	err := l.nl.Close()

	l.mu.Lock()
	for sess := range l.sessions {
		sess.Close()
	}
	l.mu.Unlock()

	return err
}

// Addr returns the address of the underlying listener.
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}
