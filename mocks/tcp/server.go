package tcp

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/wire"
)

// Frame is one terminated message received by a Sink.
type Frame struct {
	Conn int // accept order of the connection, starting at 0
	Text string
}

// Sink is a test server that accepts every connection and records each
// NUL-terminated message it receives. If a reply prefix is set, every
// message is answered with prefix + message. Replies are queued so a peer
// may send several messages before reading any answer.
type Sink struct {
	listener net.Listener
	prefix   string

	mu     sync.Mutex
	cond   *sync.Cond
	frames []Frame
	conns  map[net.Conn]struct{}
	accept int

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSink listens on addr using the provided listener function and starts
// accepting. An empty prefix disables replies.
func NewSink(listener config.TCPListenerFunc, network, addr, prefix string) (*Sink, error) {
	if listener == nil {
		return nil, fmt.Errorf("listener func is nil")
	}

	laddr, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, err
	}

	ln, err := listener(network, laddr)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		listener: ln,
		prefix:   prefix,
		conns:    make(map[net.Conn]struct{}),
		closed:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// Addr returns the listening address.
func (s *Sink) Addr() net.Addr {
	return s.listener.Addr()
}

// Frames returns a copy of everything received so far.
func (s *Sink) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// Accepted returns how many connections were accepted.
func (s *Sink) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accept
}

// WaitFrames blocks until at least n frames arrived or timeout elapses.
func (s *Sink) WaitFrames(n int, timeout time.Duration) ([]Frame, error) {
	deadline := time.Now().Add(timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.frames) < n {
		if time.Now().After(deadline) {
			return append([]Frame(nil), s.frames...), fmt.Errorf("got %d frames, want %d", len(s.frames), n)
		}
		go func() {
			time.Sleep(20 * time.Millisecond)
			s.cond.Broadcast()
		}()
		s.cond.Wait()
	}
	return append([]Frame(nil), s.frames...), nil
}

// Close stops accepting, closes all connections and waits for handlers.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.listener.Close()

		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
	})
	return err
}

func (s *Sink) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.mu.Lock()
		idx := s.accept
		s.accept++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(idx, conn)
	}
}

func (s *Sink) handleConn(idx int, c net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
	}()

	replies := make(chan []byte, 64)
	defer close(replies)
	if s.prefix != "" {
		go func() {
			for r := range replies {
				if _, err := c.Write(r); err != nil {
					return
				}
			}
		}()
	}

	r := bufio.NewReader(c)
	for {
		text, err := wire.ReadFrame(r)
		if err != nil {
			return
		}

		s.mu.Lock()
		s.frames = append(s.frames, Frame{Conn: idx, Text: text})
		s.cond.Broadcast()
		s.mu.Unlock()

		if s.prefix != "" {
			select {
			case replies <- wire.Frame(s.prefix + text):
			default:
			}
		}
	}
}
