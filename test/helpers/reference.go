package helpers

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	mocks_tcp "dominicbreuker/sockprobe/mocks/tcp"
	"dominicbreuker/sockprobe/pkg/wire"
)

// Callback is the outcome of one connection the reference server made
// back to an announced listen address.
type Callback struct {
	Addr     string
	Greeting []byte
	Err      error
}

// ReferenceServer plays the server sockprobe is meant to probe. It echoes
// every frame back to its sender. For frames starting with prefix it
// also connects to the address named in the frame, reads the greeting and
// echoes it, keeping the remote accept loop running.
type ReferenceServer struct {
	net      *mocks_tcp.MockTCPNetwork
	listener net.Listener
	prefix   string

	mu        sync.Mutex
	cond      *sync.Cond
	callbacks []Callback

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// StartReferenceServer listens on addr in mockNet.
func StartReferenceServer(mockNet *mocks_tcp.MockTCPNetwork, addr, prefix string) (*ReferenceServer, error) {
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	l, err := mockNet.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, err
	}

	s := &ReferenceServer{
		net:      mockNet,
		listener: l,
		prefix:   prefix + ":",
		closed:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Callbacks returns all callbacks made so far.
func (s *ReferenceServer) Callbacks() []Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Callback(nil), s.callbacks...)
}

// WaitCallbacks blocks until n callbacks completed or timeout elapsed.
func (s *ReferenceServer) WaitCallbacks(n int, timeout time.Duration) ([]Callback, error) {
	deadline := time.Now().Add(timeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.callbacks) < n {
		if time.Now().After(deadline) {
			return append([]Callback(nil), s.callbacks...), fmt.Errorf("got %d callbacks, want %d", len(s.callbacks), n)
		}
		go func() {
			time.Sleep(20 * time.Millisecond)
			s.cond.Broadcast()
		}()
		s.cond.Wait()
	}
	return append([]Callback(nil), s.callbacks...), nil
}

// Close stops the server and waits for its goroutines.
func (s *ReferenceServer) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.listener.Close()
	})
	s.wg.Wait()
	return err
}

func (s *ReferenceServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *ReferenceServer) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// net.Pipe writes block until read, so echoes are queued
	echoes := make(chan []byte, 64)
	defer close(echoes)
	go func() {
		for b := range echoes {
			if _, err := conn.Write(b); err != nil {
				return
			}
		}
	}()

	go func() {
		<-s.closed
		conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		text, err := wire.ReadFrame(r)
		if err != nil {
			return
		}

		if strings.HasPrefix(text, s.prefix) {
			if parts := strings.Split(text, ":"); len(parts) > 2 {
				s.wg.Add(1)
				go s.callback(net.JoinHostPort(parts[1], parts[2]))
			}
		}

		select {
		case echoes <- wire.Frame(text):
		default:
		}
	}
}

func (s *ReferenceServer) callback(addr string) {
	defer s.wg.Done()

	cb := Callback{Addr: addr}
	defer func() {
		s.mu.Lock()
		s.callbacks = append(s.callbacks, cb)
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	c, err := mocks_tcp.NewClient(s.net.DialTCP, "tcp", addr)
	if err != nil {
		cb.Err = err
		return
	}
	defer c.Close()

	greeting, err := c.ReadGreeting(1024)
	if err != nil {
		cb.Err = err
		return
	}
	cb.Greeting = greeting
	cb.Err = c.Reply(greeting)
}
