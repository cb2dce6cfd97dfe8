package mux

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	mocks_tcp "dominicbreuker/sockprobe/mocks/tcp"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/transport/tcp"

	"github.com/hashicorp/yamux"
)

func setup(t *testing.T, addr string) (*mocks_tcp.MockTCPListener, *Listener, *Dialer) {
	t.Helper()

	mockNet := mocks_tcp.NewMockTCPNetwork()
	deps := &config.Dependencies{
		TCPDialer:   mockNet.DialTCPContext,
		TCPListener: mockNet.ListenTCP,
	}

	nl, err := tcp.NewListener(addr, false, deps)
	if err != nil {
		t.Fatalf("tcp.NewListener: %v", err)
	}
	l := NewListener(nl, nil)
	t.Cleanup(func() { l.Close() })

	carrier, err := tcp.NewDialer(addr, deps)
	if err != nil {
		t.Fatalf("tcp.NewDialer: %v", err)
	}
	d := NewDialer(carrier)
	t.Cleanup(func() { d.Close() })

	return nl.(*mocks_tcp.MockTCPListener), l, d
}

func TestStreamsShareOneCarrier(t *testing.T) {
	t.Parallel()

	mockListener, l, d := setup(t, "127.0.0.1:13000")

	const n = 3
	for i := 0; i < n; i++ {
		conn, err := d.Dial(context.Background())
		if err != nil {
			t.Fatalf("Dial %d: %v", i, err)
		}
		defer conn.Close()

		go func(i int) {
			conn.Write([]byte{byte('a' + i)})
		}(i)

		srv, err := l.Accept()
		if err != nil {
			t.Fatalf("Accept %d: %v", i, err)
		}
		buf := make([]byte, 1)
		if _, err := io.ReadFull(srv, buf); err != nil {
			t.Fatalf("read stream %d: %v", i, err)
		}
		if buf[0] != byte('a'+i) {
			t.Errorf("stream %d got %q", i, buf)
		}
		srv.Close()
	}

	if _, err := mockListener.WaitForNewConnection(1000); err != nil {
		t.Fatalf("no carrier accepted: %v", err)
	}
	if _, err := mockListener.WaitForNewConnection(100); err == nil {
		t.Error("streams used more than one carrier")
	}
}

func TestListener_Close(t *testing.T) {
	t.Parallel()

	_, l, _ := setup(t, "127.0.0.1:13001")

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		errCh <- err
	}()

	l.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Accept() after Close returned no error")
		}
	case <-time.After(time.Second):
		t.Fatal("Accept() blocked after Close")
	}

	if l.Addr().String() != "127.0.0.1:13001" {
		t.Errorf("Addr() = %s", l.Addr())
	}
}

func TestListener_CarrierAfterClose(t *testing.T) {
	t.Parallel()

	_, l, _ := setup(t, "127.0.0.1:13004")

	srvConn, cliConn := net.Pipe()
	defer cliConn.Close()
	sess, err := yamux.Server(srvConn, yamuxConfig())
	if err != nil {
		t.Fatalf("yamux.Server: %v", err)
	}

	l.Close()

	if l.track(sess) {
		t.Error("track() after Close = true, want false")
	}
	if !sess.IsClosed() {
		t.Error("carrier registered after Close was left open")
	}

	l.mu.Lock()
	n := len(l.sessions)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("%d sessions registered after Close", n)
	}
}

func TestDialer_Redial(t *testing.T) {
	t.Parallel()

	_, l, d := setup(t, "127.0.0.1:13002")

	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	if _, err := d.Dial(context.Background()); err != nil {
		t.Fatalf("first Dial: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := d.Dial(context.Background()); err != nil {
		t.Fatalf("Dial after Close: %v", err)
	}
}

func TestDialer_CarrierFailure(t *testing.T) {
	t.Parallel()

	mockNet := mocks_tcp.NewMockTCPNetwork()
	carrier, err := tcp.NewDialer("127.0.0.1:13003", &config.Dependencies{TCPDialer: mockNet.DialTCPContext})
	if err != nil {
		t.Fatalf("tcp.NewDialer: %v", err)
	}

	if _, err := NewDialer(carrier).Dial(context.Background()); err == nil {
		t.Error("Dial without listener should fail")
	}
}

var _ net.Listener = (*Listener)(nil)
