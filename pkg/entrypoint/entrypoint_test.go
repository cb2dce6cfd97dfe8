package entrypoint

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	mocks_tcp "dominicbreuker/sockprobe/mocks/tcp"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/wire"
)

const (
	targetAddr = "127.0.0.1:40000"
	listenAddr = "127.0.0.1:40001"
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	net  *mocks_tcp.MockTCPNetwork
	cfg  *config.Shared
	cCfg *config.Connector
	aCfg *config.Acceptor
	out  *syncBuffer
	env  env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mockNet := mocks_tcp.NewMockTCPNetwork()
	out := &syncBuffer{}

	e := realEnv()
	e.out = out

	return &fixture{
		net: mockNet,
		cfg: &config.Shared{
			Protocol: config.ProtoTCP,
			Host:     "127.0.0.1",
			Port:     40000,
			Timeout:  time.Second,
			Deps: &config.Dependencies{
				TCPDialer:   mockNet.DialTCPContext,
				TCPListener: mockNet.ListenTCP,
			},
		},
		cCfg: &config.Connector{
			Count:    3,
			Prefix:   "p",
			Rounds:   2,
			ReadSize: config.DefaultReadSize,
		},
		aCfg: &config.Acceptor{
			Protocol: config.ProtoTCP,
			Host:     "127.0.0.1",
			Port:     40001,
			Greeting: config.DefaultGreeting,
			ReadSize: config.DefaultReadSize,
		},
		out: out,
		env: e,
	}
}

func (f *fixture) sink(t *testing.T, prefix string) *mocks_tcp.Sink {
	t.Helper()

	s, err := mocks_tcp.NewSink(f.net.ListenTCP, "tcp", targetAddr, prefix)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func (f *fixture) listenerGone(t *testing.T) {
	t.Helper()

	raddr, _ := net.ResolveTCPAddr("tcp", listenAddr)
	if conn, err := f.net.DialTCP("tcp", nil, raddr); err == nil {
		conn.Close()
		t.Errorf("listener on %s still accepting after return", listenAddr)
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session string
		tag     string
	}{
		{"anonymous", "", ""},
		{"session", "s1", ":s1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.cCfg.Session = tc.session
			sink := f.sink(t, "echo:")

			if err := run(context.Background(), f.cfg, f.cCfg, f.aCfg, f.env); err != nil {
				t.Fatalf("run() error = %v", err)
			}

			frames, err := sink.WaitFrames(6, time.Second)
			if err != nil {
				t.Fatalf("WaitFrames: %v", err)
			}

			want := map[string]bool{}
			for round := 1; round <= 2; round++ {
				for i := 0; i < 3; i++ {
					want[fmt.Sprintf("p:%s:%d%s:data from socket client:%d", listenAddr, round, tc.tag, i)] = true
				}
			}
			for _, fr := range frames {
				if !want[fr.Text] {
					t.Errorf("unexpected frame %q", fr.Text)
				}
				delete(want, fr.Text)
			}
			if len(want) != 0 {
				t.Errorf("missing frames: %v", want)
			}

			out := f.out.String()
			for i := 0; i < 3; i++ {
				line := fmt.Sprintf("[%d] echo:p:%s:1%s:data from socket client:%d\n", i, listenAddr, tc.tag, i)
				if !strings.Contains(out, line) {
					t.Errorf("output misses %q, got:\n%s", line, out)
				}
			}

			f.listenerGone(t)
		})
	}
}

func TestRun_UnreachableTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	if err := run(context.Background(), f.cfg, f.cCfg, f.aCfg, f.env); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out := f.out.String(); out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	f.listenerGone(t)
}

func TestRun_BindFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	laddr, _ := net.ResolveTCPAddr("tcp", listenAddr)
	l, err := f.net.ListenTCP("tcp", laddr)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer l.Close()

	err = run(context.Background(), f.cfg, f.cCfg, f.aCfg, f.env)
	if err == nil || !strings.Contains(err.Error(), "binding") {
		t.Errorf("run() error = %v, want binding error", err)
	}
}

func TestRun_GreetingIsSentinel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.aCfg.Greeting = config.DefaultSentinel

	if err := run(context.Background(), f.cfg, f.cCfg, f.aCfg, f.env); err == nil {
		t.Error("run() error = nil, want error")
	}
}

func TestRun_CanceledDuringPause(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.sink(t, "")
	f.cCfg.Wait = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, f.cfg, f.cCfg, f.aCfg, f.env) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
	f.listenerGone(t)
}

func TestConnect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cCfg.Rounds = 1
	sink := f.sink(t, "ok:")

	if err := connect(context.Background(), f.cfg, f.cCfg, config.Endpoint{}, f.env); err != nil {
		t.Fatalf("connect() error = %v", err)
	}

	frames, err := sink.WaitFrames(3, time.Second)
	if err != nil {
		t.Fatalf("WaitFrames: %v", err)
	}
	for _, fr := range frames {
		if !strings.HasPrefix(fr.Text, "p:1:data from socket client:") {
			t.Errorf("frame = %q, want template without listen address", fr.Text)
		}
	}

	if got := strings.Count(f.out.String(), "\n"); got != 3 {
		t.Errorf("printed %d responses, want 3", got)
	}
}

func TestListen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	errCh := make(chan error, 1)
	go func() { errCh <- listen(context.Background(), f.cfg, f.aCfg, f.env) }()

	if _, err := f.net.WaitForListener(listenAddr, 1000); err != nil {
		t.Fatalf("WaitForListener: %v", err)
	}

	greeting := wire.Frame(config.DefaultGreeting)
	replies := [][]byte{greeting, greeting, wire.Frame(config.DefaultSentinel)}
	for i, reply := range replies {
		c, err := mocks_tcp.NewClient(f.net.DialTCP, "tcp", listenAddr)
		if err != nil {
			t.Fatalf("client %d: %v", i, err)
		}
		got, err := c.Handshake(reply)
		c.Close()
		if err != nil {
			t.Fatalf("client %d: %v", i, err)
		}
		if !bytes.Equal(got, greeting) {
			t.Errorf("client %d: greeting = %q", i, got)
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("listen() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listen() did not stop on the stop message")
	}
}

func TestListen_Failure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	errCh := make(chan error, 1)
	go func() { errCh <- listen(context.Background(), f.cfg, f.aCfg, f.env) }()

	if _, err := f.net.WaitForListener(listenAddr, 1000); err != nil {
		t.Fatalf("WaitForListener: %v", err)
	}

	// hang up before reading the greeting
	c, err := mocks_tcp.NewClient(f.net.DialTCP, "tcp", listenAddr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("listen() error = nil, want transfer failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listen() did not stop on failure")
	}
}
