package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	mocks_tcp "dominicbreuker/sockprobe/mocks/tcp"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/fault"
	"dominicbreuker/sockprobe/pkg/log"
	"dominicbreuker/sockprobe/pkg/session"
	"dominicbreuker/sockprobe/pkg/transport"
	"dominicbreuker/sockprobe/pkg/transport/tcp"
)

// setup starts a sink on addr and returns a TCP dialer pointing at it.
func setup(t *testing.T, addr, replyPrefix string) (*mocks_tcp.Sink, transport.Dialer) {
	t.Helper()

	mockNet := mocks_tcp.NewMockTCPNetwork()
	deps := &config.Dependencies{
		TCPDialer:   mockNet.DialTCPContext,
		TCPListener: mockNet.ListenTCP,
	}

	sink, err := mocks_tcp.NewSink(mockNet.ListenTCP, "tcp", addr, replyPrefix)
	if err != nil {
		t.Fatalf("NewSink(%s): %v", addr, err)
	}
	t.Cleanup(func() { sink.Close() })

	d, err := tcp.NewDialer(addr, deps)
	if err != nil {
		t.Fatalf("NewDialer(%s): %v", addr, err)
	}
	return sink, d
}

type recorder struct {
	mu   sync.Mutex
	errs []*fault.Error
}

func (r *recorder) Report(e *fault.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recorder) all() []*fault.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fault.Error(nil), r.errs...)
}

// flakyDialer fails the attempts listed in fail and delegates the rest.
type flakyDialer struct {
	inner   transport.Dialer
	fail    map[int]error
	attempt int
}

func (d *flakyDialer) Dial(ctx context.Context) (net.Conn, error) {
	n := d.attempt
	d.attempt++
	if err, ok := d.fail[n]; ok {
		return nil, err
	}
	return d.inner.Dial(ctx)
}

func TestConnectBatch_AllReachable(t *testing.T) {
	t.Parallel()

	for i, n := range []int{0, 1, 5, 23} {
		n := n
		addr := fmt.Sprintf("127.0.0.1:%d", 20000+i)
		t.Run(fmt.Sprintf("count-%d", n), func(t *testing.T) {
			t.Parallel()

			sink, d := setup(t, addr, "")
			rec := &recorder{}
			c := New(d, Options{Reporter: rec, Logger: log.NewLogger(false)})

			b := c.ConnectBatch(context.Background(), n)
			defer b.Close()

			if b.Len() != n {
				t.Fatalf("Len() = %d, want %d", b.Len(), n)
			}
			for i, conn := range b.Conns() {
				if conn.Index() != i || conn.Attempt() != i {
					t.Errorf("conn %d has index %d attempt %d", i, conn.Index(), conn.Attempt())
				}
			}
			if len(b.Failures()) != 0 || len(rec.all()) != 0 {
				t.Errorf("unexpected failures: %v", b.Failures())
			}

			deadline := time.Now().Add(time.Second)
			for sink.Accepted() < n && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			if sink.Accepted() != n {
				t.Errorf("sink accepted %d connections, want %d", sink.Accepted(), n)
			}
		})
	}
}

func TestConnectBatch_NegativeCount(t *testing.T) {
	t.Parallel()

	_, d := setup(t, "127.0.0.1:20010", "")
	b := New(d, Options{}).ConnectBatch(context.Background(), -3)
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestConnectBatch_PartialFailure(t *testing.T) {
	t.Parallel()

	_, inner := setup(t, "127.0.0.1:20011", "")
	refused := errors.New("connection refused")
	d := &flakyDialer{inner: inner, fail: map[int]error{
		1: refused,
		3: fmt.Errorf("dial: %w", context.DeadlineExceeded),
	}}

	rec := &recorder{}
	b := New(d, Options{Reporter: rec}).ConnectBatch(context.Background(), 6)
	defer b.Close()

	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}

	wantAttempts := []int{0, 2, 4, 5}
	for i, conn := range b.Conns() {
		if conn.Index() != i {
			t.Errorf("conn %d: Index() = %d", i, conn.Index())
		}
		if conn.Attempt() != wantAttempts[i] {
			t.Errorf("conn %d: Attempt() = %d, want %d", i, conn.Attempt(), wantAttempts[i])
		}
	}

	failures := b.Failures()
	if len(failures) != 2 {
		t.Fatalf("Failures() = %v, want 2", failures)
	}
	if failures[0].Index != 1 || failures[0].Kind != fault.ConnectFailure || !errors.Is(failures[0], refused) {
		t.Errorf("first failure = %v", failures[0])
	}
	if failures[1].Index != 3 || failures[1].Kind != fault.TimeoutFailure {
		t.Errorf("second failure = %v, want timeout on attempt 3", failures[1])
	}
	if len(rec.all()) != 2 {
		t.Errorf("reporter got %d failures, want 2", len(rec.all()))
	}
}

func TestConnectBatch_Unreachable(t *testing.T) {
	t.Parallel()

	mockNet := mocks_tcp.NewMockTCPNetwork()
	d, err := tcp.NewDialer("127.0.0.1:20012", &config.Dependencies{TCPDialer: mockNet.DialTCPContext})
	if err != nil {
		t.Fatalf("NewDialer: %v", err)
	}

	rec := &recorder{}
	b := New(d, Options{Reporter: rec}).ConnectBatch(context.Background(), 5)

	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if len(b.Failures()) != 5 || len(rec.all()) != 5 {
		t.Errorf("got %d failures (%d reported), want 5", len(b.Failures()), len(rec.all()))
	}
	for i, f := range b.Failures() {
		if f.Index != i || f.Kind != fault.ConnectFailure {
			t.Errorf("failure %d = %v", i, f)
		}
	}
}

func TestConnectBatch_Cancelled(t *testing.T) {
	t.Parallel()

	_, d := setup(t, "127.0.0.1:20013", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(d, Options{}).ConnectBatch(ctx, 3)
	if b.Len() != 0 || len(b.Failures()) != 3 {
		t.Errorf("Len() = %d, failures = %d; want 0, 3", b.Len(), len(b.Failures()))
	}
}

func TestSendToAll_EndToEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		sess    session.Session
		wantFmt string
	}{
		{"anonymous", "127.0.0.1:20020", session.Anonymous(config.Endpoint{}, "hi"), "msg:data from socket client:%d"},
		{"with session", "127.0.0.1:20021", session.New("7", config.Endpoint{}, "hi"), "msg:7:data from socket client:%d"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink, d := setup(t, tc.addr, "")
			c := New(d, Options{Timeout: time.Second})

			b := c.ConnectBatch(context.Background(), 5)
			defer b.Close()
			if b.Len() != 5 {
				t.Fatalf("Len() = %d, want 5", b.Len())
			}

			if failures := c.SendToAll(b, "msg", tc.sess); len(failures) != 0 {
				t.Fatalf("SendToAll() failures: %v", failures)
			}

			frames, err := sink.WaitFrames(5, time.Second)
			if err != nil {
				t.Fatalf("WaitFrames: %v", err)
			}

			seen := map[int]bool{}
			for _, f := range frames {
				want := fmt.Sprintf(tc.wantFmt, f.Conn)
				if f.Text != want {
					t.Errorf("conn %d received %q, want %q", f.Conn, f.Text, want)
				}
				seen[f.Conn] = true
			}
			if len(seen) != 5 {
				t.Errorf("payloads arrived on %d distinct connections, want 5", len(seen))
			}
		})
	}
}

func TestSendToAll_IsolatesFailures(t *testing.T) {
	t.Parallel()

	sink, d := setup(t, "127.0.0.1:20022", "")
	rec := &recorder{}
	c := New(d, Options{Reporter: rec, Timeout: time.Second})

	b := c.ConnectBatch(context.Background(), 5)
	defer b.Close()

	b.Conn(2).Close()

	failures := c.SendToAll(b, "msg", session.Anonymous(config.Endpoint{}, "hi"))
	if len(failures) != 1 || failures[0].Index != 2 || failures[0].Kind != fault.TransferFailure {
		t.Fatalf("SendToAll() failures = %v, want one transfer failure on conn 2", failures)
	}
	if !errors.Is(failures[0], net.ErrClosed) {
		t.Errorf("failure should wrap net.ErrClosed: %v", failures[0])
	}

	frames, err := sink.WaitFrames(4, time.Second)
	if err != nil {
		t.Fatalf("WaitFrames: %v", err)
	}
	for _, f := range frames {
		if strings.HasSuffix(f.Text, ":2") {
			t.Errorf("closed conn 2 should not have delivered %q", f.Text)
		}
	}
}

func TestReceiveAll(t *testing.T) {
	t.Parallel()

	_, d := setup(t, "127.0.0.1:20023", "ack:")
	c := New(d, Options{Timeout: time.Second})

	b := c.ConnectBatch(context.Background(), 3)
	defer b.Close()

	sess := session.Anonymous(config.Endpoint{}, "hi")
	if failures := c.SendToAll(b, "r1", sess); len(failures) != 0 {
		t.Fatalf("SendToAll() failures: %v", failures)
	}

	responses, failures := c.ReceiveAll(b, 1024)
	if len(failures) != 0 {
		t.Fatalf("ReceiveAll() failures: %v", failures)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	for i, r := range responses {
		want := fmt.Sprintf("ack:r1:data from socket client:%d\x00", i)
		if r.Index != i || string(r.Data) != want {
			t.Errorf("response %d = {%d %q}, want {%d %q}", i, r.Index, r.Data, i, want)
		}
	}
}

func TestReceiveAll_Timeout(t *testing.T) {
	t.Parallel()

	_, d := setup(t, "127.0.0.1:20024", "")
	rec := &recorder{}
	c := New(d, Options{Reporter: rec, Timeout: 50 * time.Millisecond})

	b := c.ConnectBatch(context.Background(), 2)
	defer b.Close()

	responses, failures := c.ReceiveAll(b, 1024)
	if len(responses) != 0 {
		t.Errorf("got %d responses, want 0", len(responses))
	}
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(failures))
	}
	for _, f := range failures {
		if f.Kind != fault.TimeoutFailure {
			t.Errorf("failure kind = %s, want %s", f.Kind, fault.TimeoutFailure)
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	_, d := setup(t, "127.0.0.1:20025", "")
	c := New(d, Options{})

	b := c.ConnectBatch(context.Background(), 2)

	if err := b.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if err := b.Conn(0).Close(); err != nil {
		t.Errorf("Conn.Close() after Batch.Close() error = %v, want nil", err)
	}
	if !b.Conn(1).Closed() {
		t.Error("Closed() = false after Close()")
	}

	if err := b.Conn(0).Send([]byte("x\x00"), 0); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Send() on closed conn error = %v, want net.ErrClosed", err)
	}
	if _, err := b.Conn(0).Receive(16, 0); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Receive() on closed conn error = %v, want net.ErrClosed", err)
	}
}
