package tcp

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"dominicbreuker/sockprobe/pkg/wire"
)

func TestMockNetworkSink(t *testing.T) {
	mockNet := NewMockTCPNetwork()

	sink, err := NewSink(mockNet.ListenTCP, "tcp", "127.0.0.1:9001", "ACK: ")
	if err != nil {
		t.Fatalf("failed to start sink: %v", err)
	}
	defer sink.Close()

	client, err := NewClient(mockNet.DialTCP, "tcp", "127.0.0.1:9001")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	msgs := []string{"hello", "world"}
	for _, m := range msgs {
		if err := client.Reply(wire.Frame(m)); err != nil {
			t.Fatalf("Reply failed: %v", err)
		}
	}

	frames, err := sink.WaitFrames(2, time.Second)
	if err != nil {
		t.Fatalf("WaitFrames: %v", err)
	}
	for i, m := range msgs {
		if frames[i].Text != m || frames[i].Conn != 0 {
			t.Errorf("frame %d = %+v, want {0 %s}", i, frames[i], m)
		}
	}

	got, err := client.ReadGreeting(1024)
	if err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	if want := "ACK: hello\x00"; string(got) != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestMockNetworkRefused(t *testing.T) {
	t.Parallel()

	mockNet := NewMockTCPNetwork()
	if _, err := NewClient(mockNet.DialTCP, "tcp", "127.0.0.1:9002"); err == nil {
		t.Error("dial without listener should fail")
	}
}

func TestMockListenerDeadline(t *testing.T) {
	t.Parallel()

	mockNet := NewMockTCPNetwork()
	l, err := mockNet.ListenTCP("tcp", mustAddr(t, "127.0.0.1:9003"))
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer l.Close()

	ml := l.(*MockTCPListener)
	ml.SetDeadline(time.Now().Add(50 * time.Millisecond))

	if _, err := ml.Accept(); !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Errorf("Accept() error = %v, want deadline exceeded", err)
	}
}

func mustAddr(t *testing.T, s string) *net.TCPAddr {
	t.Helper()
	a, err := net.ResolveTCPAddr("tcp", s)
	if err != nil {
		t.Fatalf("ResolveTCPAddr(%s): %v", s, err)
	}
	return a
}
