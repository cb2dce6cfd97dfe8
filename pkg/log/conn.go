package log

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// TrafficLog appends every byte sent or received on wrapped connections to
// a file. Many connections may share one TrafficLog.
type TrafficLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenTrafficLog creates or appends to the file at path.
func OpenTrafficLog(path string) (*TrafficLog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening traffic log %s: %w", path, err)
	}

	return &TrafficLog{file: f}, nil
}

// Close closes the log file.
func (t *TrafficLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// Wrap returns conn with all reads and writes recorded under label.
// A nil TrafficLog returns conn unchanged.
func (t *TrafficLog) Wrap(conn net.Conn, label string) net.Conn {
	if t == nil {
		return conn
	}
	return &loggedConn{Conn: conn, log: t, label: label}
}

func (t *TrafficLog) record(label, dir string, b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := fmt.Fprintf(t.file, "%s %s %s %q\n", time.Now().Format(time.RFC3339Nano), label, dir, b)
	return err
}

// loggedConn wraps a net.Conn and records all read/write operations.
type loggedConn struct {
	net.Conn
	log   *TrafficLog
	label string
}

func (lc *loggedConn) Read(b []byte) (int, error) {
	n, err := lc.Conn.Read(b)
	if n > 0 {
		if lerr := lc.log.record(lc.label, "<", b[:n]); lerr != nil {
			return n, fmt.Errorf("logging read: %w", lerr)
		}
	}
	return n, err
}

func (lc *loggedConn) Write(b []byte) (int, error) {
	n, err := lc.Conn.Write(b)
	if n > 0 {
		if lerr := lc.log.record(lc.label, ">", b[:n]); lerr != nil {
			return n, fmt.Errorf("logging write: %w", lerr)
		}
	}
	return n, err
}
