// Package wire implements the message format exchanged by sockprobe:
// printable text followed by a single NUL terminator. There is no length
// prefix, checksum or version field; messages are compared, not parsed.
package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Terminator ends every message.
const Terminator byte = 0

// Frame returns text followed by the terminator.
func Frame(text string) []byte {
	b := make([]byte, 0, len(text)+1)
	b = append(b, text...)
	return append(b, Terminator)
}

// Payload builds the framed payload sent over batch connection index:
// "<template>[:<session>]:data from socket client:<index>".
func Payload(template, session string, index int) []byte {
	text := template
	if session != "" {
		text += ":" + session
	}
	return Frame(text + ":data from socket client:" + strconv.Itoa(index))
}

// Text strips one trailing terminator from b for display.
func Text(b []byte) string {
	return string(bytes.TrimSuffix(b, []byte{Terminator}))
}

// ReadOnce performs a single read of at most max bytes. It does not loop:
// whatever the peer delivered first is returned. A peer that closes without
// sending anything yields an empty slice and a nil error.
func ReadOnce(r io.Reader, max int) ([]byte, error) {
	if max < 1 {
		return nil, fmt.Errorf("read size must be positive, got %d", max)
	}

	buf := make([]byte, max)
	n, err := r.Read(buf)
	if err == io.EOF {
		err = nil
	}
	return buf[:n], err
}

// ReadFrame reads up to and including the next terminator and returns the
// text without it. Used by peers that consume a stream of messages.
func ReadFrame(r *bufio.Reader) (string, error) {
	b, err := r.ReadBytes(Terminator)
	if err != nil {
		return "", err
	}
	return string(b[:len(b)-1]), nil
}
