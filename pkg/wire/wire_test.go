package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrame(t *testing.T) {
	t.Parallel()

	if got := Frame("hi"); !bytes.Equal(got, []byte("hi\x00")) {
		t.Errorf("Frame(hi) = %q", got)
	}
	if got := Frame(""); !bytes.Equal(got, []byte{0}) {
		t.Errorf("Frame(\"\") = %q", got)
	}
}

func TestPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		session  string
		index    int
		want     string
	}{
		{"no session", "msg", "", 0, "msg:data from socket client:0\x00"},
		{"no session index 4", "msg", "", 4, "msg:data from socket client:4\x00"},
		{"with session", "msg", "42", 1, "msg:42:data from socket client:1\x00"},
		{"round template", "py test client:127.0.0.1:9000:1", "", 22, "py test client:127.0.0.1:9000:1:data from socket client:22\x00"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := string(Payload(tc.template, tc.session, tc.index)); got != tc.want {
				t.Errorf("Payload() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	if got := Text([]byte("hi\x00")); got != "hi" {
		t.Errorf("Text() = %q", got)
	}
	if got := Text([]byte("hi")); got != "hi" {
		t.Errorf("Text() = %q", got)
	}
}

func TestReadOnce(t *testing.T) {
	t.Parallel()

	got, err := ReadOnce(strings.NewReader("hello world\x00"), 5)
	if err != nil || string(got) != "hello" {
		t.Errorf("ReadOnce() = %q, %v", got, err)
	}

	got, err = ReadOnce(strings.NewReader(""), 16)
	if err != nil || len(got) != 0 {
		t.Errorf("ReadOnce(empty) = %q, %v; want empty, nil", got, err)
	}

	if _, err := ReadOnce(strings.NewReader("x"), 0); err == nil {
		t.Error("ReadOnce(max=0) should fail")
	}

	boom := errors.New("boom")
	if _, err := ReadOnce(errReader{boom}, 8); !errors.Is(err, boom) {
		t.Errorf("ReadOnce(errReader) error = %v, want %v", err, boom)
	}
}

func TestReadFrame(t *testing.T) {
	t.Parallel()

	r := bufio.NewReader(strings.NewReader("a\x00bc\x00tail"))

	for _, want := range []string{"a", "bc"} {
		got, err := ReadFrame(r)
		if err != nil || got != want {
			t.Fatalf("ReadFrame() = %q, %v; want %q", got, err, want)
		}
	}

	if _, err := ReadFrame(r); err != io.EOF {
		t.Errorf("ReadFrame(unterminated) error = %v, want EOF", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
