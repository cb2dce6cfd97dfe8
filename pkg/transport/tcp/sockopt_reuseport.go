//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package tcp

import (
	"golang.org/x/sys/unix"
)

const sockoptName = "SO_REUSEPORT"

// Go already sets SO_REUSEADDR on unix listeners, so reuse means
// SO_REUSEPORT here: several probes may bind the same port.
func setSockoptReuse(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
