//go:build unix && !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package tcp

import (
	"golang.org/x/sys/unix"
)

const sockoptName = "SO_REUSEADDR"

func setSockoptReuse(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}
