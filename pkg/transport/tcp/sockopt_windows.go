//go:build windows

package tcp

import (
	"golang.org/x/sys/windows"
)

const sockoptName = "SO_REUSEADDR"

func setSockoptReuse(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}
