//go:build !unix && !windows

package tcp

import "errors"

const sockoptName = "address reuse"

func setSockoptReuse(fd uintptr) error {
	return errors.New("address reuse not supported on this platform")
}
