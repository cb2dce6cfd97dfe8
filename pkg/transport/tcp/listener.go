package tcp

import (
	"fmt"
	"net"
	"syscall"

	"dominicbreuker/sockprobe/pkg/config"
)

// NewListener binds a TCP listener on addr. With reuseAddr the socket gets
// SO_REUSEPORT on linux and the BSDs, so several listeners can share the
// port, and SO_REUSEADDR on windows. The listen backlog is the operating
// system default.
func NewListener(addr string, reuseAddr bool, deps *config.Dependencies) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %w", addr, err)
	}

	var control config.ControlFunc
	if reuseAddr {
		control = reuseAddrControl
	}

	nl, err := config.GetTCPListenerFunc(deps, control)("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen(tcp, %s): %w", addr, err)
	}

	return nl, nil
}

func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = setSockoptReuse(fd)
	}); err != nil {
		return err
	}
	if serr != nil {
		return fmt.Errorf("setsockopt %s on %s: %w", sockoptName, address, serr)
	}
	return nil
}
