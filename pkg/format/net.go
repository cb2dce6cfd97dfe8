// Package format renders addresses for dialing, listening and log output.
package format

import (
	"net"
	"strconv"
)

// Addr joins host and port. IPv6 hosts are bracketed.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Peer returns the remote address of conn for log output, or "?" if unknown.
func Peer(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return "?"
	}
	return conn.RemoteAddr().String()
}
