package config

import (
	"fmt"
	"regexp"
	"strconv"

	"dominicbreuker/sockprobe/pkg/format"
)

// Endpoint identifies an address to listen on or connect to.
// It is immutable once constructed.
type Endpoint struct {
	proto Protocol
	host  string
	port  int
}

// NewEndpoint ...
func NewEndpoint(proto Protocol, host string, port int) Endpoint {
	return Endpoint{proto: proto, host: host, port: port}
}

var endpointRe = regexp.MustCompile(`^(tcp|ws|udp|mux)://([^:]*|\[[0-9a-fA-F:.]+\]):(\d+)$`)

// ParseEndpoint parses "protocol://host:port" where protocol is one of
// tcp, ws, udp or mux. An empty host or "*" means all interfaces.
// IPv6 hosts must be bracketed.
func ParseEndpoint(s string) (Endpoint, error) {
	matches := endpointRe.FindStringSubmatch(s)
	if len(matches) != 4 {
		return Endpoint{}, parsingError(s)
	}

	var proto Protocol
	switch matches[1] {
	case "tcp":
		proto = ProtoTCP
	case "ws":
		proto = ProtoWS
	case "udp":
		proto = ProtoUDP
	case "mux":
		proto = ProtoMux
	default:
		return Endpoint{}, parsingError(s)
	}

	host := matches[2]
	if host == "*" {
		host = ""
	}
	if len(host) > 1 && host[0] == '[' {
		host = host[1 : len(host)-1]
	}

	port, err := strconv.Atoi(matches[3])
	if err != nil || !portInRange(port) {
		return Endpoint{}, parsingError(s)
	}

	return NewEndpoint(proto, host, port), nil
}

func parsingError(s string) error {
	return fmt.Errorf("parsing %s: format should be 'protocol://host:port', where protocol = tcp|ws|udp|mux", s)
}

// Protocol ...
func (e Endpoint) Protocol() Protocol { return e.proto }

// Host ...
func (e Endpoint) Host() string { return e.host }

// Port ...
func (e Endpoint) Port() int { return e.port }

// Addr returns host:port, with IPv6 hosts in brackets.
func (e Endpoint) Addr() string {
	return format.Addr(e.host, e.port)
}

// String returns the endpoint in its parseable form.
func (e Endpoint) String() string {
	return e.proto.String() + "://" + e.Addr()
}
