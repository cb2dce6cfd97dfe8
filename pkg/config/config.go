// Package config holds the configuration values of sockprobe commands and
// the injectable dependencies used to create network resources.
package config

import (
	"fmt"
	"time"

	"dominicbreuker/sockprobe/pkg/log"
)

// Protocol selects the transport used for an endpoint.
type Protocol int

const (
	ProtoTCP Protocol = iota + 1
	ProtoWS
	ProtoUDP
	ProtoMux
)

// String returns the URL scheme of the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoWS:
		return "ws"
	case ProtoUDP:
		return "udp"
	case ProtoMux:
		return "mux"
	default:
		return ""
	}
}

// Shared contains the settings common to all commands.
type Shared struct {
	Protocol Protocol
	Host     string
	Port     int
	Timeout  time.Duration // zero disables timeouts
	Verbose  bool
	LogFile  string

	Logger *log.Logger
	Deps   *Dependencies
}

// Endpoint returns the remote (or local, for listen) endpoint of cfg.
func (c *Shared) Endpoint() Endpoint {
	return NewEndpoint(c.Protocol, c.Host, c.Port)
}

// Validate ...
func (c *Shared) Validate() []error {
	var errors []error

	if c.Protocol.String() == "" {
		errors = append(errors, fmt.Errorf("unknown protocol %d", c.Protocol))
	}

	if err := validatePort("target", c.Port); err != nil {
		errors = append(errors, err)
	}

	if err := nonNegative("timeout", c.Timeout); err != nil {
		errors = append(errors, err)
	}

	return errors
}
