package config

import (
	"fmt"
)

// DefaultGreeting is sent to every accepted peer. The terminator is added
// when framing.
const DefaultGreeting = "sockprobe got you! welcome!"

// DefaultSentinel is the mismatching answer used to stop an accept loop.
const DefaultSentinel = "no connect"

// DefaultReadSize bounds the single read of a handshake or response.
const DefaultReadSize = 1024

// Acceptor configures the local accept loop.
type Acceptor struct {
	Protocol  Protocol
	Host      string
	Port      int
	Greeting  string
	ReuseAddr bool
	ReadSize  int
}

// Endpoint returns the local listen endpoint.
func (c *Acceptor) Endpoint() Endpoint {
	return NewEndpoint(c.Protocol, c.Host, c.Port)
}

// Validate ...
func (c *Acceptor) Validate() []error {
	var errors []error

	if c.Protocol.String() == "" {
		errors = append(errors, fmt.Errorf("unknown listen protocol %d", c.Protocol))
	}

	if err := validatePort("listen", c.Port); err != nil {
		errors = append(errors, err)
	}

	if c.Greeting == "" {
		errors = append(errors, fmt.Errorf("'--greeting' must not be empty"))
	}

	for i := 0; i < len(c.Greeting); i++ {
		if c.Greeting[i] == 0 {
			errors = append(errors, fmt.Errorf("'--greeting' must not contain NUL bytes"))
			break
		}
	}

	if c.ReadSize < len(c.Greeting)+1 {
		errors = append(errors, fmt.Errorf("'--read-size' must fit the greeting and its terminator (%d bytes)", len(c.Greeting)+1))
	}

	return errors
}
