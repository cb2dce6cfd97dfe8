package config

import (
	"fmt"
	"time"
)

// DefaultCount is the number of outbound connections opened by default.
const DefaultCount = 23

// AutoSession as session tag asks for a generated UUID.
const AutoSession = "auto"

// Connector configures the outbound fan-out.
type Connector struct {
	Count       int           // number of connection attempts
	Prefix      string        // payload prefix, completed with listen address and round
	Rounds      int           // how many times each connection receives a payload
	Session     string        // optional session tag for payloads, AutoSession generates a UUID
	Wait        time.Duration // pause between sending and receiving
	Interactive bool          // wait for Enter instead of Wait if stdin is a terminal
	ReadSize    int           // maximum bytes read per response
}

// Validate ...
func (c *Connector) Validate() []error {
	var errors []error

	if err := nonNegative("count", c.Count); err != nil {
		errors = append(errors, err)
	}

	if err := nonNegative("rounds", c.Rounds); err != nil {
		errors = append(errors, err)
	}

	if err := nonNegative("wait", c.Wait); err != nil {
		errors = append(errors, err)
	}

	if c.ReadSize < 1 {
		errors = append(errors, fmt.Errorf("'--read-size' must be positive"))
	}

	return errors
}
