package config

import "fmt"

// ValidatableConfig is implemented by every config struct.
type ValidatableConfig interface {
	Validate() []error
}

// Validate collects the problems of all cfgs in order. Nil entries are
// skipped.
func Validate(cfgs ...ValidatableConfig) []error {
	var out []error
	for _, cfg := range cfgs {
		if cfg == nil {
			continue
		}
		out = append(out, cfg.Validate()...)
	}
	return out
}

const (
	minPort = 1
	maxPort = 65535
)

func portInRange(port int) bool {
	return port >= minPort && port <= maxPort
}

// validatePort names the endpoint (target, listen) whose port is off.
func validatePort(which string, port int) error {
	if portInRange(port) {
		return nil
	}
	return fmt.Errorf("%s port %d not in [%d, %d]", which, port, minPort, maxPort)
}

// nonNegative rejects a negative value for the named flag.
func nonNegative[T ~int | ~int64](flag string, v T) error {
	if v < 0 {
		return fmt.Errorf("'--%s' must not be negative", flag)
	}
	return nil
}
