// Package shared provides common CLI flag definitions and utility functions
// used across sockprobe's command-line interface.
package shared

import (
	"strings"

	"dominicbreuker/sockprobe/pkg/config"

	"github.com/urfave/cli/v3"
)

const categoryCommon = "common"

// VerboseFlag is the name of the flag to enable verbose logging.
const VerboseFlag = "verbose"

// TimeoutFlag is the name of the flag to specify operation timeout in milliseconds.
const TimeoutFlag = "timeout"

// LogFileFlag is the name of the flag to specify a traffic log file.
const LogFileFlag = "log"

// ReadSizeFlag is the name of the flag to bound every single read.
const ReadSizeFlag = "read-size"

// GetBaseDescription returns the base description text for transport
// specifications used in CLI commands.
func GetBaseDescription() string {
	return strings.Join([]string{
		"Specify transport like this: tcp://127.0.0.1:123 (supports tcp|ws|udp|mux)",
		"You can omit the host when listening to bind to all interfaces.",
	}, "\n")
}

// GetArgsUsage returns the arguments usage string for CLI commands.
func GetArgsUsage() string {
	return strings.Join([]string{
		"transport",
	}, " ")
}

// GetCommonFlags returns the CLI flags used by every mode.
func GetCommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:     VerboseFlag,
			Aliases:  []string{"v"},
			Usage:    "Verbose logging",
			Category: categoryCommon,
			Value:    false,
			Required: false,
		},
		&cli.IntFlag{
			Name:     TimeoutFlag,
			Aliases:  []string{"t"},
			Usage:    "Timeout in milliseconds for every connect, accept handshake, send and receive (0 disables)",
			Category: categoryCommon,
			Value:    10000, // 10 seconds default
			Required: false,
		},
		&cli.StringFlag{
			Name:     LogFileFlag,
			Usage:    "Record all traffic to this file",
			Category: categoryCommon,
			Value:    "",
			Required: false,
		},
		&cli.IntFlag{
			Name:     ReadSizeFlag,
			Usage:    "Maximum bytes taken by a single read",
			Category: categoryCommon,
			Value:    config.DefaultReadSize,
			Required: false,
		},
	}
}

const categoryConnector = "connector"

// CountFlag is the name of the flag to specify the number of connection attempts.
const CountFlag = "count"

// RoundsFlag is the name of the flag to specify how often each connection gets a payload.
const RoundsFlag = "rounds"

// PrefixFlag is the name of the flag to specify the payload prefix.
const PrefixFlag = "prefix"

// SessionFlag is the name of the flag to tag payloads with a session.
const SessionFlag = "session"

// WaitFlag is the name of the flag to specify the pause before collecting responses.
const WaitFlag = "wait"

// InteractiveFlag is the name of the flag to wait for Enter instead.
const InteractiveFlag = "interactive"

// DefaultPrefix is what the reference server expects payloads to start with.
const DefaultPrefix = "py test client"

// GetConnectorFlags returns the CLI flags controlling the outbound batch.
func GetConnectorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     CountFlag,
			Aliases:  []string{"n"},
			Usage:    "Number of connection attempts",
			Category: categoryConnector,
			Value:    config.DefaultCount,
			Required: false,
		},
		&cli.IntFlag{
			Name:     RoundsFlag,
			Aliases:  []string{"r"},
			Usage:    "Payloads sent on each connection",
			Category: categoryConnector,
			Value:    2,
			Required: false,
		},
		&cli.StringFlag{
			Name:     PrefixFlag,
			Aliases:  []string{"p"},
			Usage:    "Payload prefix",
			Category: categoryConnector,
			Value:    DefaultPrefix,
			Required: false,
		},
		&cli.StringFlag{
			Name:     SessionFlag,
			Usage:    "Tag payloads with this session ID, '" + config.AutoSession + "' generates one",
			Category: categoryConnector,
			Value:    "",
			Required: false,
		},
		&cli.IntFlag{
			Name:     WaitFlag,
			Aliases:  []string{"w"},
			Usage:    "Milliseconds to wait before collecting responses",
			Category: categoryConnector,
			Value:    1000,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     InteractiveFlag,
			Aliases:  []string{"i"},
			Usage:    "Wait for Enter before collecting responses (terminals only)",
			Category: categoryConnector,
			Value:    false,
			Required: false,
		},
	}
}

const categoryListener = "listener"

// ListenFlag is the name of the flag to specify the accept loop transport.
const ListenFlag = "listen"

// GreetingFlag is the name of the flag to specify the greeting.
const GreetingFlag = "greeting"

// ReuseAddrFlag is the name of the flag to enable port reuse.
const ReuseAddrFlag = "reuse-addr"

// GetListenFlag returns the flag naming the accept loop transport. In
// connect mode it is optional and only ends up in the payloads.
func GetListenFlag(required bool) cli.Flag {
	usage := "Transport to accept connections on"
	if !required {
		usage = "Listen address announced in payloads"
	}

	return &cli.StringFlag{
		Name:     ListenFlag,
		Aliases:  []string{"L"},
		Usage:    usage,
		Category: categoryListener,
		Value:    "",
		Required: required,
	}
}

// GetListenerFlags returns the CLI flags controlling the accept loop.
func GetListenerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     GreetingFlag,
			Aliases:  []string{"g"},
			Usage:    "Greeting sent to every inbound connection",
			Category: categoryListener,
			Value:    config.DefaultGreeting,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     ReuseAddrFlag,
			Usage:    "Let the listening socket share its port (SO_REUSEPORT, SO_REUSEADDR on windows)",
			Category: categoryListener,
			Value:    false,
			Required: false,
		},
	}
}
