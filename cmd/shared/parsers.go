package shared

import (
	"fmt"
	"strings"
	"time"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/log"

	"github.com/urfave/cli/v3"
)

// ParseTransport parses a transport string in the format "protocol://host:port"
// where protocol is one of tcp, ws, udp or mux. The host can be empty or "*" to
// bind to all interfaces.
func ParseTransport(s string) (config.Endpoint, error) {
	return config.ParseEndpoint(s)
}

// ParseTarget parses the single positional argument as the transport to
// connect to. Targets need a host.
func ParseTarget(cmd *cli.Command) (config.Endpoint, error) {
	args := cmd.Args()
	if args.Len() != 1 {
		return config.Endpoint{}, fmt.Errorf("must provide exactly one argument, got %d (%s)", args.Len(), strings.Join(args.Slice(), ", "))
	}

	ep, err := ParseTransport(args.Get(0))
	if err != nil {
		return config.Endpoint{}, fmt.Errorf("parsing transport: %s", err)
	}
	if ep.Host() == "" {
		return config.Endpoint{}, fmt.Errorf("parsing transport: %s: specify a host", args.Get(0))
	}

	return ep, nil
}

// NewSharedConfig builds the config common to all modes.
func NewSharedConfig(cmd *cli.Command, target config.Endpoint) *config.Shared {
	verbose := cmd.Bool(VerboseFlag)

	return &config.Shared{
		Protocol: target.Protocol(),
		Host:     target.Host(),
		Port:     target.Port(),
		Timeout:  time.Duration(cmd.Int(TimeoutFlag)) * time.Millisecond,
		Verbose:  verbose,
		LogFile:  cmd.String(LogFileFlag),
		Logger:   log.NewLogger(verbose),
	}
}

// NewConnectorConfig builds the connector config from the connector flags.
func NewConnectorConfig(cmd *cli.Command) *config.Connector {
	return &config.Connector{
		Count:       int(cmd.Int(CountFlag)),
		Prefix:      cmd.String(PrefixFlag),
		Rounds:      int(cmd.Int(RoundsFlag)),
		Session:     cmd.String(SessionFlag),
		Wait:        time.Duration(cmd.Int(WaitFlag)) * time.Millisecond,
		Interactive: cmd.Bool(InteractiveFlag),
		ReadSize:    int(cmd.Int(ReadSizeFlag)),
	}
}

// NewAcceptorConfig builds the accept loop config for ep from the listener flags.
func NewAcceptorConfig(cmd *cli.Command, ep config.Endpoint) *config.Acceptor {
	return &config.Acceptor{
		Protocol:  ep.Protocol(),
		Host:      ep.Host(),
		Port:      ep.Port(),
		Greeting:  cmd.String(GreetingFlag),
		ReuseAddr: cmd.Bool(ReuseAddrFlag),
		ReadSize:  int(cmd.Int(ReadSizeFlag)),
	}
}

// CheckConfigs validates cfgs and prints every problem.
func CheckConfigs(logger *log.Logger, cfgs ...config.ValidatableConfig) error {
	errors := config.Validate(cfgs...)
	if len(errors) == 0 {
		return nil
	}

	logger.ErrorMsg("Argument validation errors:\n")
	for _, err := range errors {
		logger.ErrorMsg(" - %s\n", err)
	}
	return fmt.Errorf("exiting")
}
