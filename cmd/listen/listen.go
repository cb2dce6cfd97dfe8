// Package listen implements the listen command, which only runs the
// accept loop until a peer sends something other than the greeting.
package listen

import (
	"context"
	"fmt"
	"strings"

	"dominicbreuker/sockprobe/cmd/shared"
	"dominicbreuker/sockprobe/pkg/entrypoint"

	"github.com/urfave/cli/v3"
)

// GetCommand returns the CLI command for listen mode.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "listen",
		Usage:       "Greet inbound connections until told to stop",
		Description: shared.GetBaseDescription(),
		ArgsUsage:   shared.GetArgsUsage(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("must provide exactly one argument, got %d (%s)", args.Len(), strings.Join(args.Slice(), ", "))
			}

			ep, err := shared.ParseTransport(args.Get(0))
			if err != nil {
				return fmt.Errorf("parsing transport: %s", err)
			}

			// the shared endpoint is unused when only listening
			cfg := shared.NewSharedConfig(cmd, ep)
			aCfg := shared.NewAcceptorConfig(cmd, ep)

			if err := shared.CheckConfigs(cfg.Logger, cfg, aCfg); err != nil {
				return err
			}

			return entrypoint.Listen(ctx, cfg, aCfg)
		},
		Flags: getFlags(),
	}
}

func getFlags() []cli.Flag {
	flags := []cli.Flag{}

	flags = append(flags, shared.GetCommonFlags()...)
	flags = append(flags, shared.GetListenerFlags()...)

	return flags
}
