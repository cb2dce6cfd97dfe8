// Package run implements the run command: probe a target with a batch of
// connections while an accept loop greets whoever connects back.
package run

import (
	"context"
	"fmt"

	"dominicbreuker/sockprobe/cmd/shared"
	"dominicbreuker/sockprobe/pkg/entrypoint"

	"github.com/urfave/cli/v3"
)

// GetCommand returns the CLI command for run mode.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "run",
		Usage:       "Probe a target while accepting connections back",
		Description: shared.GetBaseDescription(),
		ArgsUsage:   shared.GetArgsUsage(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target, err := shared.ParseTarget(cmd)
			if err != nil {
				return err
			}

			listenEp, err := shared.ParseTransport(cmd.String(shared.ListenFlag))
			if err != nil {
				return fmt.Errorf("parsing --%s: %s", shared.ListenFlag, err)
			}

			cfg := shared.NewSharedConfig(cmd, target)
			cCfg := shared.NewConnectorConfig(cmd)
			aCfg := shared.NewAcceptorConfig(cmd, listenEp)

			if err := shared.CheckConfigs(cfg.Logger, cfg, cCfg, aCfg); err != nil {
				return err
			}

			return entrypoint.Run(ctx, cfg, cCfg, aCfg)
		},
		Flags: getFlags(),
	}
}

func getFlags() []cli.Flag {
	flags := []cli.Flag{}

	flags = append(flags, shared.GetCommonFlags()...)
	flags = append(flags, shared.GetConnectorFlags()...)
	flags = append(flags, shared.GetListenFlag(true))
	flags = append(flags, shared.GetListenerFlags()...)

	return flags
}
