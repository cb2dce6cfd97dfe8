// Package connect implements the connect command, which probes a target
// without accepting connections.
package connect

import (
	"context"
	"fmt"

	"dominicbreuker/sockprobe/cmd/shared"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/entrypoint"

	"github.com/urfave/cli/v3"
)

// GetCommand returns the CLI command for connect mode.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "connect",
		Usage:       "Probe a target with a batch of connections",
		Description: shared.GetBaseDescription(),
		ArgsUsage:   shared.GetArgsUsage(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target, err := shared.ParseTarget(cmd)
			if err != nil {
				return err
			}

			var announce config.Endpoint
			if s := cmd.String(shared.ListenFlag); s != "" {
				if announce, err = shared.ParseTransport(s); err != nil {
					return fmt.Errorf("parsing --%s: %s", shared.ListenFlag, err)
				}
			}

			cfg := shared.NewSharedConfig(cmd, target)
			cCfg := shared.NewConnectorConfig(cmd)

			if err := shared.CheckConfigs(cfg.Logger, cfg, cCfg); err != nil {
				return err
			}

			return entrypoint.Connect(ctx, cfg, cCfg, announce)
		},
		Flags: getFlags(),
	}
}

func getFlags() []cli.Flag {
	flags := []cli.Flag{}

	flags = append(flags, shared.GetCommonFlags()...)
	flags = append(flags, shared.GetConnectorFlags()...)
	flags = append(flags, shared.GetListenFlag(false))

	return flags
}
