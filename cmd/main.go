package main

import (
	"context"
	"fmt"
	"os"

	"dominicbreuker/sockprobe/cmd/connect"
	"dominicbreuker/sockprobe/cmd/listen"
	"dominicbreuker/sockprobe/cmd/run"
	"dominicbreuker/sockprobe/cmd/shared"
	"dominicbreuker/sockprobe/cmd/version"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignals := shared.SetupSignalHandling(cancel)

	err := newApp().Run(ctx, os.Args)
	stopSignals()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "sockprobe",
		Usage: "fan out test connections and greet whoever connects back",
		Commands: []*cli.Command{
			run.GetCommand(),
			connect.GetCommand(),
			listen.GetCommand(),
			version.GetCommand(),
		},
	}
}
