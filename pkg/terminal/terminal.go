// Package terminal implements the pause between sending payloads and
// collecting responses: either a fixed wait or, on an interactive
// terminal, until the user presses Enter.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/log"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// GetIsTerminalFunc returns the terminal check from dependencies, or one
// that inspects os.Stdin.
func GetIsTerminalFunc(deps *config.Dependencies) config.IsTerminalFunc {
	if deps != nil && deps.IsTerminal != nil {
		return deps.IsTerminal
	}
	return func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	}
}

// Pause blocks for wait, or until Enter is pressed if interactive is set
// and stdin is a terminal. It returns ctx.Err() if ctx ends first.
func Pause(ctx context.Context, wait time.Duration, interactive bool, deps *config.Dependencies, logger *log.Logger) error {
	if interactive {
		if GetIsTerminalFunc(deps)() {
			return waitForEnter(ctx, config.GetStdinFunc(deps)(), logger)
		}
		logger.VerboseMsg("Stdin is not a terminal, waiting %v instead", wait)
	}

	if wait <= 0 {
		return ctx.Err()
	}

	logger.VerboseMsg("Waiting %v for responses", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitForEnter(ctx context.Context, in io.Reader, logger *log.Logger) error {
	logger.InfoMsg("Press Enter to collect responses\n")

	r, err := cancelreader.NewReader(in)
	if err != nil {
		return readLine(ctx, io.NopCloser(in), func() bool { return false })
	}
	return readLine(ctx, r, r.Cancel)
}

// readLine waits for one line from r. On ctx end, cancel is called to
// release the pending read where the platform supports it.
func readLine(ctx context.Context, r io.ReadCloser, cancel func() bool) error {
	done := make(chan error, 1)
	go func() {
		defer r.Close()
		_, err := bufio.NewReader(r).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}
