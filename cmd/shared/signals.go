package shared

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// shutdownGrace is how long a canceled run may take to wind down before
// the process exits anyway.
const shutdownGrace = 5 * time.Second

// SetupSignalHandling calls cancel on the first termination signal. A
// second signal, or a run still going after shutdownGrace, exits with
// 128+signal. The returned func stops the handling once the run is over.
func SetupSignalHandling(cancel context.CancelFunc) (stop func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, terminationSignals()...)
	if runtime.GOOS != "windows" {
		// a peer hanging up mid-write must not kill the probe
		signal.Ignore(syscall.SIGPIPE)
	}

	done := make(chan struct{})
	go func() {
		var first os.Signal
		select {
		case first = <-sigCh:
		case <-done:
			return
		}
		cancel()

		select {
		case <-sigCh:
		case <-time.After(shutdownGrace):
		case <-done:
			return
		}
		os.Exit(exitCode(first))
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}

func terminationSignals() []os.Signal {
	if runtime.GOOS == "windows" {
		return []os.Signal{os.Interrupt}
	}
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}
}

// exitCode follows the shell convention of 128 plus the signal number.
func exitCode(s os.Signal) int {
	if ss, ok := s.(syscall.Signal); ok {
		return 128 + int(ss)
	}
	return 1
}
