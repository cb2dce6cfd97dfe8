// Package entrypoint provides entry functions for the three operation modes
// of sockprobe. These functions wire the connector, the accept loop and the
// transports together, separating that from CLI argument parsing.
package entrypoint

import (
	"context"
	"errors"
	"fmt"

	"dominicbreuker/sockprobe/pkg/acceptloop"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/session"
	"dominicbreuker/sockprobe/pkg/transport"
	"dominicbreuker/sockprobe/pkg/wire"
)

// Run binds the accept loop, probes the target, and finally stops its own
// accept loop by sending the stop message to it. Only a failure to bind is
// fatal; everything else is reported and the run goes on.
func Run(ctx context.Context, cfg *config.Shared, cCfg *config.Connector, aCfg *config.Acceptor) error {
	return run(ctx, cfg, cCfg, aCfg, realEnv())
}

func run(parent context.Context, cfg *config.Shared, cCfg *config.Connector, aCfg *config.Acceptor, e env) error {
	if aCfg.Greeting == config.DefaultSentinel {
		return fmt.Errorf("greeting must differ from the stop message %q", config.DefaultSentinel)
	}

	// child ctx we will cancel on return
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	traffic, closeTraffic, err := openTraffic(cfg)
	if err != nil {
		return err
	}
	defer closeTraffic()

	rep := newReporter(cfg.Logger)

	l, err := e.listen(aCfg, cfg)
	if err != nil {
		return fmt.Errorf("binding %s: %w", aCfg.Endpoint(), err)
	}
	cfg.Logger.InfoMsg("Listening on %s\n", aCfg.Endpoint())

	sess := newSession(cCfg, aCfg.Endpoint(), aCfg.Greeting)
	h := acceptloop.New(l, sess.Greeting(), loopOptions(cfg, aCfg, rep, traffic)).Start(ctx)

	p, err := runProbe(ctx, cfg, cCfg, sess, e, rep, traffic)
	if p != nil {
		defer p.Close()
	}
	if err != nil {
		cancel()
		logResult(cfg.Logger, h.Wait())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if err := stopLoop(ctx, cfg, sess, aCfg.ReadSize, e); err != nil {
		cfg.Logger.ErrorMsg("Sending stop signal: %s\n", err)
		cancel()
	}

	logResult(cfg.Logger, h.Wait())
	return nil
}

// stopLoop connects to the local accept loop, reads its greeting and
// answers with the stop message.
func stopLoop(ctx context.Context, cfg *config.Shared, sess session.Session, readSize int, e env) error {
	ep := sess.Listen()
	if ep.Host() == "" {
		ep = config.NewEndpoint(ep.Protocol(), "127.0.0.1", ep.Port())
	}

	d, err := e.newDialer(ctx, ep, cfg)
	if err != nil {
		return fmt.Errorf("creating dialer for %s: %w", ep, err)
	}
	defer transport.CloseDialer(d)

	conn, err := d.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", ep, err)
	}
	defer conn.Close()

	if _, err := wire.ReadOnce(conn, readSize); err != nil {
		return fmt.Errorf("reading greeting: %w", err)
	}

	if _, err := conn.Write(wire.Frame(config.DefaultSentinel)); err != nil {
		return fmt.Errorf("writing stop message: %w", err)
	}

	cfg.Logger.VerboseMsg("Stop message sent to %s", ep)
	return nil
}
