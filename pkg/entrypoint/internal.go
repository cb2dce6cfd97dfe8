package entrypoint

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"dominicbreuker/sockprobe/pkg/acceptloop"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/connector"
	"dominicbreuker/sockprobe/pkg/fault"
	"dominicbreuker/sockprobe/pkg/log"
	pnet "dominicbreuker/sockprobe/pkg/net"
	"dominicbreuker/sockprobe/pkg/session"
	"dominicbreuker/sockprobe/pkg/terminal"
	"dominicbreuker/sockprobe/pkg/transport"
	"dominicbreuker/sockprobe/pkg/wire"
)

// dialerFactory creates a dialer for an endpoint.
type dialerFactory func(ctx context.Context, ep config.Endpoint, cfg *config.Shared) (transport.Dialer, error)

// listenerFactory binds the accept loop's listener.
type listenerFactory func(aCfg *config.Acceptor, cfg *config.Shared) (net.Listener, error)

// pauseFunc waits between sending and receiving.
type pauseFunc func(ctx context.Context, wait time.Duration, interactive bool, deps *config.Dependencies, logger *log.Logger) error

// env bundles what the entry functions need from the outside world.
type env struct {
	newDialer dialerFactory
	listen    listenerFactory
	pause     pauseFunc
	out       io.Writer // receives the responses
}

// realEnv returns the env used in production.
func realEnv() env {
	return env{
		newDialer: pnet.NewDialer,
		listen:    pnet.Listen,
		pause:     terminal.Pause,
		out:       os.Stdout,
	}
}

// newReporter prints every failure as an error message.
func newReporter(logger *log.Logger) fault.Reporter {
	return fault.ReporterFunc(func(e *fault.Error) {
		logger.ErrorMsg("%s\n", e)
	})
}

// openTraffic opens the traffic log if one is configured. The returned
// close func is never nil.
func openTraffic(cfg *config.Shared) (*log.TrafficLog, func(), error) {
	if cfg.LogFile == "" {
		return nil, func() {}, nil
	}

	t, err := log.OpenTrafficLog(cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return t, func() { _ = t.Close() }, nil
}

// newSession builds the session of a run from the connector config.
func newSession(cCfg *config.Connector, listen config.Endpoint, greeting string) session.Session {
	switch cCfg.Session {
	case "":
		return session.Anonymous(listen, greeting)
	case config.AutoSession:
		return session.New("", listen, greeting)
	default:
		return session.New(cCfg.Session, listen, greeting)
	}
}

// loopOptions configures the accept loop. Handshake events are only
// observed in verbose mode.
func loopOptions(cfg *config.Shared, aCfg *config.Acceptor, rep fault.Reporter, traffic *log.TrafficLog) acceptloop.Options {
	opts := acceptloop.Options{
		ReadSize:  aCfg.ReadSize,
		IOTimeout: cfg.Timeout,
		Reporter:  rep,
		Logger:    cfg.Logger,
		Traffic:   traffic,
	}
	if cfg.Logger.Verbose() {
		opts.Observer = func(ev acceptloop.Event) {
			cfg.Logger.VerboseMsg("Handshake with %s: received %q, match=%v", ev.Peer, wire.Text(ev.Received), ev.Match)
		}
	}
	return opts
}

// logResult tells the user why the accept loop stopped. Failures were
// already printed by the reporter.
func logResult(logger *log.Logger, res acceptloop.Result) {
	switch res.Reason {
	case acceptloop.ReasonSentinel:
		logger.InfoMsg("Stop signal received after %d handshakes\n", res.Handshakes)
	case acceptloop.ReasonFailure:
		logger.InfoMsg("Accept loop stopped after %d handshakes due to %s\n", res.Handshakes, fault.KindOf(res.Err))
	case acceptloop.ReasonCanceled:
		logger.InfoMsg("Accept loop canceled after %d handshakes\n", res.Handshakes)
	}
}

func printResponses(out io.Writer, responses []connector.Response) {
	for _, r := range responses {
		fmt.Fprintf(out, "[%d] %s\n", r.Index, wire.Text(r.Data))
	}
}

// probe is an established batch and the dialer that built it.
type probe struct {
	dialer transport.Dialer
	batch  *connector.Batch
}

// Close closes the batch, then the dialer.
func (p *probe) Close() {
	_ = p.batch.Close()
	_ = transport.CloseDialer(p.dialer)
}

// runProbe fans out to the target, sends every round, pauses and collects
// one response per connection. The returned probe must be closed by the
// caller, also when an error is returned alongside it.
func runProbe(
	ctx context.Context,
	cfg *config.Shared,
	cCfg *config.Connector,
	sess session.Session,
	e env,
	rep fault.Reporter,
	traffic *log.TrafficLog,
) (*probe, error) {
	target := cfg.Endpoint()

	dialer, err := e.newDialer(ctx, target, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating dialer for %s: %w", target, err)
	}

	c := connector.New(dialer, connector.Options{
		Timeout:  cfg.Timeout,
		Reporter: rep,
		Logger:   cfg.Logger,
		Traffic:  traffic,
	})

	p := &probe{dialer: dialer, batch: c.ConnectBatch(ctx, cCfg.Count)}
	cfg.Logger.InfoMsg("Connected %d of %d to %s\n", p.batch.Len(), cCfg.Count, target)

	for round := 1; round <= cCfg.Rounds; round++ {
		failures := c.SendToAll(p.batch, sess.Template(cCfg.Prefix, round), sess)
		cfg.Logger.VerboseMsg("Round %d sent to %d connections", round, p.batch.Len()-len(failures))
	}

	if err := e.pause(ctx, cCfg.Wait, cCfg.Interactive, cfg.Deps, cfg.Logger); err != nil {
		return p, fmt.Errorf("waiting for responses: %w", err)
	}

	responses, _ := c.ReceiveAll(p.batch, cCfg.ReadSize)
	printResponses(e.out, responses)

	return p, nil
}
