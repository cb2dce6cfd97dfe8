package entrypoint

import (
	"context"
	"fmt"

	"dominicbreuker/sockprobe/pkg/acceptloop"
	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/session"
)

// Listen runs only the accept loop and blocks until it stops. A loop that
// stopped on a failure returns that failure.
func Listen(ctx context.Context, cfg *config.Shared, aCfg *config.Acceptor) error {
	return listen(ctx, cfg, aCfg, realEnv())
}

func listen(ctx context.Context, cfg *config.Shared, aCfg *config.Acceptor, e env) error {
	traffic, closeTraffic, err := openTraffic(cfg)
	if err != nil {
		return err
	}
	defer closeTraffic()

	l, err := e.listen(aCfg, cfg)
	if err != nil {
		return fmt.Errorf("binding %s: %w", aCfg.Endpoint(), err)
	}
	cfg.Logger.InfoMsg("Listening on %s\n", aCfg.Endpoint())

	sess := session.Anonymous(aCfg.Endpoint(), aCfg.Greeting)
	loop := acceptloop.New(l, sess.Greeting(), loopOptions(cfg, aCfg, newReporter(cfg.Logger), traffic))
	res := loop.Start(ctx).Wait()
	logResult(cfg.Logger, res)

	if res.Reason == acceptloop.ReasonFailure {
		return fmt.Errorf("accept loop: %w", res.Err)
	}
	return nil
}
