package entrypoint

import (
	"context"
	"errors"

	"dominicbreuker/sockprobe/pkg/config"
)

// Connect probes the target without running an accept loop. If announce
// is set, payloads name it as the listen address.
func Connect(ctx context.Context, cfg *config.Shared, cCfg *config.Connector, announce config.Endpoint) error {
	return connect(ctx, cfg, cCfg, announce, realEnv())
}

func connect(ctx context.Context, cfg *config.Shared, cCfg *config.Connector, announce config.Endpoint, e env) error {
	traffic, closeTraffic, err := openTraffic(cfg)
	if err != nil {
		return err
	}
	defer closeTraffic()

	sess := newSession(cCfg, announce, "")
	p, err := runProbe(ctx, cfg, cCfg, sess, e, newReporter(cfg.Logger), traffic)
	if p != nil {
		defer p.Close()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
