// Package net selects the transport for an endpoint. NewDialer and Listen
// are the only places that know which protocols exist.
package net

import (
	"context"
	"fmt"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/transport"
	"dominicbreuker/sockprobe/pkg/transport/mux"
	"dominicbreuker/sockprobe/pkg/transport/tcp"
	"dominicbreuker/sockprobe/pkg/transport/udp"
	"dominicbreuker/sockprobe/pkg/transport/ws"
)

// NewDialer returns a dialer for ep. Every Dial is bounded by cfg.Timeout.
// ctx is the lifetime of connections that need one (ws). Callers should
// release the dialer with transport.CloseDialer when done.
func NewDialer(ctx context.Context, ep config.Endpoint, cfg *config.Shared) (transport.Dialer, error) {
	cfg.Logger.VerboseMsg("Creating dialer for %s", ep)

	d, err := createDialer(ctx, ep, cfg)
	if err != nil {
		cfg.Logger.VerboseMsg("Failed to create dialer for %s: %v", ep, err)
		return nil, err
	}

	return transport.WithTimeout(d, cfg.Timeout), nil
}

func createDialer(ctx context.Context, ep config.Endpoint, cfg *config.Shared) (transport.Dialer, error) {
	addr := ep.Addr()

	switch ep.Protocol() {
	case config.ProtoTCP:
		d, err := tcp.NewDialer(addr, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create TCP dialer: %w", err)
		}
		return d, nil

	case config.ProtoWS:
		return ws.NewDialer(ctx, addr), nil

	case config.ProtoUDP:
		d, err := udp.NewDialer(addr, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create UDP dialer: %w", err)
		}
		return d, nil

	case config.ProtoMux:
		carrier, err := tcp.NewDialer(addr, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create mux carrier dialer: %w", err)
		}
		return mux.NewDialer(carrier), nil

	default:
		return nil, fmt.Errorf("unsupported protocol %d", ep.Protocol())
	}
}
