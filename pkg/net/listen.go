package net

import (
	"fmt"
	"net"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/transport/mux"
	"dominicbreuker/sockprobe/pkg/transport/tcp"
	"dominicbreuker/sockprobe/pkg/transport/udp"
	"dominicbreuker/sockprobe/pkg/transport/ws"
)

// Listen binds the local endpoint of aCfg. A failure here is the one
// unrecoverable startup error of sockprobe.
func Listen(aCfg *config.Acceptor, cfg *config.Shared) (net.Listener, error) {
	ep := aCfg.Endpoint()
	addr := ep.Addr()
	cfg.Logger.VerboseMsg("Creating listener for protocol %s at %s", ep.Protocol(), addr)

	switch ep.Protocol() {
	case config.ProtoTCP:
		l, err := tcp.NewListener(addr, aCfg.ReuseAddr, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create TCP listener: %w", err)
		}
		return l, nil

	case config.ProtoWS:
		l, err := ws.NewListener(addr, aCfg.ReuseAddr, cfg.Timeout, cfg.Logger, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create WebSocket listener: %w", err)
		}
		return l, nil

	case config.ProtoUDP:
		l, err := udp.NewListener(addr, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create UDP listener: %w", err)
		}
		return l, nil

	case config.ProtoMux:
		nl, err := tcp.NewListener(addr, aCfg.ReuseAddr, cfg.Deps)
		if err != nil {
			return nil, fmt.Errorf("create mux carrier listener: %w", err)
		}
		return mux.NewListener(nl, cfg.Logger), nil

	default:
		return nil, fmt.Errorf("unsupported protocol %d", ep.Protocol())
	}
}
