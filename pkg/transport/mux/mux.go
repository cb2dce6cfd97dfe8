// Package mux provides a transport that carries every connection as a
// yamux stream over a single TCP carrier connection. A batch of N
// connections then costs one TCP handshake instead of N.
package mux

import (
	"io"
	stdlog "log"

	"github.com/hashicorp/yamux"
)

func yamuxConfig() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.LogOutput = nil
	cfg.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags) // discard all console logging in yamux
	return cfg
}
