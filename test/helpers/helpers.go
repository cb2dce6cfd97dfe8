// Package helpers provides common utilities for integration and end-to-end tests.
package helpers

import (
	"time"

	mocks_tcp "dominicbreuker/sockprobe/mocks/tcp"
	"dominicbreuker/sockprobe/pkg/config"
)

// Setup holds a mock network and configs wired to it.
type Setup struct {
	TCPNetwork   *mocks_tcp.MockTCPNetwork
	Deps         *config.Dependencies
	SharedCfg    *config.Shared
	ConnectorCfg *config.Connector
	AcceptorCfg  *config.Acceptor
}

// SetupMockDependenciesAndConfigs creates a mock TCP network and default
// configs: target tcp://127.0.0.1:12345, accept loop on tcp://127.0.0.1:12346,
// 3 connections and 2 rounds.
func SetupMockDependenciesAndConfigs() *Setup {
	mockNet := mocks_tcp.NewMockTCPNetwork()
	deps := &config.Dependencies{
		TCPDialer:   mockNet.DialTCPContext,
		TCPListener: mockNet.ListenTCP,
		IsTerminal:  func() bool { return false },
	}

	return &Setup{
		TCPNetwork: mockNet,
		Deps:       deps,
		SharedCfg: &config.Shared{
			Protocol: config.ProtoTCP,
			Host:     "127.0.0.1",
			Port:     12345,
			Timeout:  2 * time.Second,
			Deps:     deps,
		},
		ConnectorCfg: &config.Connector{
			Count:    3,
			Prefix:   "py test client",
			Rounds:   2,
			Wait:     500 * time.Millisecond,
			ReadSize: config.DefaultReadSize,
		},
		AcceptorCfg: &config.Acceptor{
			Protocol: config.ProtoTCP,
			Host:     "127.0.0.1",
			Port:     12346,
			Greeting: config.DefaultGreeting,
			ReadSize: config.DefaultReadSize,
		},
	}
}
