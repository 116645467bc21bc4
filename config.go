// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"net"
	"time"
)

// Config holds common configuration for sctpcat operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used by [*DNSResolver] to reach the DNS server.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// NewPoller creates the readiness poller used by [*Engine].
	//
	// Set by [NewConfig] to [NewEpollPoller].
	NewPoller func(maxEvents int) (Poller, error)

	// Resolver is used by [*ResolveFunc].
	//
	// Set by [NewConfig] to [net.DefaultResolver].
	Resolver Resolver

	// Sockets performs the socket system calls.
	//
	// Set by [NewConfig] to [DefaultSockets].
	Sockets Sockets

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		ErrClassifier: DefaultErrClassifier,
		NewPoller:     NewEpollPoller,
		Resolver:      net.DefaultResolver,
		Sockets:       DefaultSockets(),
		TimeNow:       time.Now,
	}
}
