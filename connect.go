//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package sctpcat

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"syscall"
	"time"
)

// NewConnectFunc returns a new [*ConnectFunc] targeting peer.
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The peer argument is the remote endpoint.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewConnectFunc(cfg *Config, peer netip.AddrPort, logger SLogger) *ConnectFunc {
	return &ConnectFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Peer:          peer,
		Sockets:       cfg.Sockets,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnectFunc starts establishing an association from an [*Endpoint].
//
// The socket is non-blocking, so the association usually completes later:
// EINPROGRESS and EALREADY are logged and treated as success. The outcome
// is reported by an [*AssociationChange] notification (SCTP_COMM_UP or
// SCTP_CANT_STR_ASSOC) observed by the [*Engine]. There is no timeout.
//
// Any other failure closes the endpoint and returns an [*OpError] of kind
// [ErrConnect].
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ConnectFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConnectFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewConnectFunc] to the user-provided logger.
	Logger SLogger

	// Peer is the remote endpoint.
	//
	// Set by [NewConnectFunc] to the user-provided value.
	Peer netip.AddrPort

	// Sockets performs the system calls.
	//
	// Set by [NewConnectFunc] from [Config.Sockets].
	Sockets Sockets

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewConnectFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[*Endpoint, *Endpoint] = &ConnectFunc{}

// Call invokes the [*ConnectFunc].
func (op *ConnectFunc) Call(ctx context.Context, ep *Endpoint) (*Endpoint, error) {
	t0 := op.TimeNow()
	op.logConnectStart(ep, t0)
	err := op.Sockets.Connect(ep.fd, op.Peer)
	if errors.Is(err, syscall.EINPROGRESS) || errors.Is(err, syscall.EALREADY) {
		op.Logger.Info(
			"connectInProgress",
			slog.String("errClass", op.ErrClassifier.Classify(err)),
			slog.Int("fd", ep.fd),
			slog.String("remoteAddr", op.Peer.String()),
			slog.Time("t", op.TimeNow()),
		)
		err = nil
	}
	if err != nil {
		err = newOpError(ErrConnect, "connect", err)
	}
	op.logConnectDone(ep, t0, err)
	if err != nil {
		ep.Close()
		return nil, err
	}
	ep.remote = op.Peer
	return ep, nil
}

func (op *ConnectFunc) logConnectStart(ep *Endpoint, t0 time.Time) {
	op.Logger.Info(
		"connectStart",
		slog.Int("fd", ep.fd),
		slog.String("localAddr", addrPortString(ep.local)),
		slog.String("protocol", "sctp"),
		slog.String("remoteAddr", op.Peer.String()),
		slog.Time("t", t0),
	)
}

func (op *ConnectFunc) logConnectDone(ep *Endpoint, t0 time.Time, err error) {
	op.Logger.Info(
		"connectDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.Int("fd", ep.fd),
		slog.String("localAddr", addrPortString(ep.local)),
		slog.String("protocol", "sctp"),
		slog.String("remoteAddr", op.Peer.String()),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
