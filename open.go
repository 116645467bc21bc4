// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"log/slog"
	"net/netip"
	"time"
)

// DefaultBacklog is the listen backlog used by [NewListenFunc].
const DefaultBacklog = 10

// NewOpenEndpointFunc returns a new [*OpenEndpointFunc].
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The family argument selects IPv4 or IPv6 sockets.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewOpenEndpointFunc(cfg *Config, family Family, logger SLogger) *OpenEndpointFunc {
	return &OpenEndpointFunc{
		ErrClassifier: cfg.ErrClassifier,
		Family:        family,
		Logger:        logger,
		Sockets:       cfg.Sockets,
		TimeNow:       cfg.TimeNow,
	}
}

// OpenEndpointFunc creates a non-blocking SCTP one-to-many socket, binds it
// when the input address is valid, and subscribes it to every notification
// class. Pass the zero [netip.AddrPort] to skip binding.
//
// Returns either a valid [*Endpoint] or an [*OpError], never both. The
// error kind is [ErrBind] for bind failures and [ErrSocketConfig] otherwise.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type OpenEndpointFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewOpenEndpointFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Family is the address family of the socket.
	//
	// Set by [NewOpenEndpointFunc] to the user-provided value.
	Family Family

	// Logger is the [SLogger] to use.
	//
	// Set by [NewOpenEndpointFunc] to the user-provided logger.
	Logger SLogger

	// Sockets performs the system calls.
	//
	// Set by [NewOpenEndpointFunc] from [Config.Sockets].
	Sockets Sockets

	// TimeNow is the function to get the current time.
	//
	// Set by [NewOpenEndpointFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[netip.AddrPort, *Endpoint] = &OpenEndpointFunc{}

// Call invokes the [*OpenEndpointFunc].
func (op *OpenEndpointFunc) Call(ctx context.Context, local netip.AddrPort) (*Endpoint, error) {
	if local.IsValid() && familyOf(local.Addr()) != op.Family {
		err := newOpError(ErrSocketConfig, "socket", nil)
		err.Family = familyOf(local.Addr())
		return nil, err
	}

	t0 := op.TimeNow()
	op.Logger.Info(
		"socketStart",
		slog.String("family", op.Family.String()),
		slog.String("localAddr", addrPortString(local)),
		slog.Time("t", t0),
	)
	ep, err := op.open(local)
	fd := -1
	if ep != nil {
		fd = ep.fd
	}
	op.Logger.Info(
		"socketDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("family", op.Family.String()),
		slog.Int("fd", fd),
		slog.String("localAddr", addrPortString(local)),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	return ep, err
}

func (op *OpenEndpointFunc) open(local netip.AddrPort) (*Endpoint, error) {
	fd, err := op.Sockets.Socket(op.Family)
	if err != nil {
		return nil, newOpError(ErrSocketConfig, "socket", err)
	}
	ep := &Endpoint{fd: fd, family: op.Family, sockets: op.Sockets}

	if err := op.Sockets.SetNonblock(fd); err != nil {
		ep.Close()
		return nil, newOpError(ErrSocketConfig, "fcntl", err)
	}

	if local.IsValid() {
		if err := op.bind(ep, local); err != nil {
			ep.Close()
			return nil, err
		}
	}

	if err := op.Sockets.Setsockopt(fd, sctpEvents, encodeEventSubscribe()); err != nil {
		ep.Close()
		return nil, newOpError(ErrSocketConfig, "setsockopt(SCTP_EVENTS)", err)
	}
	op.Logger.Info("subscribeDone", slog.Int("fd", fd), slog.Time("t", op.TimeNow()))
	return ep, nil
}

func (op *OpenEndpointFunc) bind(ep *Endpoint, local netip.AddrPort) error {
	t0 := op.TimeNow()
	op.Logger.Info(
		"bindStart",
		slog.Int("fd", ep.fd),
		slog.String("localAddr", local.String()),
		slog.Time("t", t0),
	)
	var err error
	if serr := op.Sockets.Bind(ep.fd, local); serr != nil {
		err = newOpError(ErrBind, "bind", serr)
	}
	op.Logger.Info(
		"bindDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.Int("fd", ep.fd),
		slog.String("localAddr", local.String()),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	if err != nil {
		return err
	}
	ep.local = local
	return nil
}

// NewListenFunc returns a new [*ListenFunc] using [DefaultBacklog].
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewListenFunc(cfg *Config, logger SLogger) *ListenFunc {
	return &ListenFunc{
		Backlog:       DefaultBacklog,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Sockets:       cfg.Sockets,
		TimeNow:       cfg.TimeNow,
	}
}

// ListenFunc marks a bound [*Endpoint] as passively accepting associations.
//
// On failure it closes the endpoint and returns an [*OpError] of kind
// [ErrSocketConfig].
type ListenFunc struct {
	// Backlog is the listen backlog.
	//
	// Set by [NewListenFunc] to [DefaultBacklog].
	Backlog int

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewListenFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewListenFunc] to the user-provided logger.
	Logger SLogger

	// Sockets performs the system calls.
	//
	// Set by [NewListenFunc] from [Config.Sockets].
	Sockets Sockets

	// TimeNow is the function to get the current time.
	//
	// Set by [NewListenFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[*Endpoint, *Endpoint] = &ListenFunc{}

// Call invokes the [*ListenFunc].
func (op *ListenFunc) Call(ctx context.Context, ep *Endpoint) (*Endpoint, error) {
	var err error
	if serr := op.Sockets.Listen(ep.fd, op.Backlog); serr != nil {
		err = newOpError(ErrSocketConfig, "listen", serr)
	}
	op.Logger.Info(
		"listenDone",
		slog.Int("backlog", op.Backlog),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.Int("fd", ep.fd),
		slog.String("localAddr", addrPortString(ep.local)),
		slog.Time("t", op.TimeNow()),
	)
	if err != nil {
		ep.Close()
		return nil, err
	}
	return ep, nil
}
