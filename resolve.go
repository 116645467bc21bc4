// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"log/slog"
	"net/netip"
	"strconv"
	"time"
)

// Resolver abstracts the [*net.Resolver] behavior.
//
// By making [*ResolveFunc] depend on an abstract implementation we
// allow for unit testing and for using [*DNSResolver].
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// HostPort is the input of [*ResolveFunc].
type HostPort struct {
	// Host is a name or address literal. Empty means the wildcard address
	// when Passive is true and the loopback address otherwise.
	Host string

	// Port is a number or service name. Empty means port zero.
	Port string

	// Passive requests an address suitable for binding a listener.
	Passive bool
}

// NewResolveFunc returns a new [*ResolveFunc] for the given family.
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewResolveFunc(cfg *Config, family Family, logger SLogger) *ResolveFunc {
	return &ResolveFunc{
		ErrClassifier: cfg.ErrClassifier,
		Family:        family,
		Logger:        logger,
		Resolver:      cfg.Resolver,
		TimeNow:       cfg.TimeNow,
	}
}

// ResolveFunc resolves a [HostPort] to a single [netip.AddrPort] of the
// configured family.
//
// Returns either a valid address or an [*OpError] of kind [ErrResolution].
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ResolveFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewResolveFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Family is the address family to resolve for.
	//
	// Set by [NewResolveFunc] to the user-provided value.
	Family Family

	// Logger is the [SLogger] to use.
	//
	// Set by [NewResolveFunc] to the user-provided logger.
	Logger SLogger

	// Resolver performs host and service lookups.
	//
	// Set by [NewResolveFunc] from [Config.Resolver].
	Resolver Resolver

	// TimeNow is the function to get the current time.
	//
	// Set by [NewResolveFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[HostPort, netip.AddrPort] = &ResolveFunc{}

// Call invokes the [*ResolveFunc].
func (op *ResolveFunc) Call(ctx context.Context, hp HostPort) (netip.AddrPort, error) {
	t0 := op.TimeNow()
	op.Logger.Info(
		"resolveStart",
		slog.String("family", op.Family.String()),
		slog.String("host", hp.Host),
		slog.Bool("passive", hp.Passive),
		slog.String("port", hp.Port),
		slog.Time("t", t0),
	)
	addr, err := op.resolve(ctx, hp)
	op.Logger.Info(
		"resolveDone",
		slog.String("addr", addrPortString(addr)),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("family", op.Family.String()),
		slog.String("host", hp.Host),
		slog.String("port", hp.Port),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	return addr, err
}

func (op *ResolveFunc) resolve(ctx context.Context, hp HostPort) (netip.AddrPort, error) {
	port, err := op.lookupPort(ctx, hp.Port)
	if err != nil {
		return netip.AddrPort{}, newOpError(ErrResolution, "lookupPort", err)
	}

	if hp.Host == "" {
		return netip.AddrPortFrom(op.defaultAddr(hp.Passive), port), nil
	}

	addrs, err := op.Resolver.LookupNetIP(ctx, op.Family.network(), hp.Host)
	if err != nil {
		return netip.AddrPort{}, newOpError(ErrResolution, "lookupHost", err)
	}
	for _, addr := range addrs {
		if familyOf(addr) == op.Family {
			return netip.AddrPortFrom(addr.Unmap(), port), nil
		}
	}
	return netip.AddrPort{}, newOpError(ErrResolution, "lookupHost", errNoAddress)
}

func (op *ResolveFunc) lookupPort(ctx context.Context, service string) (uint16, error) {
	if service == "" {
		return 0, nil
	}
	if value, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(value), nil
	}
	port, err := op.Resolver.LookupPort(ctx, "tcp", service)
	if err != nil {
		return 0, err
	}
	return uint16(port), nil
}

func (op *ResolveFunc) defaultAddr(passive bool) netip.Addr {
	switch {
	case op.Family == FamilyIPv6 && passive:
		return netip.IPv6Unspecified()
	case op.Family == FamilyIPv6:
		return netip.IPv6Loopback()
	case passive:
		return netip.IPv4Unspecified()
	default:
		return netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
}

func addrPortString(addr netip.AddrPort) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.String()
}
