// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"time"

	"github.com/bassosimone/sctpcat"
)

// run sets up the endpoint described by opts and serves it until ctx is
// done or a fatal error occurs.
func run(ctx context.Context, opts *Options, stdin io.Reader, logger *slog.Logger) error {
	cfg, err := newConfig(opts, logger)
	if err != nil {
		return err
	}

	ep, err := setup(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer ep.Close()

	engine := sctpcat.NewEngine(cfg, ep, logger)
	engine.PrintTicks = opts.Ticks
	tuner := sctpcat.NewTuner(cfg, logger)

	if opts.AssocMaxRetrans > 0 || opts.PathMaxRetrans > 0 {
		engine.RegisterAssociationUp(&sctpcat.RetransmissionLimits{
			AssociationMax: opts.AssocMaxRetrans,
			PathMax:        opts.PathMaxRetrans,
			Tuner:          tuner,
		})
	}
	if opts.NoHBOnSecondary {
		engine.RegisterPeerAddressConfirmed(&sctpcat.HeartbeatDisabler{
			Primary: ep.RemoteAddr(),
			Tuner:   tuner,
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.PingInterval > 0 {
		interval := time.Duration(opts.PingInterval) * time.Millisecond
		pinger := sctpcat.NewPeriodicSender(engine, opts.PingBytes, interval, logger)
		engine.RegisterAssociationUp(pinger)
		go pinger.Run(ctx)
	}

	console := sctpcat.NewInteractiveSender(engine, stdin, logger)
	go func() {
		if err := console.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Info("consoleFailed", slog.Any("err", err))
		}
	}()

	err = engine.ReceiveLoop(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newConfig returns the library configuration selected by opts.
func newConfig(opts *Options, logger sctpcat.SLogger) (*sctpcat.Config, error) {
	cfg := sctpcat.NewConfig()
	if opts.DNSServer != "" {
		protocol, server, err := sctpcat.ParseDNSServer(opts.DNSServer)
		if err != nil {
			return nil, err
		}
		cfg.Resolver = sctpcat.NewDNSResolver(cfg, protocol, server, logger)
	}
	return cfg, nil
}

// setup creates the endpoint and either listens or starts connecting.
//
// The RTO bounds are applied to the socket defaults before listen or
// connect so that they cover the first association too.
func setup(ctx context.Context, cfg *sctpcat.Config, opts *Options, logger sctpcat.SLogger) (*sctpcat.Endpoint, error) {
	family := opts.family()
	resolve := sctpcat.NewResolveFunc(cfg, family, logger)
	open := sctpcat.NewOpenEndpointFunc(cfg, family, logger)
	configure := newRTOFunc(cfg, opts, logger)

	if opts.Listen {
		hostPort := sctpcat.HostPort{Host: opts.Host, Port: opts.Port, Passive: true}
		pipeline := sctpcat.Compose4[sctpcat.Unit, sctpcat.HostPort, netip.AddrPort, *sctpcat.Endpoint, *sctpcat.Endpoint](
			sctpcat.ConstFunc(hostPort),
			resolve,
			open,
			sctpcat.Compose2[*sctpcat.Endpoint, *sctpcat.Endpoint, *sctpcat.Endpoint](
				configure,
				sctpcat.NewListenFunc(cfg, logger),
			),
		)
		return pipeline.Call(ctx, sctpcat.Unit{})
	}

	var local netip.AddrPort
	if opts.LocalPort != "" {
		addr, err := resolve.Call(ctx, sctpcat.HostPort{Port: opts.LocalPort, Passive: true})
		if err != nil {
			return nil, err
		}
		local = addr
	}
	peer, err := resolve.Call(ctx, sctpcat.HostPort{Host: opts.Host, Port: opts.Port})
	if err != nil {
		return nil, err
	}
	pipeline := sctpcat.Compose4[sctpcat.Unit, netip.AddrPort, *sctpcat.Endpoint, *sctpcat.Endpoint, *sctpcat.Endpoint](
		sctpcat.ConstFunc(local),
		open,
		configure,
		sctpcat.NewConnectFunc(cfg, peer, logger),
	)
	return pipeline.Call(ctx, sctpcat.Unit{})
}

// newRTOFunc returns the setup stage applying the RTO bounds, which is
// a passthrough when no bound is set. The endpoint is closed on failure.
func newRTOFunc(cfg *sctpcat.Config, opts *Options, logger sctpcat.SLogger) sctpcat.Func[*sctpcat.Endpoint, *sctpcat.Endpoint] {
	rto, enabled := opts.rto()
	tuner := sctpcat.NewTuner(cfg, logger)
	return sctpcat.FuncAdapter[*sctpcat.Endpoint, *sctpcat.Endpoint](
		func(ctx context.Context, ep *sctpcat.Endpoint) (*sctpcat.Endpoint, error) {
			if !enabled {
				return ep, nil
			}
			if err := tuner.SetRTO(ep.FD(), 0, rto); err != nil {
				ep.Close()
				return nil, err
			}
			return ep, nil
		})
}
