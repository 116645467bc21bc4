// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/bassosimone/dnscodec"
	"github.com/bassosimone/dnsoverstream"
	"github.com/bassosimone/minest"
	"github.com/bassosimone/safeconn"
	"github.com/miekg/dns"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// By making [*DNSResolver] depend on an abstract implementation we
// allow for unit testing and for using alternative dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// errNoAddress indicates that a lookup returned no address of the family.
var errNoAddress = errors.New("no address for the requested family")

// ParseDNSServer parses "udp://IP:PORT", "tcp://IP:PORT" or
// "https://IP:PORT". A bare "IP:PORT" means UDP.
func ParseDNSServer(value string) (protocol string, server netip.AddrPort, err error) {
	protocol = "udp"
	if scheme, rest, found := strings.Cut(value, "://"); found {
		protocol, value = scheme, rest
	}
	switch protocol {
	case "udp", "tcp", "https":
	default:
		return "", netip.AddrPort{}, fmt.Errorf("unsupported DNS protocol %q", protocol)
	}
	server, err = netip.ParseAddrPort(value)
	return
}

// NewDNSResolver returns a new [*DNSResolver].
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The protocol argument must be "udp", "tcp" or "https".
//
// The server argument is the DNS server endpoint.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewDNSResolver(cfg *Config, protocol string, server netip.AddrPort, logger SLogger) *DNSResolver {
	return &DNSResolver{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Ports:         cfg.Resolver,
		Protocol:      protocol,
		Server:        server,
		TimeNow:       cfg.TimeNow,
		TLSEngine:     TLSEngineStdlib{},
	}
}

// DNSResolver is a [Resolver] that queries an explicit DNS server over UDP,
// TCP or HTTPS instead of using the system resolver configuration.
//
// Each lookup dials a fresh connection and closes it when done.
//
// All fields are safe to modify after construction but before first use.
type DNSResolver struct {
	// Dialer dials the DNS server.
	//
	// Set by [NewDNSResolver] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDNSResolver] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewDNSResolver] to the user-provided logger.
	Logger SLogger

	// Ports resolves service names, which DNS cannot do.
	//
	// Set by [NewDNSResolver] from [Config.Resolver].
	Ports Resolver

	// Protocol is "udp", "tcp" or "https".
	//
	// Set by [NewDNSResolver] to the user-provided value.
	Protocol string

	// Server is the DNS server endpoint.
	//
	// Set by [NewDNSResolver] to the user-provided value.
	Server netip.AddrPort

	// TimeNow is the function to get the current time.
	//
	// Set by [NewDNSResolver] from [Config.TimeNow].
	TimeNow func() time.Time

	// TLSEngine performs the TLS handshake for "https".
	//
	// Set by [NewDNSResolver] to [TLSEngineStdlib].
	TLSEngine TLSEngine
}

var _ Resolver = &DNSResolver{}

// LookupPort implements [Resolver] by delegating to Ports.
func (r *DNSResolver) LookupPort(ctx context.Context, network, service string) (int, error) {
	return r.Ports.LookupPort(ctx, network, service)
}

// LookupNetIP implements [Resolver]. The network must be "ip4" or "ip6",
// selecting an A or an AAAA query.
func (r *DNSResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}

	qtype := dns.TypeA
	if network == "ip6" {
		qtype = dns.TypeAAAA
	}

	conn, err := r.Dialer.DialContext(ctx, r.network(), r.Server.String())
	if err != nil {
		return nil, err
	}
	conn = r.wrapDNSConn(ctx, conn)
	defer conn.Close()

	resp, err := r.exchange(ctx, conn, dnscodec.NewQuery(host, qtype))
	if err != nil {
		return nil, err
	}

	var records []string
	if qtype == dns.TypeA {
		records, err = resp.RecordsA()
	} else {
		records, err = resp.RecordsAAAA()
	}
	if err != nil {
		return nil, err
	}

	addrs := make([]netip.Addr, 0, len(records))
	for _, record := range records {
		if addr, err := netip.ParseAddr(record); err == nil {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) <= 0 {
		return nil, errNoAddress
	}
	return addrs, nil
}

func (r *DNSResolver) exchange(
	ctx context.Context, conn net.Conn, query *dnscodec.Query) (*dnscodec.Response, error) {
	t0 := r.TimeNow()
	deadline, _ := ctx.Deadline()
	lc := &dnsExchangeLogContext{
		ErrClassifier:  r.ErrClassifier,
		LocalAddr:      safeconn.LocalAddr(conn),
		Logger:         r.Logger,
		Protocol:       safeconn.Network(conn),
		RemoteAddr:     safeconn.RemoteAddr(conn),
		ServerProtocol: r.Protocol,
		TimeNow:        r.TimeNow,
	}

	// The transports exchange over conn and must never dial themselves.
	unspec := netip.AddrPortFrom(netip.IPv4Unspecified(), 0)

	lc.logStart(t0, deadline)
	var (
		resp *dnscodec.Response
		err  error
	)
	switch r.Protocol {
	case "https":
		resp, err = r.exchangeHTTPS(ctx, conn, query, lc)
	case "tcp":
		txp := dnsoverstream.NewTransport(dnsoverstream.NewStreamOpenerDialerTCP(dnsUnusedDialer{}), unspec)
		txp.ObserveRawQuery = lc.observeQuery
		txp.ObserveRawResponse = lc.observeResponse
		resp, err = txp.ExchangeWithStreamOpener(ctx, dnsoverstream.NewTCPStreamOpener(conn), query)
	default:
		txp := minest.NewDNSOverUDPTransport(dnsUnusedDialer{}, unspec)
		txp.ObserveRawQuery = lc.observeQuery
		txp.ObserveRawResponse = lc.observeResponse
		resp, err = txp.ExchangeWithConn(ctx, conn, query)
	}
	lc.logDone(t0, deadline, err)
	return resp, err
}

// network returns the network to dial for Protocol.
func (r *DNSResolver) network() string {
	if r.Protocol == "https" {
		return "tcp"
	}
	return r.Protocol
}

// dnsUnusedDialer is a [Dialer] that panics if DialContext is called.
type dnsUnusedDialer struct{}

var _ Dialer = dnsUnusedDialer{}

// DialContext implements [Dialer] and always panics.
func (dnsUnusedDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	panic("sctpcat: DNS transport must not dial; this is a programming error")
}
