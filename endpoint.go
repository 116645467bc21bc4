// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"net/netip"
	"sync"
)

// Family is an address family.
type Family int

const (
	FamilyUnspecified Family = iota
	FamilyIPv4
	FamilyIPv6
)

// String returns "inet", "inet6" or "unspec".
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "inet"
	case FamilyIPv6:
		return "inet6"
	default:
		return "unspec"
	}
}

// network returns the [net.Resolver] network for the family.
func (f Family) network() string {
	if f == FamilyIPv6 {
		return "ip6"
	}
	return "ip4"
}

// familyOf returns the family of addr.
func familyOf(addr netip.Addr) Family {
	if addr.Is4() || addr.Is4In6() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// Endpoint is a non-blocking SCTP one-to-many socket subscribed to every
// notification class.
//
// Construct using [*OpenEndpointFunc]. The caller owns the Endpoint and
// must call Close when done.
type Endpoint struct {
	closeonce sync.Once
	fd        int
	family    Family
	local     netip.AddrPort
	remote    netip.AddrPort
	sockets   Sockets
}

// FD returns the socket descriptor.
func (ep *Endpoint) FD() int {
	return ep.fd
}

// Family returns the address family of the socket.
func (ep *Endpoint) Family() Family {
	return ep.family
}

// LocalAddr returns the bound address or the zero value when unbound.
func (ep *Endpoint) LocalAddr() netip.AddrPort {
	return ep.local
}

// RemoteAddr returns the address passed to connect or the zero value in
// listening mode.
func (ep *Endpoint) RemoteAddr() netip.AddrPort {
	return ep.remote
}

// Close closes the socket. Subsequent calls return nil.
func (ep *Endpoint) Close() (err error) {
	ep.closeonce.Do(func() {
		err = ep.sockets.Close(ep.fd)
	})
	return
}
