//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"net/netip"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultSockets returns the [Sockets] implemented with Linux system calls.
func DefaultSockets() Sockets {
	return unixSockets{}
}

// unixSockets implements [Sockets] using [golang.org/x/sys/unix].
type unixSockets struct{}

var _ Sockets = unixSockets{}

// Socket implements [Sockets].
func (unixSockets) Socket(family Family) (int, error) {
	domain := unix.AF_INET
	if family == FamilyIPv6 {
		domain = unix.AF_INET6
	}
	return unix.Socket(domain, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, unix.IPPROTO_SCTP)
}

// SetNonblock implements [Sockets].
func (unixSockets) SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// Bind implements [Sockets].
func (unixSockets) Bind(fd int, addr netip.AddrPort) error {
	return unix.Bind(fd, toUnixSockaddr(addr))
}

// Listen implements [Sockets].
func (unixSockets) Listen(fd int, backlog int) error {
	return unix.Listen(fd, backlog)
}

// Connect implements [Sockets].
func (unixSockets) Connect(fd int, addr netip.AddrPort) error {
	return unix.Connect(fd, toUnixSockaddr(addr))
}

// Setsockopt implements [Sockets].
func (unixSockets) Setsockopt(fd int, opt int, value []byte) error {
	return unix.SetsockoptString(fd, solSCTP, opt, string(value))
}

// RecvMsg implements [Sockets].
func (unixSockets) RecvMsg(fd int, buf []byte) (RecvResult, error) {
	oob := make([]byte, unix.CmsgSpace(sndRcvInfoSize))
	n, oobn, flags, from, err := unix.Recvmsg(fd, buf, oob, 0)
	if err != nil {
		return RecvResult{}, err
	}
	res := RecvResult{N: n, Flags: flags, From: fromUnixSockaddr(from)}
	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		// Ancillary data is informational; keep the message.
		return res, nil
	}
	for _, cmsg := range cmsgs {
		if cmsg.Header.Level == unix.IPPROTO_SCTP && cmsg.Header.Type == sctpSndRcv {
			res.Info, res.HasInfo = decodeSndRcvInfo(cmsg.Data)
		}
	}
	return res, nil
}

// SendMsg implements [Sockets].
func (unixSockets) SendMsg(fd int, buf []byte, info SndRcvInfo) (int, error) {
	oob := make([]byte, unix.CmsgSpace(sndRcvInfoSize))
	hdr := (*unix.Cmsghdr)(unsafe.Pointer(&oob[0]))
	hdr.Level = unix.IPPROTO_SCTP
	hdr.Type = sctpSndRcv
	hdr.SetLen(unix.CmsgLen(sndRcvInfoSize))
	copy(oob[unix.CmsgLen(0):], encodeSndRcvInfo(info))
	return unix.SendmsgN(fd, buf, oob, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
}

// Close implements [Sockets].
func (unixSockets) Close(fd int) error {
	return unix.Close(fd)
}

func toUnixSockaddr(addr netip.AddrPort) unix.Sockaddr {
	ip := addr.Addr()
	if ip.Is4() {
		return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: ip.As4()}
	}
	return &unix.SockaddrInet6{Port: int(addr.Port()), Addr: ip.As16()}
}

func fromUnixSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}
