//go:build !linux

// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import "net/netip"

// DefaultSockets returns a [Sockets] failing every call with
// [ErrNotSupported] because SCTP sockets are only wired on Linux.
func DefaultSockets() Sockets {
	return unsupportedSockets{}
}

type unsupportedSockets struct{}

func (unsupportedSockets) Socket(Family) (int, error)              { return -1, ErrNotSupported }
func (unsupportedSockets) SetNonblock(int) error                   { return ErrNotSupported }
func (unsupportedSockets) Bind(int, netip.AddrPort) error          { return ErrNotSupported }
func (unsupportedSockets) Listen(int, int) error                   { return ErrNotSupported }
func (unsupportedSockets) Connect(int, netip.AddrPort) error       { return ErrNotSupported }
func (unsupportedSockets) Setsockopt(int, int, []byte) error       { return ErrNotSupported }
func (unsupportedSockets) RecvMsg(int, []byte) (RecvResult, error) { return RecvResult{}, ErrNotSupported }
func (unsupportedSockets) SendMsg(int, []byte, SndRcvInfo) (int, error) {
	return 0, ErrNotSupported
}
func (unsupportedSockets) Close(int) error { return ErrNotSupported }

// NewEpollPoller fails with [ErrNotSupported] outside Linux.
func NewEpollPoller(maxEvents int) (Poller, error) {
	return nil, ErrNotSupported
}
