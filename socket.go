// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"net/netip"
	"time"
)

// Sockets abstracts the OS calls performed on an SCTP one-to-many socket.
//
// By depending on an abstract implementation we allow for unit testing
// without kernel SCTP support. [DefaultSockets] returns the OS implementation.
type Sockets interface {
	// Socket creates a SOCK_SEQPACKET socket for IPPROTO_SCTP.
	Socket(family Family) (int, error)

	// SetNonblock puts the socket in non-blocking mode.
	SetNonblock(fd int) error

	// Bind binds the socket to a local address.
	Bind(fd int, addr netip.AddrPort) error

	// Listen marks the socket as accepting associations.
	Listen(fd int, backlog int) error

	// Connect starts establishing an association with addr.
	Connect(fd int, addr netip.AddrPort) error

	// Setsockopt sets an SOL_SCTP option to the given raw value.
	Setsockopt(fd int, opt int, value []byte) error

	// RecvMsg receives one message or notification into buf.
	RecvMsg(fd int, buf []byte) (RecvResult, error)

	// SendMsg sends buf using the given send information without blocking.
	SendMsg(fd int, buf []byte, info SndRcvInfo) (int, error)

	// Close closes the socket.
	Close(fd int) error
}

// RecvResult is the outcome of a successful [Sockets.RecvMsg].
type RecvResult struct {
	// N is the number of bytes written into the buffer.
	N int

	// Flags are the recvmsg output flags.
	Flags int

	// From is the source address, if the kernel reported one.
	From netip.AddrPort

	// Info is the ancillary send/receive information.
	Info SndRcvInfo

	// HasInfo is true when the kernel attached Info to the message.
	HasInfo bool
}

// Poller waits for a socket to become readable.
type Poller interface {
	// Add registers fd for edge-triggered readability.
	Add(fd int) error

	// Wait blocks for at most timeout and fills ready with the readable
	// descriptors. It returns zero when woken by [Poller.Wake].
	Wait(ready []int, timeout time.Duration) (int, error)

	// Wake interrupts a pending or the next Wait. It may be called from
	// any goroutine, including concurrently with or after Close.
	Wake() error

	// Close releases the poller.
	Close() error
}
