//go:build !linux

// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

// msgEOR uses the Linux encoding: SCTP sockets are only wired on Linux,
// so elsewhere receive flags only come from fakes.
const msgEOR = 1 << 7

var recvFlagNames = []recvFlagName{
	{msgEOR, "MSG_EOR"},
	{msgNotification, "MSG_NOTIFICATION"},
}
