//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import "golang.org/x/sys/unix"

// msgEOR marks the last piece of a message or notification.
const msgEOR = unix.MSG_EOR

// recvFlagNames lists the recvmsg output flags in rendering order.
var recvFlagNames = []recvFlagName{
	{unix.MSG_OOB, "MSG_OOB"},
	{unix.MSG_PEEK, "MSG_PEEK"},
	{unix.MSG_CTRUNC, "MSG_CTRUNC"},
	{unix.MSG_TRUNC, "MSG_TRUNC"},
	{unix.MSG_EOR, "MSG_EOR"},
	{unix.MSG_ERRQUEUE, "MSG_ERRQUEUE"},
	{msgNotification, "MSG_NOTIFICATION"},
}
