// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"fmt"
	"strings"
)

// recvFlagName names one recvmsg output flag.
type recvFlagName struct {
	bit  int
	name string
}

// explainRecvFlags renders flags as "MSG_EOR|MSG_NOTIFICATION", appending
// any unknown bits in hex. Zero renders as "0".
func explainRecvFlags(flags int) string {
	if flags == 0 {
		return "0"
	}
	var parts []string
	for _, entry := range recvFlagNames {
		if flags&entry.bit != 0 {
			parts = append(parts, entry.name)
			flags &^= entry.bit
		}
	}
	if flags != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", flags))
	}
	return strings.Join(parts, "|")
}
