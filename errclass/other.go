//go:build !unix

// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import "syscall"

// SCTP sockets are only available on unix systems; elsewhere every error
// goes to the base classifier.
var errnoLabels = map[syscall.Errno]string{}
