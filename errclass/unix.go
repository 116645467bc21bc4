//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/unix.go
//

package errclass

import (
	"syscall"

	"golang.org/x/sys/unix"
)

var errnoLabels = map[syscall.Errno]string{
	unix.EACCES:          EACCES,
	unix.EADDRINUSE:      EADDRINUSE,
	unix.EADDRNOTAVAIL:   EADDRNOTAVAIL,
	unix.EAFNOSUPPORT:    EAFNOSUPPORT,
	unix.EAGAIN:          EAGAIN,
	unix.EALREADY:        EALREADY,
	unix.EBADF:           EBADF,
	unix.ECONNREFUSED:    ECONNREFUSED,
	unix.ECONNRESET:      ECONNRESET,
	unix.EHOSTUNREACH:    EHOSTUNREACH,
	unix.EINPROGRESS:     EINPROGRESS,
	unix.EINTR:           EINTR,
	unix.EINVAL:          EINVAL,
	unix.ENETUNREACH:     ENETUNREACH,
	unix.ENOBUFS:         ENOBUFS,
	unix.ENOPROTOOPT:     ENOPROTOOPT,
	unix.ENOTCONN:        ENOTCONN,
	unix.EOPNOTSUPP:      EOPNOTSUPP,
	unix.EPIPE:           EPIPE,
	unix.EPROTONOSUPPORT: EPROTONOSUPPORT,
	unix.ESOCKTNOSUPPORT: ESOCKTNOSUPPORT,
	unix.ETIMEDOUT:       ETIMEDOUT,
}
