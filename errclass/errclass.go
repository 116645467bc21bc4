// SPDX-License-Identifier: GPL-3.0-or-later

// Package errclass maps socket errors to short, errno-like labels.
//
// The labels cover the errors an SCTP one-to-many socket reports during
// setup, receive, send, and socket-option calls. Errors outside that set are
// classified by [github.com/bassosimone/errclass].
package errclass

import (
	"errors"
	"syscall"

	baseclass "github.com/bassosimone/errclass"
)

// Labels returned by [New] in addition to the base classifier labels.
const (
	EACCES          = "EACCES"
	EADDRINUSE      = "EADDRINUSE"
	EADDRNOTAVAIL   = "EADDRNOTAVAIL"
	EAFNOSUPPORT    = "EAFNOSUPPORT"
	EAGAIN          = "EAGAIN"
	EALREADY        = "EALREADY"
	EBADF           = "EBADF"
	ECONNREFUSED    = "ECONNREFUSED"
	ECONNRESET      = "ECONNRESET"
	EHOSTUNREACH    = "EHOSTUNREACH"
	EINPROGRESS     = "EINPROGRESS"
	EINTR           = "EINTR"
	EINVAL          = "EINVAL"
	ENETUNREACH     = "ENETUNREACH"
	ENOBUFS         = "ENOBUFS"
	ENOPROTOOPT     = "ENOPROTOOPT"
	ENOTCONN        = "ENOTCONN"
	EOPNOTSUPP      = "EOPNOTSUPP"
	EPIPE           = "EPIPE"
	EPROTONOSUPPORT = "EPROTONOSUPPORT"
	ESOCKTNOSUPPORT = "ESOCKTNOSUPPORT"
	ETIMEDOUT       = "ETIMEDOUT"
)

// New returns the label for err or the empty string when err is nil.
func New(err error) string {
	if err == nil {
		return ""
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if label, found := errnoLabels[errno]; found {
			return label
		}
	}
	return baseclass.New(err)
}
