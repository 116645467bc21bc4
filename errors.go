// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Error kinds. Use [errors.Is] to test an [*OpError] against them.
var (
	// ErrResolution indicates that a host or service lookup failed.
	ErrResolution = errors.New("resolution error")

	// ErrSocketConfig indicates that creating or configuring a socket failed.
	ErrSocketConfig = errors.New("socket configuration error")

	// ErrBind indicates that binding a local address failed.
	ErrBind = errors.New("bind error")

	// ErrConnect indicates that a connect failed for a reason other than
	// the connection continuing asynchronously.
	ErrConnect = errors.New("connect error")

	// ErrReceive indicates that receiving from the endpoint failed.
	ErrReceive = errors.New("receive error")

	// ErrLoop indicates that the readiness facility failed.
	ErrLoop = errors.New("loop error")

	// ErrTuning indicates that a path or association control call failed.
	ErrTuning = errors.New("tuning error")

	// ErrSend indicates that a send failed. Send errors are never fatal.
	ErrSend = errors.New("send error")

	// ErrNotSupported indicates that SCTP sockets are not available.
	ErrNotSupported = errors.New("sctp not supported on this platform")
)

// OpError is the error returned by every fallible operation in this package.
type OpError struct {
	// Kind is one of the error kinds declared by this package.
	Kind error

	// Op is the name of the failing operation (e.g., "bind", "recvmsg").
	Op string

	// Err is the underlying error, usually a [syscall.Errno]. It may be nil
	// when the failure has no OS-level cause.
	Err error

	// Family is the offending address family for family mismatches.
	Family Family

	// Site is the file:line and function where the error was created.
	Site string
}

// newOpError creates an [*OpError] recording the caller as the failure site.
func newOpError(kind error, op string, err error) *OpError {
	return &OpError{Kind: kind, Op: op, Err: err, Site: callerSite(2)}
}

// Error implements error.
func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Family != FamilyUnspecified {
		msg += fmt.Sprintf(" (family %s)", e.Family)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the error kind.
func (e *OpError) Is(target error) bool {
	return e.Kind == target
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

func callerSite(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := "?"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d %s", filepath.Base(file), line, name)
}
