// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"errors"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpError(t *testing.T) {
	err := newOpError(ErrBind, "bind", syscall.EADDRINUSE)

	assert.True(t, errors.Is(err, ErrBind))
	assert.False(t, errors.Is(err, ErrConnect))
	assert.True(t, errors.Is(err, syscall.EADDRINUSE))
	assert.Equal(t, "bind error: bind: "+syscall.EADDRINUSE.Error(), err.Error())
	assert.True(t, strings.HasPrefix(err.Site, "errors_test.go:"), err.Site)
	assert.Contains(t, err.Site, "TestOpError")
}

func TestOpErrorWithoutCause(t *testing.T) {
	err := newOpError(ErrSocketConfig, "socket", nil)
	err.Family = FamilyIPv6

	assert.Equal(t, "socket configuration error: socket (family inet6)", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
