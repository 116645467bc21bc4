// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// The sctpcat command uses one span for the whole run, and [*Engine]
// opens a new span each time an association comes up, logging it as
// assocSpanID so that every event of that association can be grouped.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
