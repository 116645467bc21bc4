// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import "context"

// Func is a generic setup operation that accepts an input and returns a result.
//
// Func instances can be composed using [Compose2], [Compose3], and [Compose4]
// to build the endpoint setup pipeline, where the output of one stage flows
// to the input of the next (e.g., resolve, then open, then listen).
//
// Resource cleanup contract: when a Func receives an [*Endpoint] as input
// and returns an error, it closes the endpoint before returning. This ensures
// that a pipeline failing halfway does not leak the socket.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}
