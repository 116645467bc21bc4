//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.0/internal/x/dslx/fxcore.go
//

package sctpcat

import "context"

// Compose2 runs op1 and feeds its result to op2.
//
// When op1 fails, op2 does not run and the error is returned unchanged.
// Stages that own an [*Endpoint] close it before failing, so the pipeline
// never needs to clean up after a stage.
func Compose2[A, B, C any](op1 Func[A, B], op2 Func[B, C]) Func[A, C] {
	return &pipeline[A, B, C]{first: op1, second: op2}
}

type pipeline[A, B, C any] struct {
	first  Func[A, B]
	second Func[B, C]
}

func (p *pipeline[A, B, C]) Call(ctx context.Context, input A) (C, error) {
	mid, err := p.first.Call(ctx, input)
	if err != nil {
		var zero C
		return zero, err
	}
	return p.second.Call(ctx, mid)
}

// Compose3 chains three [Func] stages.
func Compose3[A, B, C, D any](op1 Func[A, B], op2 Func[B, C], op3 Func[C, D]) Func[A, D] {
	return Compose2(Compose2(op1, op2), op3)
}

// Compose4 chains four [Func] stages. Both setup pipelines have this shape:
//
//	Compose4(ConstFunc(hostPort), resolve, open, listen)
//	Compose4(ConstFunc(local), open, configure, connect)
func Compose4[A, B, C, D, E any](op1 Func[A, B], op2 Func[B, C], op3 Func[C, D], op4 Func[D, E]) Func[A, E] {
	return Compose2(Compose3(op1, op2, op3), op4)
}

// ConstFunc returns a [Func] ignoring its [Unit] input and returning value.
// It is the usual first stage of a setup pipeline.
func ConstFunc[B any](value B) Func[Unit, B] {
	return FuncAdapter[Unit, B](func(context.Context, Unit) (B, error) {
		return value, nil
	})
}
