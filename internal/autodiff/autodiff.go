// Package autodiff implements tape-based automatic differentiation over
// float64 tensors in both directions.
//
// Architecture:
//   - Tape: records operations during the forward pass
//   - Operation interface: each op (Add, MatVec, Tanh, ...) implements a
//     batched VJP (reverse mode) and a batched JVP (forward mode)
//   - Reverse mode: k cotangent rows per sweep, one row per Jacobian row
//   - Forward mode: k tangent rows per sweep, one row per direction
//
// Models are written as pure functions of their parameters (see Func): the
// function receives tape-owned parameter leaves and returns the output, so
// the same model code serves plain simulation, Jacobians and JVPs.
//
// Usage:
//
//	tape := autodiff.NewTape()
//	p := tape.Params(values)
//	y, err := fn(tape, p)
//	rows := tape.Backward(y, ops.Identity(y.Len()))
package autodiff

import (
	"fmt"
	"math"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff/ops"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Func is a pure function of the parameters. It closes over everything
// that is not a parameter (inputs, initial state, architecture) and must
// route every parameter-dependent computation through tape.
type Func func(tape *Tape, params []*tensor.Dense) (*tensor.Dense, error)

func mustSameLen(op string, a, b *tensor.Dense) {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("autodiff: %s: operand sizes differ: %v vs %v", op, a.Shape(), b.Shape()))
	}
}

// Add performs element-wise addition and records the operation.
func (t *Tape) Add(a, b *tensor.Dense) *tensor.Dense {
	mustSameLen("Add", a, b)
	result := tensor.Zeros(a.Shape())
	rd, ad, bd := result.Data(), a.Data(), b.Data()
	for i := range rd {
		rd[i] = ad[i] + bd[i]
	}
	t.record(ops.NewAddOp(a, b, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (t *Tape) Sub(a, b *tensor.Dense) *tensor.Dense {
	mustSameLen("Sub", a, b)
	result := tensor.Zeros(a.Shape())
	rd, ad, bd := result.Data(), a.Data(), b.Data()
	for i := range rd {
		rd[i] = ad[i] - bd[i]
	}
	t.record(ops.NewSubOp(a, b, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (t *Tape) Mul(a, b *tensor.Dense) *tensor.Dense {
	mustSameLen("Mul", a, b)
	result := tensor.Zeros(a.Shape())
	rd, ad, bd := result.Data(), a.Data(), b.Data()
	for i := range rd {
		rd[i] = ad[i] * bd[i]
	}
	t.record(ops.NewMulOp(a, b, result))
	return result
}

// Scale multiplies every element by the constant c.
func (t *Tape) Scale(a *tensor.Dense, c float64) *tensor.Dense {
	result := tensor.Zeros(a.Shape())
	rd, ad := result.Data(), a.Data()
	for i := range rd {
		rd[i] = c * ad[i]
	}
	t.record(ops.NewScaleOp(a, result, c))
	return result
}

// MatVec computes W @ x for W of shape [m, n] and x with n elements.
func (t *Tape) MatVec(w, x *tensor.Dense) *tensor.Dense {
	shape := w.Shape()
	if len(shape) != 2 || shape[1] != x.Len() {
		panic(fmt.Sprintf("autodiff: MatVec: incompatible shapes %v and %v", shape, x.Shape()))
	}
	result := ops.MatVec(w, x)
	t.record(ops.NewMatVecOp(w, x, result))
	return result
}

// Dot computes Σ a_i b_i as a single-element tensor.
func (t *Tape) Dot(a, b *tensor.Dense) *tensor.Dense {
	return t.Sum(t.Mul(a, b))
}

func (t *Tape) apply(x *tensor.Dense, f func(float64) float64) *tensor.Dense {
	result := tensor.Zeros(x.Shape())
	rd, xd := result.Data(), x.Data()
	for i, v := range xd {
		rd[i] = f(v)
	}
	return result
}

// Tanh applies the hyperbolic tangent.
func (t *Tape) Tanh(x *tensor.Dense) *tensor.Dense {
	result := t.apply(x, math.Tanh)
	t.record(ops.NewTanhOp(x, result))
	return result
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)).
func (t *Tape) Sigmoid(x *tensor.Dense) *tensor.Dense {
	result := t.apply(x, func(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) })
	t.record(ops.NewSigmoidOp(x, result))
	return result
}

// ReLU applies max(0, x). It is not differentiable at 0; the derivative
// there is taken as 0.
func (t *Tape) ReLU(x *tensor.Dense) *tensor.Dense {
	result := t.apply(x, func(v float64) float64 { return math.Max(v, 0) })
	t.record(ops.NewReLUOp(x, result))
	return result
}

// Exp applies exp(x).
func (t *Tape) Exp(x *tensor.Dense) *tensor.Dense {
	result := t.apply(x, math.Exp)
	t.record(ops.NewExpOp(x, result))
	return result
}

// Slice returns the flat range [start, end) of x as a vector.
func (t *Tape) Slice(x *tensor.Dense, start, end int) *tensor.Dense {
	if start < 0 || end > x.Len() || start >= end {
		panic(fmt.Sprintf("autodiff: Slice: range [%d, %d) invalid for %d elements", start, end, x.Len()))
	}
	result, _ := tensor.FromSlice(x.Data()[start:end], tensor.Shape{end - start})
	t.record(ops.NewSliceOp(x, result, start, end))
	return result
}

// Concat joins the flattened inputs into one vector.
func (t *Tape) Concat(xs ...*tensor.Dense) *tensor.Dense {
	n := 0
	for _, x := range xs {
		n += x.Len()
	}
	result := tensor.Zeros(tensor.Shape{n})
	rd := result.Data()
	off := 0
	for _, x := range xs {
		off += copy(rd[off:], x.Data())
	}
	t.record(ops.NewConcatOp(xs, result))
	return result
}

// Reshape returns x with a new shape of the same size.
func (t *Tape) Reshape(x *tensor.Dense, shape tensor.Shape) *tensor.Dense {
	result, err := tensor.FromSlice(x.Data(), shape)
	if err != nil {
		panic(fmt.Sprintf("autodiff: Reshape: %v", err))
	}
	t.record(ops.NewReshapeOp(x, result))
	return result
}

// Sum reduces x to a single-element tensor.
func (t *Tape) Sum(x *tensor.Dense) *tensor.Dense {
	var s float64
	for _, v := range x.Data() {
		s += v
	}
	result := tensor.Zeros(tensor.Shape{1})
	result.Data()[0] = s
	t.record(ops.NewSumOp(x, result))
	return result
}

// Evaluate runs fn with params as untracked constants. Nothing is recorded.
func Evaluate(fn Func, params []*tensor.Dense) (*tensor.Dense, error) {
	tape := NewTape()
	tape.StopRecording()
	out, err := fn(tape, params)
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}
