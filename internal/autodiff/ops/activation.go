package ops

import "github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"

// unaryOp is shared by element-wise activations whose derivative can be
// expressed through the input x and output y.
type unaryOp struct {
	input  *tensor.Dense
	output *tensor.Dense
	deriv  func(x, y float64) float64
}

// Inputs returns the input tensors.
func (op *unaryOp) Inputs() []*tensor.Dense { return []*tensor.Dense{op.input} }

// Output returns the output tensor.
func (op *unaryOp) Output() *tensor.Dense { return op.output }

// VJP returns g * f'(x).
func (op *unaryOp) VJP(outGrad *Batch) []*Batch {
	return []*Batch{op.scaleByDeriv(outGrad)}
}

// JVP returns f'(x) * tx.
func (op *unaryOp) JVP(in []*Batch) *Batch {
	return op.scaleByDeriv(in[0])
}

func (op *unaryOp) scaleByDeriv(b *Batch) *Batch {
	x, y := op.input.Data(), op.output.Data()
	d := make([]float64, len(x))
	for i := range x {
		d[i] = op.deriv(x[i], y[i])
	}
	return mapRows(b, func(i int, v float64) float64 { return v * d[i] })
}

// TanhOp represents the hyperbolic tangent: d(tanh(x))/dx = 1 - tanh²(x).
type TanhOp struct{ unaryOp }

// NewTanhOp creates a new tanh operation.
func NewTanhOp(input, output *tensor.Dense) *TanhOp {
	return &TanhOp{unaryOp{input: input, output: output, deriv: func(_, y float64) float64 {
		return 1 - y*y
	}}}
}

// SigmoidOp represents σ(x) = 1 / (1 + exp(-x)): dσ/dx = σ(x)(1 - σ(x)).
type SigmoidOp struct{ unaryOp }

// NewSigmoidOp creates a new sigmoid operation.
func NewSigmoidOp(input, output *tensor.Dense) *SigmoidOp {
	return &SigmoidOp{unaryOp{input: input, output: output, deriv: func(_, y float64) float64 {
		return y * (1 - y)
	}}}
}

// ReLUOp represents max(0, x). The derivative at 0 is taken as 0.
type ReLUOp struct{ unaryOp }

// NewReLUOp creates a new ReLU operation.
func NewReLUOp(input, output *tensor.Dense) *ReLUOp {
	return &ReLUOp{unaryOp{input: input, output: output, deriv: func(x, _ float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	}}}
}

// ExpOp represents exp(x): d(exp(x))/dx = exp(x).
type ExpOp struct{ unaryOp }

// NewExpOp creates a new exp operation.
func NewExpOp(input, output *tensor.Dense) *ExpOp {
	return &ExpOp{unaryOp{input: input, output: output, deriv: func(_, y float64) float64 {
		return y
	}}}
}
