package ops

import "github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"

// AddOp represents element-wise addition: output = a + b.
//
// Backward pass:
//   - grad_a = outputGrad
//   - grad_b = outputGrad
type AddOp struct {
	inputs []*tensor.Dense // [a, b]
	output *tensor.Dense
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.Dense) *AddOp {
	return &AddOp{inputs: []*tensor.Dense{a, b}, output: output}
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*tensor.Dense { return op.inputs }

// Output returns the output tensor a + b.
func (op *AddOp) Output() *tensor.Dense { return op.output }

// VJP passes the cotangent through to both inputs.
func (op *AddOp) VJP(outGrad *Batch) []*Batch {
	return []*Batch{outGrad, outGrad}
}

// JVP returns ta + tb.
func (op *AddOp) JVP(in []*Batch) *Batch {
	out := in[0].Clone()
	out.AddInPlace(in[1])
	return out
}

// SubOp represents element-wise subtraction: output = a - b.
type SubOp struct {
	inputs []*tensor.Dense
	output *tensor.Dense
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *tensor.Dense) *SubOp {
	return &SubOp{inputs: []*tensor.Dense{a, b}, output: output}
}

// Inputs returns the input tensors [a, b].
func (op *SubOp) Inputs() []*tensor.Dense { return op.inputs }

// Output returns the output tensor a - b.
func (op *SubOp) Output() *tensor.Dense { return op.output }

// VJP returns [g, -g].
func (op *SubOp) VJP(outGrad *Batch) []*Batch {
	neg := mapRows(outGrad, func(_ int, v float64) float64 { return -v })
	return []*Batch{outGrad, neg}
}

// JVP returns ta - tb.
func (op *SubOp) JVP(in []*Batch) *Batch {
	out := in[0].Clone()
	for i, v := range in[1].Data {
		out.Data[i] -= v
	}
	return out
}

// MulOp represents element-wise multiplication: output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
type MulOp struct {
	inputs []*tensor.Dense
	output *tensor.Dense
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.Dense) *MulOp {
	return &MulOp{inputs: []*tensor.Dense{a, b}, output: output}
}

// Inputs returns the input tensors [a, b].
func (op *MulOp) Inputs() []*tensor.Dense { return op.inputs }

// Output returns the output tensor a * b.
func (op *MulOp) Output() *tensor.Dense { return op.output }

// VJP returns [g*b, g*a].
func (op *MulOp) VJP(outGrad *Batch) []*Batch {
	a, b := op.inputs[0].Data(), op.inputs[1].Data()
	gradA := mapRows(outGrad, func(i int, v float64) float64 { return v * b[i] })
	gradB := mapRows(outGrad, func(i int, v float64) float64 { return v * a[i] })
	return []*Batch{gradA, gradB}
}

// JVP returns ta*b + a*tb.
func (op *MulOp) JVP(in []*Batch) *Batch {
	a, b := op.inputs[0].Data(), op.inputs[1].Data()
	out := NewBatch(in[0].Rows, in[0].Width)
	for r := 0; r < out.Rows; r++ {
		ta, tb, dst := in[0].Row(r), in[1].Row(r), out.Row(r)
		for i := range dst {
			dst[i] = ta[i]*b[i] + a[i]*tb[i]
		}
	}
	return out
}

// ScaleOp multiplies by a constant: output = c * a.
type ScaleOp struct {
	input  *tensor.Dense
	output *tensor.Dense
	c      float64
}

// NewScaleOp creates a new ScaleOp.
func NewScaleOp(a, output *tensor.Dense, c float64) *ScaleOp {
	return &ScaleOp{input: a, output: output, c: c}
}

// Inputs returns the input tensors.
func (op *ScaleOp) Inputs() []*tensor.Dense { return []*tensor.Dense{op.input} }

// Output returns the output tensor.
func (op *ScaleOp) Output() *tensor.Dense { return op.output }

// VJP returns c*g.
func (op *ScaleOp) VJP(outGrad *Batch) []*Batch {
	return []*Batch{mapRows(outGrad, func(_ int, v float64) float64 { return op.c * v })}
}

// JVP returns c*ta.
func (op *ScaleOp) JVP(in []*Batch) *Batch {
	return mapRows(in[0], func(_ int, v float64) float64 { return op.c * v })
}
