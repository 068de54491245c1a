package ops

import "github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"

// SliceOp selects the flat range [start, end) of its input.
type SliceOp struct {
	input      *tensor.Dense
	output     *tensor.Dense
	start, end int
}

// NewSliceOp creates a new SliceOp.
func NewSliceOp(input, output *tensor.Dense, start, end int) *SliceOp {
	return &SliceOp{input: input, output: output, start: start, end: end}
}

// Inputs returns the input tensors.
func (op *SliceOp) Inputs() []*tensor.Dense { return []*tensor.Dense{op.input} }

// Output returns the output tensor.
func (op *SliceOp) Output() *tensor.Dense { return op.output }

// VJP scatters the cotangent back into a zero batch of the input width.
func (op *SliceOp) VJP(outGrad *Batch) []*Batch {
	grad := NewBatch(outGrad.Rows, op.input.Len())
	for r := 0; r < outGrad.Rows; r++ {
		copy(grad.Row(r)[op.start:op.end], outGrad.Row(r))
	}
	return []*Batch{grad}
}

// JVP selects the tangent range.
func (op *SliceOp) JVP(in []*Batch) *Batch {
	out := NewBatch(in[0].Rows, op.end-op.start)
	for r := 0; r < out.Rows; r++ {
		copy(out.Row(r), in[0].Row(r)[op.start:op.end])
	}
	return out
}

// ConcatOp joins the flattened inputs end to end.
type ConcatOp struct {
	inputs  []*tensor.Dense
	output  *tensor.Dense
	offsets []int
}

// NewConcatOp creates a new ConcatOp.
func NewConcatOp(inputs []*tensor.Dense, output *tensor.Dense) *ConcatOp {
	offsets := make([]int, len(inputs)+1)
	for i, in := range inputs {
		offsets[i+1] = offsets[i] + in.Len()
	}
	return &ConcatOp{inputs: inputs, output: output, offsets: offsets}
}

// Inputs returns the input tensors.
func (op *ConcatOp) Inputs() []*tensor.Dense { return op.inputs }

// Output returns the output tensor.
func (op *ConcatOp) Output() *tensor.Dense { return op.output }

// VJP splits the cotangent into per-input pieces.
func (op *ConcatOp) VJP(outGrad *Batch) []*Batch {
	grads := make([]*Batch, len(op.inputs))
	for i := range op.inputs {
		lo, hi := op.offsets[i], op.offsets[i+1]
		g := NewBatch(outGrad.Rows, hi-lo)
		for r := 0; r < outGrad.Rows; r++ {
			copy(g.Row(r), outGrad.Row(r)[lo:hi])
		}
		grads[i] = g
	}
	return grads
}

// JVP concatenates the input tangents.
func (op *ConcatOp) JVP(in []*Batch) *Batch {
	out := NewBatch(in[0].Rows, op.offsets[len(op.offsets)-1])
	for i, t := range in {
		lo := op.offsets[i]
		for r := 0; r < out.Rows; r++ {
			copy(out.Row(r)[lo:], t.Row(r))
		}
	}
	return out
}

// ReshapeOp changes the shape without touching the flat order.
type ReshapeOp struct {
	input  *tensor.Dense
	output *tensor.Dense
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.Dense) *ReshapeOp {
	return &ReshapeOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *ReshapeOp) Inputs() []*tensor.Dense { return []*tensor.Dense{op.input} }

// Output returns the output tensor.
func (op *ReshapeOp) Output() *tensor.Dense { return op.output }

// VJP is the identity on flat cotangents.
func (op *ReshapeOp) VJP(outGrad *Batch) []*Batch { return []*Batch{outGrad} }

// JVP is the identity on flat tangents.
func (op *ReshapeOp) JVP(in []*Batch) *Batch { return in[0] }

// SumOp reduces all elements to a single value.
type SumOp struct {
	input  *tensor.Dense
	output *tensor.Dense
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.Dense) *SumOp {
	return &SumOp{input: input, output: output}
}

// Inputs returns the input tensors.
func (op *SumOp) Inputs() []*tensor.Dense { return []*tensor.Dense{op.input} }

// Output returns the output tensor.
func (op *SumOp) Output() *tensor.Dense { return op.output }

// VJP broadcasts each cotangent row to the input width.
func (op *SumOp) VJP(outGrad *Batch) []*Batch {
	grad := NewBatch(outGrad.Rows, op.input.Len())
	for r := 0; r < outGrad.Rows; r++ {
		g := outGrad.Data[r]
		row := grad.Row(r)
		for i := range row {
			row[i] = g
		}
	}
	return []*Batch{grad}
}

// JVP sums each tangent row.
func (op *SumOp) JVP(in []*Batch) *Batch {
	out := NewBatch(in[0].Rows, 1)
	for r := 0; r < out.Rows; r++ {
		var s float64
		for _, v := range in[0].Row(r) {
			s += v
		}
		out.Data[r] = s
	}
	return out
}
