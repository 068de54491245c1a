// Package ops defines the differentiable operations recorded on a tape.
//
// Each operation records its inputs and output during the forward pass and
// propagates derivatives in both directions:
//   - VJP: reverse mode, maps output cotangents to input cotangents
//   - JVP: forward mode, maps input tangents to the output tangent
//
// Derivatives travel in batches of k rows so that a single sweep can carry
// many cotangents (a full Jacobian) or many tangents at once.
//
// Supported operations:
//   - AddOp, SubOp, MulOp, ScaleOp: element-wise arithmetic
//   - MatVecOp: matrix-vector product (d(Wx)/dW = g xᵀ, d(Wx)/dx = Wᵀg)
//   - TanhOp, SigmoidOp, ReLUOp, ExpOp: element-wise activations
//   - SliceOp, ConcatOp, ReshapeOp, SumOp: structural operations
package ops

import "github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.Dense

	// Output returns the output tensor produced by this operation.
	Output() *tensor.Dense

	// VJP maps k output cotangents (k x len(output)) to k cotangents per
	// input (k x len(input)).
	VJP(outGrad *Batch) []*Batch

	// JVP maps k tangents per input to k output tangents. Every entry of
	// inTangents is non-nil; the tape substitutes zeros for constants.
	JVP(inTangents []*Batch) *Batch
}

// Batch holds k derivative rows for one tensor, row-major.
type Batch struct {
	Rows  int
	Width int
	Data  []float64
}

// NewBatch allocates a zero batch.
func NewBatch(rows, width int) *Batch {
	return &Batch{
		Rows:  rows,
		Width: width,
		Data:  make([]float64, rows*width),
	}
}

// Identity returns the n x n identity batch: one unit cotangent per row.
func Identity(n int) *Batch {
	b := NewBatch(n, n)
	for i := 0; i < n; i++ {
		b.Data[i*n+i] = 1
	}
	return b
}

// Basis returns a single-row batch holding the unit vector e_i.
func Basis(width, i int) *Batch {
	b := NewBatch(1, width)
	b.Data[i] = 1
	return b
}

// Row returns row r as a slice sharing storage.
func (b *Batch) Row(r int) []float64 {
	return b.Data[r*b.Width : (r+1)*b.Width]
}

// AddInPlace accumulates o into b.
func (b *Batch) AddInPlace(o *Batch) {
	for i, v := range o.Data {
		b.Data[i] += v
	}
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	c := NewBatch(b.Rows, b.Width)
	copy(c.Data, b.Data)
	return c
}

// mapRows applies f(i, v) to every row, where i is the column index.
func mapRows(in *Batch, f func(i int, v float64) float64) *Batch {
	out := NewBatch(in.Rows, in.Width)
	for r := 0; r < in.Rows; r++ {
		src := in.Row(r)
		dst := out.Row(r)
		for i, v := range src {
			dst[i] = f(i, v)
		}
	}
	return out
}
