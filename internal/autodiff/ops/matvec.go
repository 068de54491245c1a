package ops

import "github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"

// MatVecOp represents a matrix-vector product: y = W @ x.
//
// W has shape [m, n], x has n elements and y has m elements.
//
// Backward pass:
//   - grad_W[i, j] = g[i] * x[j]
//   - grad_x[j]    = Σ_i g[i] * W[i, j]
//
// Forward pass (tangents):
//   - ty[i] = Σ_j tW[i, j] * x[j] + W[i, j] * tx[j]
type MatVecOp struct {
	inputs []*tensor.Dense // [W, x]
	output *tensor.Dense
	m, n   int
}

// NewMatVecOp creates a new MatVecOp.
func NewMatVecOp(w, x, output *tensor.Dense) *MatVecOp {
	shape := w.Shape()
	return &MatVecOp{
		inputs: []*tensor.Dense{w, x},
		output: output,
		m:      shape[0],
		n:      shape[1],
	}
}

// MatVec computes W @ x into a new tensor of shape [m].
func MatVec(w, x *tensor.Dense) *tensor.Dense {
	m, n := w.Shape()[0], w.Shape()[1]
	wd, xd := w.Data(), x.Data()
	out := tensor.Zeros(tensor.Shape{m})
	od := out.Data()
	for i := 0; i < m; i++ {
		row := wd[i*n : (i+1)*n]
		var s float64
		for j, v := range row {
			s += v * xd[j]
		}
		od[i] = s
	}
	return out
}

// Inputs returns the input tensors [W, x].
func (op *MatVecOp) Inputs() []*tensor.Dense { return op.inputs }

// Output returns the output tensor W @ x.
func (op *MatVecOp) Output() *tensor.Dense { return op.output }

// VJP computes [g xᵀ, Wᵀ g] for every cotangent row.
func (op *MatVecOp) VJP(outGrad *Batch) []*Batch {
	w, x := op.inputs[0].Data(), op.inputs[1].Data()
	k := outGrad.Rows
	gradW := NewBatch(k, op.m*op.n)
	gradX := NewBatch(k, op.n)
	for r := 0; r < k; r++ {
		g := outGrad.Row(r)
		gw := gradW.Row(r)
		gx := gradX.Row(r)
		for i := 0; i < op.m; i++ {
			gi := g[i]
			if gi == 0 {
				continue
			}
			wRow := w[i*op.n : (i+1)*op.n]
			gwRow := gw[i*op.n : (i+1)*op.n]
			for j := 0; j < op.n; j++ {
				gwRow[j] = gi * x[j]
				gx[j] += gi * wRow[j]
			}
		}
	}
	return []*Batch{gradW, gradX}
}

// JVP computes tW @ x + W @ tx for every tangent row.
func (op *MatVecOp) JVP(in []*Batch) *Batch {
	w, x := op.inputs[0].Data(), op.inputs[1].Data()
	k := in[0].Rows
	out := NewBatch(k, op.m)
	for r := 0; r < k; r++ {
		tw, tx, dst := in[0].Row(r), in[1].Row(r), out.Row(r)
		for i := 0; i < op.m; i++ {
			var s float64
			base := i * op.n
			for j := 0; j < op.n; j++ {
				s += tw[base+j]*x[j] + w[base+j]*tx[j]
			}
			dst[i] = s
		}
	}
	return out
}
