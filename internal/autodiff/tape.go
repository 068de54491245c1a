package autodiff

import (
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff/ops"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Tape records operations during the forward pass and propagates
// derivatives through them afterwards.
//
// Only operations that depend on a tracked leaf are recorded; everything
// computed purely from constants (inputs, initial states) is evaluated
// eagerly and leaves no trace.
//
// Usage:
//
//	tape := autodiff.NewTape()
//	w := tape.Param(weights)
//	y := tape.Tanh(tape.MatVec(w, x))
//	grads := tape.Backward(y, ops.Identity(y.Len())) // full Jacobian rows
type Tape struct {
	operations []ops.Operation       // Recorded operations (in execution order)
	tracked    map[*tensor.Dense]bool // Tensors that depend on a leaf
	leaves     []*tensor.Dense
	recording  bool
}

// NewTape creates a new tape that is recording.
func NewTape() *Tape {
	return &Tape{
		operations: make([]ops.Operation, 0, 64), // Pre-allocate for common case
		tracked:    make(map[*tensor.Dense]bool),
		recording:  true,
	}
}

// StartRecording enables operation recording.
func (t *Tape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording. Operations still evaluate.
func (t *Tape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *Tape) IsRecording() bool {
	return t.recording
}

// Param registers a copy of value as a differentiable leaf.
// The caller's tensor is never mutated through the tape.
func (t *Tape) Param(value *tensor.Dense) *tensor.Dense {
	leaf := value.Clone()
	t.tracked[leaf] = true
	t.leaves = append(t.leaves, leaf)
	return leaf
}

// Params registers every value as a leaf, preserving order.
func (t *Tape) Params(values []*tensor.Dense) []*tensor.Dense {
	leaves := make([]*tensor.Dense, len(values))
	for i, v := range values {
		leaves[i] = t.Param(v)
	}
	return leaves
}

// Tracks reports whether x depends on a leaf.
func (t *Tape) Tracks(x *tensor.Dense) bool {
	return t.tracked[x]
}

// record adds op to the tape when recording and any input is tracked.
func (t *Tape) record(op ops.Operation) {
	if !t.recording {
		return
	}
	for _, in := range op.Inputs() {
		if t.tracked[in] {
			t.operations = append(t.operations, op)
			t.tracked[op.Output()] = true
			return
		}
	}
}

// NumOps returns the number of recorded operations.
func (t *Tape) NumOps() int {
	return len(t.operations)
}

// Size returns the number of float64 values held by tracked tensors.
// A sweep carrying k derivative rows needs roughly k*Size() values.
func (t *Tape) Size() int {
	n := 0
	for _, leaf := range t.leaves {
		n += leaf.Len()
	}
	for _, op := range t.operations {
		n += op.Output().Len()
	}
	return n
}

// Clear resets the tape, removing all recorded operations and leaves.
// Recording state is preserved.
func (t *Tape) Clear() {
	t.operations = t.operations[:0]
	t.leaves = t.leaves[:0]
	t.tracked = make(map[*tensor.Dense]bool)
}

// Backward propagates k cotangent rows from output to every tracked tensor
// by walking the tape in reverse (reverse-mode AD).
//
// outGrad must have Width == output.Len(). Returns a map from tensor to its
// accumulated cotangent batch; leaves the output does not depend on are
// absent from the map.
func (t *Tape) Backward(output *tensor.Dense, outGrad *ops.Batch) map[*tensor.Dense]*ops.Batch {
	grads := make(map[*tensor.Dense]*ops.Batch)
	if !t.tracked[output] {
		return grads
	}

	// Batches returned by VJP may alias their argument; accumulate into a
	// private copy the first time a tensor receives a second contribution.
	owned := make(map[*tensor.Dense]bool)
	grads[output] = outGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		g, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.VJP(g)
		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil || !t.tracked[input] {
				continue
			}
			existing, ok := grads[input]
			if !ok {
				grads[input] = inputGrads[j]
				continue
			}
			if !owned[input] {
				existing = existing.Clone()
				grads[input] = existing
				owned[input] = true
			}
			existing.AddInPlace(inputGrads[j])
		}
	}

	return grads
}

// Forward propagates k tangent rows from the seeded leaves to every tracked
// tensor in execution order (forward-mode AD, the tape equivalent of dual
// numbers). Leaves without a seed have zero tangent.
//
// Every seed must have the same number of rows.
func (t *Tape) Forward(seeds map[*tensor.Dense]*ops.Batch) map[*tensor.Dense]*ops.Batch {
	tangents := make(map[*tensor.Dense]*ops.Batch, len(seeds)+len(t.operations))
	rows := 0
	for leaf, seed := range seeds {
		tangents[leaf] = seed
		rows = seed.Rows
	}
	if rows == 0 {
		return tangents
	}

	for _, op := range t.operations {
		inputs := op.Inputs()
		in := make([]*ops.Batch, len(inputs))
		hasTangent := false
		for j, input := range inputs {
			if tan, ok := tangents[input]; ok {
				in[j] = tan
				hasTangent = true
			}
		}
		if !hasTangent {
			continue
		}
		for j, input := range inputs {
			if in[j] == nil {
				in[j] = ops.NewBatch(rows, input.Len())
			}
		}
		tangents[op.Output()] = op.JVP(in)
	}

	return tangents
}
