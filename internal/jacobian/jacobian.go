// Package jacobian extracts the dense Jacobian of a model output with
// respect to its flattened parameters.
//
// Row i of J is ∂y_i/∂θ for the flattened output y (row-major over
// [time, channel]); columns follow the parameter Layout, which is fixed at
// extraction time.
//
// Two strategies compute the same matrix:
//   - Vectorized: one reverse sweep carrying all N cotangent rows at once
//   - Looped: N reverse sweeps, one cotangent row each
//
// Vectorized trades memory (N rows through every recorded value) for a
// single pass over the tape.
package jacobian

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff/ops"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Strategy selects how cotangents are pushed through the tape.
type Strategy int

// Extraction strategies.
const (
	Vectorized Strategy = iota
	Looped
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Vectorized:
		return "vectorized"
	case Looped:
		return "looped"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a name (case-insensitive) to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "vectorized", "vectorised", "":
		return Vectorized, nil
	case "looped", "loop":
		return Looped, nil
	default:
		return 0, fmt.Errorf("jacobian: unknown strategy %q", name)
	}
}

// Options configures Extract.
type Options struct {
	Strategy Strategy

	// MemoryLimit caps the estimated derivative storage in bytes.
	// Zero means unlimited.
	MemoryLimit int64
}

// Result holds an extracted Jacobian.
type Result struct {
	J      *mat.Dense    // N x P
	Layout params.Layout // column ordering
	Output *tensor.Dense // y at the expansion point
}

// Extract evaluates fn at the current parameter values and returns the
// Jacobian of its output.
func Extract(fn autodiff.Func, set *params.Set, opts Options) (*Result, error) {
	layout := set.Layout()
	if layout.Size() == 0 {
		return nil, errs.Shape("parameter count", "> 0", 0)
	}

	tape := autodiff.NewTape()
	leaves := tape.Params(set.Values())
	y, err := fn(tape, leaves)
	if err != nil {
		return nil, fmt.Errorf("jacobian: forward pass: %w", err)
	}
	for i, v := range y.Data() {
		if !finite(v) {
			return nil, &errs.NumericalError{Op: "forward", Row: i, Col: -1, Value: v}
		}
	}

	n, p := y.Len(), layout.Size()
	bytesPerRow := int64(tape.Size()) * 8
	J := mat.NewDense(n, p, nil)

	switch opts.Strategy {
	case Vectorized:
		if err := checkMemory(opts, int64(n)*bytesPerRow); err != nil {
			return nil, err
		}
		grads := tape.Backward(y, ops.Identity(n))
		for i := 0; i < n; i++ {
			fillRow(J, i, i, grads, leaves, layout)
		}
	case Looped:
		if err := checkMemory(opts, bytesPerRow); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			grads := tape.Backward(y, ops.Basis(n, i))
			fillRow(J, i, 0, grads, leaves, layout)
		}
	default:
		return nil, fmt.Errorf("jacobian: unknown strategy %v", opts.Strategy)
	}

	if err := checkFinite(J, layout); err != nil {
		return nil, err
	}
	return &Result{J: J, Layout: layout, Output: y.Clone()}, nil
}

func checkMemory(opts Options, needed int64) error {
	if opts.MemoryLimit > 0 && needed > opts.MemoryLimit {
		return &errs.ResourceExhaustedError{
			Strategy: opts.Strategy.String(),
			Needed:   needed,
			Limit:    opts.MemoryLimit,
		}
	}
	return nil
}

// fillRow copies batch row r of every leaf gradient into row i of J.
// Leaves the output does not depend on keep their zero columns.
func fillRow(J *mat.Dense, i, r int, grads map[*tensor.Dense]*ops.Batch, leaves []*tensor.Dense, layout params.Layout) {
	row := J.RawRowView(i)
	for k, e := range layout.Entries() {
		g, ok := grads[leaves[k]]
		if !ok {
			continue
		}
		copy(row[e.Offset:e.Offset+e.Len()], g.Row(r))
	}
}

func checkFinite(J *mat.Dense, layout params.Layout) error {
	n, p := J.Dims()
	for i := 0; i < n; i++ {
		row := J.RawRowView(i)
		for j := 0; j < p; j++ {
			if !finite(row[j]) {
				name, pos := layout.NameOf(j)
				return &errs.NumericalError{
					Op:    "jacobian",
					Row:   i,
					Col:   j,
					Param: fmt.Sprintf("%s[%d]", name, pos),
					Value: row[j],
				}
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
