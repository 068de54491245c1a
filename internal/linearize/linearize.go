// Package linearize evaluates the first-order Taylor expansion of a model
// around its current parameters:
//
//	y_lin(u) = y(u; θ₀) + J(u; θ₀) δ
//
// The product Jδ is a Jacobian-vector product computed with one forward
// tangent sweep over the recorded tape; the Jacobian itself is never formed
// and the model is simulated only once.
package linearize

import (
	"fmt"
	"math"
	"strings"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff/ops"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Offset selects what the tangent term is added to.
type Offset int

// Offsets.
const (
	// Residual predicts y_sim + Jδ; δ was regressed on y − y_sim.
	Residual Offset = iota
	// SensitivityOnly predicts Jδ alone; δ was regressed on the raw targets.
	SensitivityOnly
)

// String implements fmt.Stringer.
func (o Offset) String() string {
	switch o {
	case Residual:
		return "residual"
	case SensitivityOnly:
		return "sensitivity_only"
	default:
		return fmt.Sprintf("Offset(%d)", int(o))
	}
}

// ParseOffset converts a name (case-insensitive) to an Offset.
func ParseOffset(name string) (Offset, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "residual", "":
		return Residual, nil
	case "sensitivity_only", "sensitivity", "raw":
		return SensitivityOnly, nil
	default:
		return 0, fmt.Errorf("linearize: unknown offset %q", name)
	}
}

// Options configures Predict.
type Options struct {
	Offset Offset
}

// Prediction holds the pieces of a linearized prediction. All three share
// the output shape of the model.
type Prediction struct {
	Sim     *tensor.Dense // y(u; θ₀)
	Tangent *tensor.Dense // J δ
	Lin     *tensor.Dense // Sim + Tangent, or Tangent for SensitivityOnly
}

// Predict evaluates the linearized model in the parameter direction delta,
// given per parameter in the set's order.
func Predict(fn autodiff.Func, set *params.Set, delta []*tensor.Dense, opts Options) (*Prediction, error) {
	if err := set.Layout().CheckTensors(delta); err != nil {
		return nil, err
	}

	tape := autodiff.NewTape()
	leaves := tape.Params(set.Values())
	y, err := fn(tape, leaves)
	if err != nil {
		return nil, fmt.Errorf("linearize: forward pass: %w", err)
	}

	seeds := make(map[*tensor.Dense]*ops.Batch, len(leaves))
	for k, leaf := range leaves {
		seed := ops.NewBatch(1, leaf.Len())
		copy(seed.Data, delta[k].Data())
		seeds[leaf] = seed
	}
	tangent := tensor.Zeros(y.Shape())
	if tan, ok := tape.Forward(seeds)[y]; ok {
		copy(tangent.Data(), tan.Row(0))
	}

	sim := y.Clone()
	lin := tangent.Clone()
	if opts.Offset == Residual {
		ld, sd := lin.Data(), sim.Data()
		for i := range ld {
			ld[i] += sd[i]
		}
	}

	for i, v := range lin.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &errs.NumericalError{Op: "linearize", Row: i, Col: -1, Value: v}
		}
	}
	return &Prediction{Sim: sim, Tangent: tangent, Lin: lin}, nil
}

// PredictFlat is Predict with delta given as a flat vector in layout order.
// The layout must match the set.
func PredictFlat(fn autodiff.Func, set *params.Set, theta []float64, layout params.Layout, opts Options) (*Prediction, error) {
	if err := set.Layout().Check(layout); err != nil {
		return nil, err
	}
	delta, err := params.Unflatten(theta, layout)
	if err != nil {
		return nil, err
	}
	return Predict(fn, set, delta, opts)
}
