package nn

import (
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Gain is the static SISO model y_t = a·u_t with a single parameter "a".
type Gain struct {
	set *params.Set
}

// NewGain creates a gain model with a = a0.
func NewGain(a0 float64) *Gain {
	a := tensor.Zeros(tensor.Shape{1})
	a.Data()[0] = a0
	return &Gain{set: mustSet(params.New("a", a))}
}

// Name returns "gain".
func (g *Gain) Name() string { return "gain" }

// Parameters returns {a}.
func (g *Gain) Parameters() *params.Set { return g.set }

// InputSize returns 1.
func (g *Gain) InputSize() int { return 1 }

// OutputSize returns 1.
func (g *Gain) OutputSize() int { return 1 }

// Forward computes U @ a, treating the [T, 1] input as a matrix.
func (g *Gain) Forward(tape *autodiff.Tape, p []*tensor.Dense, u *tensor.Dense) (*tensor.Dense, error) {
	if err := checkForward(g, p, u); err != nil {
		return nil, err
	}
	y := tape.MatVec(u, p[0])
	return tape.Reshape(y, tensor.Shape{u.Rows(), 1}), nil
}
