package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// StateSpaceConfig configures a neural state-space model.
type StateSpaceConfig struct {
	States  int     // n_x
	Inputs  int     // n_u
	Hidden  int     // n_feat
	ScaleDx float64 // Euler step scale, default 1
	InitStd float64 // std of the initial weights, default 1e-4
	Outputs []int   // state indices read out as outputs, default {0}
}

func (c *StateSpaceConfig) setDefaults() {
	if c.ScaleDx == 0 {
		c.ScaleDx = 1
	}
	if c.InitStd == 0 {
		c.InitStd = 1e-4
	}
	if len(c.Outputs) == 0 {
		c.Outputs = []int{0}
	}
}

// StateSpace is a neural state-space model simulated with forward Euler:
//
//	dx   = net(x_t, u_t)
//	y_t  = x_t[outputs]
//	x_t+1 = x_t + scale_dx · dx
//
// where net is Linear -> tanh -> Linear. The initial state is zero.
// Parameter names follow the usual sequential layout: "net.0.*" and
// "net.2.*".
type StateSpace struct {
	cfg    StateSpaceConfig
	hidden *Linear
	out    *Linear
	set    *params.Set
}

// NewStateSpace creates a state-space model with weights drawn from
// N(0, InitStd²) and zero biases.
func NewStateSpace(cfg StateSpaceConfig, rng *rand.Rand) (*StateSpace, error) {
	cfg.setDefaults()
	if cfg.States < 1 || cfg.Inputs < 1 || cfg.Hidden < 1 {
		return nil, fmt.Errorf("nn: state-space sizes must be positive, got states=%d inputs=%d hidden=%d",
			cfg.States, cfg.Inputs, cfg.Hidden)
	}
	for _, k := range cfg.Outputs {
		if k < 0 || k >= cfg.States {
			return nil, fmt.Errorf("nn: output state %d out of range [0, %d)", k, cfg.States)
		}
	}
	rng = newRand(rng)
	hidden := newLinearWith("net.0", Normal(cfg.InitStd, tensor.Shape{cfg.Hidden, cfg.States + cfg.Inputs}, rng))
	out := newLinearWith("net.2", Normal(cfg.InitStd, tensor.Shape{cfg.States, cfg.Hidden}, rng))
	return &StateSpace{
		cfg:    cfg,
		hidden: hidden,
		out:    out,
		set:    mustSet(append(hidden.Parameters(), out.Parameters()...)...),
	}, nil
}

// Name returns "statespace".
func (m *StateSpace) Name() string { return "statespace" }

// Parameters returns the weights and biases of both layers.
func (m *StateSpace) Parameters() *params.Set { return m.set }

// InputSize returns n_u.
func (m *StateSpace) InputSize() int { return m.cfg.Inputs }

// OutputSize returns the number of read-out states.
func (m *StateSpace) OutputSize() int { return len(m.cfg.Outputs) }

// Forward simulates the model. The output at t is read before the update.
func (m *StateSpace) Forward(tape *autodiff.Tape, p []*tensor.Dense, u *tensor.Dense) (*tensor.Dense, error) {
	if err := checkForward(m, p, u); err != nil {
		return nil, err
	}
	steps := u.Rows()
	x := tensor.Zeros(tensor.Shape{m.cfg.States})
	ys := make([]*tensor.Dense, 0, steps*len(m.cfg.Outputs))

	for t := 0; t < steps; t++ {
		for _, k := range m.cfg.Outputs {
			ys = append(ys, tape.Slice(x, k, k+1))
		}
		ut, err := tensor.FromSlice(u.Row(t), tensor.Shape{m.cfg.Inputs})
		if err != nil {
			return nil, err
		}
		h := tape.Tanh(m.hidden.Apply(tape, p[0], p[1], tape.Concat(x, ut)))
		dx := m.out.Apply(tape, p[2], p[3], h)
		x = tape.Add(x, tape.Scale(dx, m.cfg.ScaleDx))
	}
	return tape.Reshape(tape.Concat(ys...), tensor.Shape{steps, len(m.cfg.Outputs)}), nil
}
