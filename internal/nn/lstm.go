package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// LSTMConfig configures an LSTM model.
type LSTMConfig struct {
	Inputs  int
	Hidden  int
	Outputs int
}

// LSTM is a single-layer LSTM followed by a linear read-out of the hidden
// state. Gates are stacked in the order input, forget, cell, output:
//
//	z = W_ih u_t + b_ih + W_hh h + b_hh
//	c = σ(z_f) ⊙ c + σ(z_i) ⊙ tanh(z_g)
//	h = σ(z_o) ⊙ tanh(c)
//	y_t = W_head h + b_head
type LSTM struct {
	cfg  LSTMConfig
	head *Linear
	set  *params.Set
}

// NewLSTM creates an LSTM. Recurrent weights and biases are drawn from
// U(-1/√H, 1/√H); the head uses Xavier initialization.
func NewLSTM(cfg LSTMConfig, rng *rand.Rand) (*LSTM, error) {
	if cfg.Inputs < 1 || cfg.Hidden < 1 || cfg.Outputs < 1 {
		return nil, fmt.Errorf("nn: LSTM sizes must be positive, got inputs=%d hidden=%d outputs=%d",
			cfg.Inputs, cfg.Hidden, cfg.Outputs)
	}
	rng = newRand(rng)
	k := 1 / math.Sqrt(float64(cfg.Hidden))
	g := 4 * cfg.Hidden
	recurrent := []*params.Parameter{
		params.New("lstm.weight_ih_l0", Uniform(-k, k, tensor.Shape{g, cfg.Inputs}, rng)),
		params.New("lstm.weight_hh_l0", Uniform(-k, k, tensor.Shape{g, cfg.Hidden}, rng)),
		params.New("lstm.bias_ih_l0", Uniform(-k, k, tensor.Shape{g}, rng)),
		params.New("lstm.bias_hh_l0", Uniform(-k, k, tensor.Shape{g}, rng)),
	}
	head := NewLinear("head", cfg.Hidden, cfg.Outputs, rng)
	return &LSTM{
		cfg:  cfg,
		head: head,
		set:  mustSet(append(recurrent, head.Parameters()...)...),
	}, nil
}

// Name returns "lstm".
func (m *LSTM) Name() string { return "lstm" }

// Parameters returns the recurrent parameters followed by the head.
func (m *LSTM) Parameters() *params.Set { return m.set }

// InputSize returns the number of input channels.
func (m *LSTM) InputSize() int { return m.cfg.Inputs }

// OutputSize returns the number of output channels.
func (m *LSTM) OutputSize() int { return m.cfg.Outputs }

// Forward runs the LSTM from zero hidden and cell states.
func (m *LSTM) Forward(tape *autodiff.Tape, p []*tensor.Dense, u *tensor.Dense) (*tensor.Dense, error) {
	if err := checkForward(m, p, u); err != nil {
		return nil, err
	}
	wih, whh, bih, bhh := p[0], p[1], p[2], p[3]
	H := m.cfg.Hidden
	steps := u.Rows()

	h := tensor.Zeros(tensor.Shape{H})
	c := tensor.Zeros(tensor.Shape{H})
	ys := make([]*tensor.Dense, steps)
	for t := 0; t < steps; t++ {
		ut, err := tensor.FromSlice(u.Row(t), tensor.Shape{m.cfg.Inputs})
		if err != nil {
			return nil, err
		}
		z := tape.Add(
			tape.Add(tape.MatVec(wih, ut), bih),
			tape.Add(tape.MatVec(whh, h), bhh),
		)
		in := tape.Sigmoid(tape.Slice(z, 0, H))
		forget := tape.Sigmoid(tape.Slice(z, H, 2*H))
		cell := tape.Tanh(tape.Slice(z, 2*H, 3*H))
		out := tape.Sigmoid(tape.Slice(z, 3*H, 4*H))

		c = tape.Add(tape.Mul(forget, c), tape.Mul(in, cell))
		h = tape.Mul(out, tape.Tanh(c))
		ys[t] = m.head.Apply(tape, p[4], p[5], h)
	}
	return tape.Reshape(tape.Concat(ys...), tensor.Shape{steps, m.cfg.Outputs}), nil
}
