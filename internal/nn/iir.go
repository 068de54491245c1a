package nn

import (
	"errors"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// IIR is a SISO linear dynamical operator
//
//	y[t] = Σ_i b_i u[t-i] - Σ_j a_j y[t-1-j]
//
// with numerator taps "b_coeff" (i = 0..n_b-1) and denominator taps
// "a_coeff" (j = 0..n_a-1). Samples before t = 0 are zero.
type IIR struct {
	nb, na int
	set    *params.Set
}

// NewIIR creates an IIR operator from initial coefficients. a may be
// empty (FIR filter); b may not.
func NewIIR(b, a []float64) (*IIR, error) {
	if len(b) == 0 {
		return nil, errors.New("nn: IIR needs at least one numerator coefficient")
	}
	bt, err := tensor.FromSlice(b, tensor.Shape{len(b)})
	if err != nil {
		return nil, err
	}
	ps := []*params.Parameter{params.New("b_coeff", bt)}
	if len(a) > 0 {
		at, err := tensor.FromSlice(a, tensor.Shape{len(a)})
		if err != nil {
			return nil, err
		}
		ps = append(ps, params.New("a_coeff", at))
	}
	return &IIR{nb: len(b), na: len(a), set: mustSet(ps...)}, nil
}

// Name returns "iir".
func (m *IIR) Name() string { return "iir" }

// Parameters returns {b_coeff, a_coeff}.
func (m *IIR) Parameters() *params.Set { return m.set }

// InputSize returns 1.
func (m *IIR) InputSize() int { return 1 }

// OutputSize returns 1.
func (m *IIR) OutputSize() int { return 1 }

// Forward runs the difference equation over the whole sequence.
func (m *IIR) Forward(tape *autodiff.Tape, p []*tensor.Dense, u *tensor.Dense) (*tensor.Dense, error) {
	if err := checkForward(m, p, u); err != nil {
		return nil, err
	}
	steps := u.Rows()
	in := u.Data()
	b := p[0]
	zero := tensor.Zeros(tensor.Shape{1})

	ys := make([]*tensor.Dense, steps)
	for t := 0; t < steps; t++ {
		phi := tensor.Zeros(tensor.Shape{m.nb})
		for i := 0; i < m.nb && t-i >= 0; i++ {
			phi.Data()[i] = in[t-i]
		}
		yt := tape.Dot(b, phi)
		if m.na > 0 {
			past := make([]*tensor.Dense, m.na)
			for j := range past {
				if t-1-j >= 0 {
					past[j] = ys[t-1-j]
				} else {
					past[j] = zero
				}
			}
			yt = tape.Sub(yt, tape.Dot(p[1], tape.Concat(past...)))
		}
		ys[t] = yt
	}
	return tape.Reshape(tape.Concat(ys...), tensor.Shape{steps, 1}), nil
}
