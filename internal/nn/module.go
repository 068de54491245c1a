// Package nn implements the differentiable dynamical models used for
// parameter-space linearization.
//
// This package provides:
//   - Model interface: ordered parameters plus a pure forward function
//   - Linear: fully connected building block
//   - Gain: y = a·u, the scalar linear model
//   - IIR: SISO linear dynamical operator with numerator/denominator taps
//   - StateSpace: neural state-space model with a forward Euler simulator
//   - LSTM: single-layer LSTM with a linear read-out
//
// Models never mutate their parameters while running: Forward receives the
// parameter tensors to use (tape leaves for derivatives, the stored values
// for plain simulation) and closes over nothing else but the architecture.
package nn

import (
	"math/rand/v2"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Model is a differentiable map from an input sequence to an output sequence.
//
// Sequences are time-major: inputs have shape [T, InputSize()] and outputs
// have shape [T, OutputSize()].
type Model interface {
	// Name identifies the architecture (e.g., "iir", "lstm").
	Name() string

	// Parameters returns the trainable parameters in declaration order.
	// The order is part of the contract: it fixes the Jacobian columns.
	Parameters() *params.Set

	// InputSize returns the number of input channels.
	InputSize() int

	// OutputSize returns the number of output channels.
	OutputSize() int

	// Forward computes the output sequence using p (in Parameters() order)
	// in place of the stored parameter values.
	Forward(tape *autodiff.Tape, p []*tensor.Dense, u *tensor.Dense) (*tensor.Dense, error)
}

// Bind closes m over the input sequence u, producing a pure function of
// the parameters.
func Bind(m Model, u *tensor.Dense) autodiff.Func {
	return func(tape *autodiff.Tape, p []*tensor.Dense) (*tensor.Dense, error) {
		return m.Forward(tape, p, u)
	}
}

// Simulate runs the model with its stored parameters. Nothing is recorded.
func Simulate(m Model, u *tensor.Dense) (*tensor.Dense, error) {
	return autodiff.Evaluate(Bind(m, u), m.Parameters().Values())
}

// checkForward validates the arguments shared by every Forward.
func checkForward(m Model, p []*tensor.Dense, u *tensor.Dense) error {
	if err := m.Parameters().Layout().CheckTensors(p); err != nil {
		return err
	}
	shape := u.Shape()
	if len(shape) != 2 || shape[0] < 1 || shape[1] != m.InputSize() {
		return errs.Shape(m.Name()+" input [T, channels]", []int{-1, m.InputSize()}, shape)
	}
	return nil
}

// newRand returns rng, or a fixed-seed generator when rng is nil.
func newRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewPCG(0, 0)) //nolint:gosec // weight initialization is not security-critical
}

// mustSet builds a set from freshly named parameters. Names are fixed by
// the constructors, so a duplicate is a programming error.
func mustSet(ps ...*params.Parameter) *params.Set {
	s, err := params.NewSet(ps...)
	if err != nil {
		panic(err)
	}
	return s
}
