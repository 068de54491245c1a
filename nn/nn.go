// Copyright 2025 The linsense Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the differentiable dynamical models that linsense
// linearizes.
//
// Models are pure: Forward receives the parameter tensors to use, so the
// same model can be evaluated at θ₀, differentiated, or run with adapted
// weights without mutation.
//
//	b, a := circuit.NominalIIR(1e-6)
//	model, err := nn.NewIIR(b, a)
//	y, err := nn.Simulate(model, u)
package nn

import (
	"io"
	"math/rand/v2"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/nn"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Model is a differentiable map from [T, in] inputs to [T, out] outputs.
type Model = nn.Model

// Gain is the scalar model y = a·u.
type Gain = nn.Gain

// IIR is a SISO linear dynamical operator.
type IIR = nn.IIR

// StateSpace is a neural state-space model simulated with forward Euler.
type StateSpace = nn.StateSpace

// StateSpaceConfig configures NewStateSpace.
type StateSpaceConfig = nn.StateSpaceConfig

// LSTM is a single-layer LSTM with a linear read-out.
type LSTM = nn.LSTM

// LSTMConfig configures NewLSTM.
type LSTMConfig = nn.LSTMConfig

// NewGain creates a Gain with initial value a0.
func NewGain(a0 float64) *Gain {
	return nn.NewGain(a0)
}

// NewIIR creates an IIR model from numerator taps b and denominator taps a
// (without the leading 1).
func NewIIR(b, a []float64) (*IIR, error) {
	return nn.NewIIR(b, a)
}

// NewStateSpace creates a neural state-space model. A nil rng uses a fixed
// seed.
func NewStateSpace(cfg StateSpaceConfig, rng *rand.Rand) (*StateSpace, error) {
	return nn.NewStateSpace(cfg, rng)
}

// NewLSTM creates an LSTM model. A nil rng uses a fixed seed.
func NewLSTM(cfg LSTMConfig, rng *rand.Rand) (*LSTM, error) {
	return nn.NewLSTM(cfg, rng)
}

// Bind closes m over u, giving a pure function of the parameters.
func Bind(m Model, u *tensor.Dense) autodiff.Func {
	return nn.Bind(m, u)
}

// Simulate runs m with its stored parameters.
func Simulate(m Model, u *tensor.Dense) (*tensor.Dense, error) {
	return nn.Simulate(m, u)
}

// SaveWeights writes m's parameters in SafeTensors format.
func SaveWeights(w io.Writer, m Model) error {
	return nn.SaveWeights(w, m)
}

// LoadWeights replaces m's parameters with those stored in r.
func LoadWeights(r io.ReadSeeker, m Model) error {
	return nn.LoadWeights(r, m)
}
