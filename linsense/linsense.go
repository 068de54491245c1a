// Copyright 2025 The linsense Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linsense

import (
	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/adapt"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/jacobian"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/linearize"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/metrics"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/ridge"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Parameters.
type (
	Parameter = params.Parameter
	ParamSet  = params.Set
	Layout    = params.Layout
)

// NewParameter creates a named parameter.
func NewParameter(name string, value *tensor.Dense) *Parameter {
	return params.New(name, value)
}

// NewParamSet creates an ordered parameter set. Names must be unique.
func NewParamSet(ps ...*Parameter) (*ParamSet, error) {
	return params.NewSet(ps...)
}

// Flatten concatenates the set's values in declaration order.
func Flatten(s *ParamSet) ([]float64, Layout) {
	return params.Flatten(s)
}

// Unflatten splits theta back into per-parameter tensors.
func Unflatten(theta []float64, l Layout) ([]*tensor.Dense, error) {
	return params.Unflatten(theta, l)
}

// Jacobian extraction.
type (
	Strategy        = jacobian.Strategy
	JacobianOptions = jacobian.Options
	Jacobian        = jacobian.Result
)

// Jacobian strategies.
const (
	Vectorized = jacobian.Vectorized
	Looped     = jacobian.Looped
)

// Extract returns the Jacobian of fn at the set's current values.
func Extract(fn autodiff.Func, set *ParamSet, opts JacobianOptions) (*Jacobian, error) {
	return jacobian.Extract(fn, set, opts)
}

// Ridge solver.
type (
	Method       = ridge.Method
	SolveOptions = ridge.Options
	Solution     = ridge.Result
	Noise        = ridge.Noise
)

// Solver methods.
const (
	ClosedForm      = ridge.ClosedForm
	GradientDescent = ridge.GradientDescent
	LBFGS           = ridge.LBFGS
)

// Solve returns (JᵀJ + σ²I)⁻¹Jᵀy.
func Solve(J *mat.Dense, y []float64, sigma2 float64, opts SolveOptions) (*Solution, error) {
	return ridge.Solve(J, y, sigma2, opts)
}

// SolveWeighted solves the ridge problem with per-channel noise levels.
func SolveWeighted(J *mat.Dense, y []float64, noise Noise, opts SolveOptions) (*Solution, error) {
	return ridge.SolveWeighted(J, y, noise, opts)
}

// Linearized prediction.
type (
	Offset         = linearize.Offset
	PredictOptions = linearize.Options
	Prediction     = linearize.Prediction
)

// Offset modes.
const (
	Residual        = linearize.Residual
	SensitivityOnly = linearize.SensitivityOnly
)

// Predict evaluates y_sim + Jδ with one forward-mode sweep.
func Predict(fn autodiff.Func, set *ParamSet, delta []*tensor.Dense, opts PredictOptions) (*Prediction, error) {
	return linearize.Predict(fn, set, delta, opts)
}

// PredictFlat is Predict with a flat direction.
func PredictFlat(fn autodiff.Func, set *ParamSet, theta []float64, layout Layout, opts PredictOptions) (*Prediction, error) {
	return linearize.PredictFlat(fn, set, theta, layout, opts)
}

// Fit metrics.
type (
	MetricsOptions = metrics.Options
	Metrics        = metrics.Report
)

// Evaluate scores yhat against y per channel.
func Evaluate(y, yhat *tensor.Dense, opts MetricsOptions) (*Metrics, error) {
	return metrics.Evaluate(y, yhat, opts)
}

// Adaptation episodes.
type (
	AdapterConfig = adapt.Config
	Adapter       = adapt.Adapter
	Episode       = adapt.Episode
	Report        = adapt.Report
)

// NewAdapter creates an Adapter.
func NewAdapter(cfg AdapterConfig, log logr.Logger) *Adapter {
	return adapt.New(cfg, log)
}

// Errors.
type (
	NumericalError         = errs.NumericalError
	SingularSystemError    = errs.SingularSystemError
	ShapeMismatchError     = errs.ShapeMismatchError
	ResourceExhaustedError = errs.ResourceExhaustedError
)

// Error categories for errors.Is.
var (
	ErrNumerical         = errs.ErrNumerical
	ErrSingularSystem    = errs.ErrSingularSystem
	ErrShapeMismatch     = errs.ErrShapeMismatch
	ErrResourceExhausted = errs.ErrResourceExhausted
)
