package gp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Hyper are the RBF regression hyperparameters.
type Hyper struct {
	Lengthscale float64
	Outputscale float64
	Noise       float64
	Mean        float64
}

// DefaultHyper matches the usual initial values of an exact GP.
var DefaultHyper = Hyper{Lengthscale: 0.7, Outputscale: 0.7, Noise: 0.7, Mean: 0}

// FitOptions configures FitRBF.
type FitOptions struct {
	Init           Hyper
	MaxEvaluations int     // default 1000
	MinNoise       float64 // lower bound on the noise variance, default 1e-6
}

// FitRBF chooses RBF hyperparameters by maximising the marginal likelihood
// with Nelder-Mead over (log ℓ, log s, log σ², mean), and returns the
// regressor conditioned on the data.
func FitRBF(x mat.Matrix, y []float64, opts FitOptions) (*Regressor, Hyper, error) {
	if opts.Init == (Hyper{}) {
		opts.Init = DefaultHyper
	}
	if opts.MaxEvaluations == 0 {
		opts.MaxEvaluations = 1000
	}
	if opts.MinNoise == 0 {
		opts.MinNoise = 1e-6
	}

	decode := func(z []float64) Hyper {
		return Hyper{
			Lengthscale: math.Exp(z[0]),
			Outputscale: math.Exp(z[1]),
			Noise:       math.Max(math.Exp(z[2]), opts.MinNoise),
			Mean:        z[3],
		}
	}
	build := func(h Hyper) *Regressor {
		return &Regressor{
			Kernel: RBF{Lengthscale: h.Lengthscale, Outputscale: h.Outputscale},
			Mean:   h.Mean,
			Noise:  h.Noise,
		}
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			r := build(decode(z))
			if err := r.Condition(x, y); err != nil {
				return math.Inf(1)
			}
			lml, err := r.LogMarginalLikelihood()
			if err != nil || math.IsNaN(lml) {
				return math.Inf(1)
			}
			return -lml
		},
	}
	x0 := []float64{
		math.Log(opts.Init.Lengthscale),
		math.Log(opts.Init.Outputscale),
		math.Log(opts.Init.Noise),
		opts.Init.Mean,
	}
	settings := &optimize.Settings{FuncEvaluations: opts.MaxEvaluations}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil {
		return nil, Hyper{}, fmt.Errorf("gp: hyperparameter search: %w", err)
	}

	best := decode(result.X)
	r := build(best)
	if err := r.Condition(x, y); err != nil {
		return nil, Hyper{}, fmt.Errorf("gp: condition on fitted hyperparameters: %w", err)
	}
	return r, best, nil
}
