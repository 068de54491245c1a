package ridge

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/optim"
)

func (o Options) withDefaults(m Method) Options {
	if o.Iterations == 0 {
		if m == LBFGS {
			o.Iterations = 1000
		} else {
			o.Iterations = 20000
		}
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-10
	}
	if o.Optimizer == "" {
		o.Optimizer = "sgd"
	}
	return o
}

// lipschitz bounds the largest eigenvalue of JᵀJ + σ²I by ‖J‖_F² + σ².
func lipschitz(J *mat.Dense, sigma2 float64) float64 {
	f := mat.Norm(J, 2)
	return f*f + sigma2
}

func newOptimizer(J *mat.Dense, sigma2 float64, opts Options) (optim.Optimizer, error) {
	_, p := J.Dims()
	switch opts.Optimizer {
	case "sgd":
		lr := opts.LearningRate
		if lr == 0 {
			lr = 1 / lipschitz(J, sigma2)
		}
		return optim.NewSGD(p, optim.SGDConfig{LR: lr, Momentum: opts.Momentum}), nil
	case "adam":
		return optim.NewAdam(p, optim.AdamConfig{LR: opts.LearningRate}), nil
	default:
		return nil, fmt.Errorf("ridge: unknown optimizer %q", opts.Optimizer)
	}
}

// solveGradientDescent runs first-order descent from θ = 0 until the
// gradient norm falls below the tolerance.
func solveGradientDescent(J *mat.Dense, y []float64, sigma2 float64, opts Options) (*Result, error) {
	opts = opts.withDefaults(GradientDescent)
	_, p := J.Dims()
	opt, err := newOptimizer(J, sigma2, opts)
	if err != nil {
		return nil, err
	}

	obj := newObjective(J, y, sigma2)
	theta := make([]float64, p)
	grad := make([]float64, p)
	iter := 0
	for ; iter < opts.Iterations; iter++ {
		obj.eval(grad, theta)
		if floats.Norm(grad, 2) < opts.Tolerance {
			break
		}
		opt.Step(theta, grad)
	}
	if floats.HasNaN(theta) || math.IsInf(floats.Norm(theta, 2), 0) {
		return nil, fmt.Errorf("ridge: gradient descent diverged after %d iterations", iter)
	}

	res := &Result{Theta: theta, Sigma2: sigma2, Method: GradientDescent, Iterations: iter}
	if err := covarianceFor(J, sigma2, opts, res); err != nil {
		return nil, err
	}
	return res, nil
}

// solveLBFGS minimises the objective with gonum's L-BFGS.
func solveLBFGS(J *mat.Dense, y []float64, sigma2 float64, opts Options) (*Result, error) {
	opts = opts.withDefaults(LBFGS)
	_, p := J.Dims()
	obj := newObjective(J, y, sigma2)

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return obj.eval(nil, x) },
		Grad: func(grad, x []float64) { obj.eval(grad, x) },
	}
	settings := &optimize.Settings{
		GradientThreshold: opts.Tolerance,
		MajorIterations:   opts.Iterations,
	}
	result, err := optimize.Minimize(problem, make([]float64, p), settings, &optimize.LBFGS{})
	if err != nil {
		// Line searches can stall once the quadratic is solved to machine
		// precision; accept the point if the gradient is small anyway.
		if result == nil || !converged(obj, result.X, y, opts.Tolerance) {
			return nil, fmt.Errorf("ridge: lbfgs: %w", err)
		}
	}
	if result.Status == optimize.IterationLimit && !converged(obj, result.X, y, opts.Tolerance) {
		return nil, errors.New("ridge: lbfgs: iteration limit reached before convergence")
	}

	res := &Result{Theta: result.X, Sigma2: sigma2, Method: LBFGS, Iterations: result.Stats.MajorIterations}
	if err := covarianceFor(J, sigma2, opts, res); err != nil {
		return nil, err
	}
	return res, nil
}

// converged reports whether the gradient at x is small relative to ‖y‖.
func converged(obj *objective, x, y []float64, tol float64) bool {
	grad := make([]float64, len(x))
	obj.eval(grad, x)
	return floats.Norm(grad, 2) <= math.Max(tol, 1e-8*(1+floats.Norm(y, 2)))
}
