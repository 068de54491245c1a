// Package ridge solves the regularised least-squares problem that adapts a
// linearized model to new data:
//
//	θ_lin = argmin ½‖Jθ − y‖² + ½σ²‖θ‖² = (JᵀJ + σ²I)⁻¹ Jᵀy
//
// which is also the posterior mean of Bayesian linear regression with prior
// θ ~ N(0, I) and Gaussian observation noise of variance σ². The posterior
// covariance is σ²(JᵀJ + σ²I)⁻¹.
//
// The closed form is the reference method. For wide problems (P > N) with
// σ² > 0 the equivalent dual form θ = Jᵀ(JJᵀ + σ²I)⁻¹y is used, which
// factorises an N×N matrix instead of a P×P one.
package ridge

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
)

// ErrInvalidNoise is returned for negative or non-finite noise levels.
var ErrInvalidNoise = errors.New("ridge: noise must be finite and non-negative")

// maxCond is the largest acceptable condition number of an unregularised
// gram matrix.
const maxCond = 1e12

// Method selects the solver.
type Method int

// Solvers. All minimise the same objective.
const (
	ClosedForm Method = iota
	GradientDescent
	LBFGS
)

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case ClosedForm:
		return "closed_form"
	case GradientDescent:
		return "gradient_descent"
	case LBFGS:
		return "lbfgs"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod converts a name (case-insensitive) to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "closed_form", "closed", "":
		return ClosedForm, nil
	case "gradient_descent", "gd":
		return GradientDescent, nil
	case "lbfgs", "l_bfgs":
		return LBFGS, nil
	default:
		return 0, fmt.Errorf("ridge: unknown method %q", name)
	}
}

// Form selects primal or dual normal equations for ClosedForm.
type Form int

// Normal-equation forms.
const (
	Auto   Form = iota // Dual when P > N and σ² > 0
	Primal             // (JᵀJ + σ²I) θ = Jᵀy
	Dual               // θ = Jᵀ(JJᵀ + σ²I)⁻¹y
)

// Options configures Solve.
type Options struct {
	Method     Method
	Form       Form
	Covariance bool // also return σ²(JᵀJ + σ²I)⁻¹

	// Iterative methods only.
	Iterations   int     // default 20000 (GradientDescent), 1000 (LBFGS)
	Tolerance    float64 // gradient norm threshold, default 1e-10
	Optimizer    string  // GradientDescent: "sgd" (default) or "adam"
	LearningRate float64 // GradientDescent: default 1/L for sgd, 0.01 for adam
	Momentum     float64 // GradientDescent with sgd
}

// Result is the solution of one ridge problem.
type Result struct {
	Theta      []float64
	Covariance *mat.SymDense // nil unless requested
	Sigma2     float64
	Method     Method
	Dual       bool    // closed form solved in dual form
	Iterations int     // iterative methods only
	Cond       float64 // condition estimate of the factorised matrix, 0 if not computed
}

// Solve returns θ_lin for the N×P Jacobian J, targets y (length N) and
// noise variance sigma2.
//
// With sigma2 = 0 the system must be well posed: a rank-deficient or
// ill-conditioned JᵀJ yields a SingularSystemError regardless of method.
func Solve(J *mat.Dense, y []float64, sigma2 float64, opts Options) (*Result, error) {
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) || sigma2 < 0 {
		return nil, fmt.Errorf("%w: sigma2=%v", ErrInvalidNoise, sigma2)
	}
	n, p := J.Dims()
	if len(y) != n {
		return nil, errs.Shape("ridge targets", n, len(y))
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &errs.NumericalError{Op: "ridge targets", Row: i, Col: -1, Value: v}
		}
	}

	if opts.Method != ClosedForm && sigma2 == 0 {
		if _, err := factorize(primalGram(J, 0), 0); err != nil {
			return nil, err
		}
	}

	switch opts.Method {
	case ClosedForm:
		dual := opts.Form == Dual || (opts.Form == Auto && p > n && sigma2 > 0)
		if dual {
			return solveDual(J, y, sigma2, opts)
		}
		return solvePrimal(J, y, sigma2, opts)
	case GradientDescent:
		return solveGradientDescent(J, y, sigma2, opts)
	case LBFGS:
		return solveLBFGS(J, y, sigma2, opts)
	default:
		return nil, fmt.Errorf("ridge: unknown method %v", opts.Method)
	}
}

// primalGram returns JᵀJ + σ²I.
func primalGram(J *mat.Dense, sigma2 float64) *mat.SymDense {
	_, p := J.Dims()
	g := mat.NewSymDense(p, nil)
	g.SymOuterK(1, J.T())
	addDiag(g, sigma2)
	return g
}

// dualGram returns JJᵀ + σ²I.
func dualGram(J *mat.Dense, sigma2 float64) *mat.SymDense {
	n, _ := J.Dims()
	k := mat.NewSymDense(n, nil)
	k.SymOuterK(1, J)
	addDiag(k, sigma2)
	return k
}

func addDiag(s *mat.SymDense, v float64) {
	if v == 0 {
		return
	}
	for i := 0; i < s.SymmetricDim(); i++ {
		s.SetSym(i, i, s.At(i, i)+v)
	}
}

// factorize computes a Cholesky factorisation, rejecting singular systems
// and, for sigma2 = 0, ill-conditioned ones.
func factorize(g *mat.SymDense, sigma2 float64) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(g); !ok {
		return nil, &errs.SingularSystemError{Dim: g.SymmetricDim(), Sigma2: sigma2, Cond: math.Inf(1)}
	}
	if sigma2 == 0 {
		if cond := chol.Cond(); cond > maxCond {
			return nil, &errs.SingularSystemError{Dim: g.SymmetricDim(), Sigma2: sigma2, Cond: cond}
		}
	}
	return &chol, nil
}

func solvePrimal(J *mat.Dense, y []float64, sigma2 float64, opts Options) (*Result, error) {
	_, p := J.Dims()
	chol, err := factorize(primalGram(J, sigma2), sigma2)
	if err != nil {
		return nil, err
	}

	var rhs mat.VecDense
	rhs.MulVec(J.T(), mat.NewVecDense(len(y), y))
	theta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(theta, &rhs); err != nil {
		return nil, fmt.Errorf("ridge: primal solve: %w", err)
	}

	res := &Result{Theta: theta.RawVector().Data, Sigma2: sigma2, Method: ClosedForm, Cond: chol.Cond()}
	if opts.Covariance {
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err != nil {
			return nil, fmt.Errorf("ridge: covariance: %w", err)
		}
		inv.ScaleSym(sigma2, &inv)
		res.Covariance = &inv
	}
	return res, nil
}

func solveDual(J *mat.Dense, y []float64, sigma2 float64, opts Options) (*Result, error) {
	_, p := J.Dims()
	chol, err := factorize(dualGram(J, sigma2), sigma2)
	if err != nil {
		return nil, err
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, mat.NewVecDense(len(y), y)); err != nil {
		return nil, fmt.Errorf("ridge: dual solve: %w", err)
	}
	theta := mat.NewVecDense(p, nil)
	theta.MulVec(J.T(), &alpha)

	res := &Result{Theta: theta.RawVector().Data, Sigma2: sigma2, Method: ClosedForm, Dual: true, Cond: chol.Cond()}
	if opts.Covariance {
		// σ²(JᵀJ + σ²I)⁻¹ = I − Jᵀ(JJᵀ + σ²I)⁻¹J
		var kinvJ mat.Dense
		if err := chol.SolveTo(&kinvJ, J); err != nil {
			return nil, fmt.Errorf("ridge: covariance: %w", err)
		}
		var m mat.Dense
		m.Mul(J.T(), &kinvJ)
		cov := mat.NewSymDense(p, nil)
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				v := -(m.At(i, j) + m.At(j, i)) / 2
				if i == j {
					v++
				}
				cov.SetSym(i, j, v)
			}
		}
		res.Covariance = cov
	}
	return res, nil
}

// objective evaluates ½‖Jθ − y‖² + ½σ²‖θ‖² and writes its gradient
// Jᵀ(Jθ − y) + σ²θ into grad when grad is non-nil.
type objective struct {
	J      *mat.Dense
	y      *mat.VecDense
	sigma2 float64
	resid  *mat.VecDense
}

func newObjective(J *mat.Dense, y []float64, sigma2 float64) *objective {
	n, _ := J.Dims()
	return &objective{J: J, y: mat.NewVecDense(n, y), sigma2: sigma2, resid: mat.NewVecDense(n, nil)}
}

func (o *objective) eval(grad, theta []float64) float64 {
	_, p := o.J.Dims()
	t := mat.NewVecDense(p, theta)
	o.resid.MulVec(o.J, t)
	o.resid.SubVec(o.resid, o.y)
	f := 0.5*mat.Dot(o.resid, o.resid) + 0.5*o.sigma2*mat.Dot(t, t)
	if grad != nil {
		g := mat.NewVecDense(p, grad)
		g.MulVec(o.J.T(), o.resid)
		g.AddScaledVec(g, o.sigma2, t)
	}
	return f
}

// covarianceFor computes the closed-form covariance for iterative methods.
func covarianceFor(J *mat.Dense, sigma2 float64, opts Options, res *Result) error {
	if !opts.Covariance {
		return nil
	}
	n, _ := J.Dims()
	cf, err := Solve(J, make([]float64, n), sigma2, Options{Form: opts.Form, Covariance: true})
	if err != nil {
		return err
	}
	res.Covariance = cf.Covariance
	return nil
}
