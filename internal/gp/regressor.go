package gp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
)

// ErrNotConditioned is returned when predicting before Condition.
var ErrNotConditioned = errors.New("gp: regressor has no training data")

// Regressor is an exact GP with constant mean and Gaussian noise.
type Regressor struct {
	Kernel Kernel
	Mean   float64 // constant prior mean
	Noise  float64 // observation noise variance

	x     mat.Matrix
	y     []float64
	chol  *mat.Cholesky
	alpha *mat.VecDense // (K + σ²I)⁻¹ (y − m)
}

// Posterior is a predictive distribution at a set of test points.
type Posterior struct {
	Mean     []float64
	Variance []float64
}

// Condition stores the training data and factorises K + σ²I.
func (r *Regressor) Condition(x mat.Matrix, y []float64) error {
	n, _ := x.Dims()
	if len(y) != n {
		return errs.Shape("gp targets", n, len(y))
	}
	if r.Noise < 0 || math.IsNaN(r.Noise) {
		return fmt.Errorf("gp: noise variance must be non-negative, got %g", r.Noise)
	}

	k := r.Kernel.Gram(x, x)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := (k.At(i, j) + k.At(j, i)) / 2
			if i == j {
				v += r.Noise
			}
			sym.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return &errs.SingularSystemError{Dim: n, Sigma2: r.Noise, Cond: math.Inf(1)}
	}

	centred := make([]float64, n)
	for i, v := range y {
		centred[i] = v - r.Mean
	}
	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, mat.NewVecDense(n, centred)); err != nil {
		return fmt.Errorf("gp: solve: %w", err)
	}

	r.x, r.y, r.chol, r.alpha = x, append([]float64(nil), y...), &chol, &alpha
	return nil
}

// LogMarginalLikelihood returns log p(y | x, hyperparameters).
func (r *Regressor) LogMarginalLikelihood() (float64, error) {
	if r.chol == nil {
		return 0, ErrNotConditioned
	}
	n := len(r.y)
	var fit float64
	for i, v := range r.y {
		fit += (v - r.Mean) * r.alpha.AtVec(i)
	}
	return -0.5*fit - 0.5*r.chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi), nil
}

// Predict returns the posterior of the latent function at xs, or of the
// observations when withNoise is set.
func (r *Regressor) Predict(xs mat.Matrix, withNoise bool) (*Posterior, error) {
	if r.chol == nil {
		return nil, ErrNotConditioned
	}
	m, _ := xs.Dims()
	kstar := r.Kernel.Gram(r.x, xs) // n × m

	var mean mat.VecDense
	mean.MulVec(kstar.T(), r.alpha)

	var v mat.Dense // (K + σ²I)⁻¹ k*
	if err := r.chol.SolveTo(&v, kstar); err != nil {
		return nil, fmt.Errorf("gp: predict: %w", err)
	}

	post := &Posterior{Mean: make([]float64, m), Variance: make([]float64, m)}
	for j := 0; j < m; j++ {
		post.Mean[j] = r.Mean + mean.AtVec(j)
		prior := r.Kernel.Gram(rowOf(xs, j), rowOf(xs, j)).At(0, 0)
		reduction := mat.Dot(kstar.ColView(j), v.ColView(j))
		variance := math.Max(prior-reduction, 0)
		if withNoise {
			variance += r.Noise
		}
		post.Variance[j] = variance
	}
	return post, nil
}

func rowOf(x mat.Matrix, i int) mat.Matrix {
	_, d := x.Dims()
	row := make([]float64, d)
	for c := range row {
		row[c] = x.At(i, c)
	}
	return mat.NewDense(1, d, row)
}

// ConfidenceRegion returns mean ± 2 standard deviations.
func (p *Posterior) ConfidenceRegion() (lower, upper []float64) {
	lower = make([]float64, len(p.Mean))
	upper = make([]float64, len(p.Mean))
	for i, m := range p.Mean {
		sd := math.Sqrt(p.Variance[i])
		lower[i] = m - 2*sd
		upper[i] = m + 2*sd
	}
	return lower, upper
}
