package gp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/jacobian"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/linearize"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/nn"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/ridge"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

func sinData(n int, noiseStd float64, seed uint64) ([]float64, []float64) {
	x := make([]float64, n)
	floats.Span(x, 0, 1)
	noise := distuv.Normal{Mu: 0, Sigma: noiseStd, Src: rand.New(rand.NewPCG(seed, 0))}
	y := make([]float64, n)
	for i, v := range x {
		y[i] = math.Sin(2*math.Pi*v) + noise.Rand()
	}
	return x, y
}

func TestRBFGram(t *testing.T) {
	k := RBF{Lengthscale: 0.5, Outputscale: 2}
	g := k.Gram(Points([]float64{0, 1}), Points([]float64{0, 1, 2}))
	assert.InDelta(t, 2, g.At(0, 0), 1e-12)
	assert.InDelta(t, 2*math.Exp(-2), g.At(0, 1), 1e-12)
	assert.InDelta(t, 2*math.Exp(-8), g.At(0, 2), 1e-12)
	assert.InDelta(t, g.At(0, 1), g.At(1, 0), 1e-12)
}

func TestPredictBeforeCondition(t *testing.T) {
	r := &Regressor{Kernel: RBF{Lengthscale: 1, Outputscale: 1}, Noise: 0.1}
	_, err := r.Predict(Points([]float64{0}), false)
	assert.ErrorIs(t, err, ErrNotConditioned)
	_, err = r.LogMarginalLikelihood()
	assert.ErrorIs(t, err, ErrNotConditioned)
}

func TestConditionShapeMismatch(t *testing.T) {
	r := &Regressor{Kernel: RBF{Lengthscale: 1, Outputscale: 1}, Noise: 0.1}
	require.Error(t, r.Condition(Points([]float64{0, 1}), []float64{1}))
}

func TestNoiselessInterpolation(t *testing.T) {
	x := []float64{0, 0.3, 0.7, 1}
	y := []float64{1, -1, 0.5, 2}
	r := &Regressor{Kernel: RBF{Lengthscale: 0.3, Outputscale: 1}, Mean: 0.2, Noise: 1e-10}
	require.NoError(t, r.Condition(Points(x), y))

	post, err := r.Predict(Points(x), false)
	require.NoError(t, err)
	for i := range x {
		assert.InDelta(t, y[i], post.Mean[i], 1e-4)
		assert.InDelta(t, 0, post.Variance[i], 1e-6)
	}

	far, err := r.Predict(Points([]float64{50}), false)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, far.Mean[0], 1e-9, "reverts to the prior mean")
	assert.InDelta(t, 1, far.Variance[0], 1e-9)
}

func TestFitRBFSine(t *testing.T) {
	x, y := sinData(100, 0.2, 7)

	initial := &Regressor{
		Kernel: RBF{Lengthscale: DefaultHyper.Lengthscale, Outputscale: DefaultHyper.Outputscale},
		Noise:  DefaultHyper.Noise,
	}
	require.NoError(t, initial.Condition(Points(x), y))
	before, err := initial.LogMarginalLikelihood()
	require.NoError(t, err)

	r, hyper, err := FitRBF(Points(x), y, FitOptions{})
	require.NoError(t, err)
	after, err := r.LogMarginalLikelihood()
	require.NoError(t, err)
	assert.Greater(t, after, before)
	assert.Greater(t, hyper.Noise, 0.005)
	assert.Less(t, hyper.Noise, 0.15)

	test := make([]float64, 51)
	floats.Span(test, 0, 1)
	post, err := r.Predict(Points(test), true)
	require.NoError(t, err)
	lower, upper := post.ConfidenceRegion()

	covered := 0
	for i, v := range test {
		truth := math.Sin(2 * math.Pi * v)
		assert.InDelta(t, truth, post.Mean[i], 0.25, "x=%g", v)
		assert.LessOrEqual(t, lower[i], post.Mean[i])
		assert.GreaterOrEqual(t, upper[i], post.Mean[i])
		if truth >= lower[i] && truth <= upper[i] {
			covered++
		}
	}
	assert.GreaterOrEqual(t, covered, 46)
}

// mlp builds y_i = w2·tanh(W1 x_i + b1) + b2 over a batch of scalar inputs.
func mlp(t *testing.T, hidden int) (*params.Set, func([]float64) autodiff.Func) {
	t.Helper()
	rng := rand.New(rand.NewPCG(3, 4))
	l1 := nn.NewLinear("fc1", 1, hidden, rng)
	l2 := nn.NewLinear("fc2", hidden, 1, rng)
	set, err := params.NewSet(append(l1.Parameters(), l2.Parameters()...)...)
	require.NoError(t, err)

	bind := func(xs []float64) autodiff.Func {
		return func(tape *autodiff.Tape, p []*tensor.Dense) (*tensor.Dense, error) {
			outs := make([]*tensor.Dense, len(xs))
			for i, v := range xs {
				in, err := tensor.FromSlice([]float64{v}, tensor.Shape{1})
				if err != nil {
					return nil, err
				}
				h := tape.Tanh(l1.Apply(tape, p[0], p[1], in))
				outs[i] = l2.Apply(tape, p[2], p[3], h)
			}
			return tape.Concat(outs...), nil
		}
	}
	return set, bind
}

func TestNTKPosteriorMatchesRidge(t *testing.T) {
	const sigma2 = 0.05
	set, bind := mlp(t, 8)
	x, y := sinData(20, 0.1, 11)
	test := []float64{-0.2, 0.15, 0.5, 0.85, 1.3}

	train, err := jacobian.Extract(bind(x), set, jacobian.Options{})
	require.NoError(t, err)
	resid := make([]float64, len(y))
	floats.SubTo(resid, y, train.Output.Data())

	sol, err := ridge.Solve(train.J, resid, sigma2, ridge.Options{Covariance: true})
	require.NoError(t, err)
	lin, err := linearize.PredictFlat(bind(test), set, sol.Theta, train.Layout, linearize.Options{})
	require.NoError(t, err)

	r := &Regressor{Kernel: NTK, Noise: sigma2}
	require.NoError(t, r.Condition(train.J, resid))
	at, err := jacobian.Extract(bind(test), set, jacobian.Options{})
	require.NoError(t, err)
	post, err := r.Predict(at.J, false)
	require.NoError(t, err)

	var jsj mat.Dense
	jsj.Product(at.J, sol.Covariance, at.J.T())
	for i := range test {
		assert.InDelta(t, lin.Tangent.Data()[i], post.Mean[i], 1e-6, "mean at x=%g", test[i])
		assert.InDelta(t, jsj.At(i, i), post.Variance[i], 1e-6, "variance at x=%g", test[i])
	}
}

func TestLinearKernelVariance(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	g := Linear{Variance: 0.5}.Gram(a, a)
	assert.InDelta(t, 2.5, g.At(0, 0), 1e-12)
	assert.InDelta(t, 5.5, g.At(0, 1), 1e-12)
	assert.InDelta(t, 12.5, g.At(1, 1), 1e-12)
}
