package linearize

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/jacobian"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/nn"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

func scalar(v float64) *tensor.Dense {
	t := tensor.Zeros(tensor.Shape{1})
	t.Data()[0] = v
	return t
}

// tanhGain is y_t = tanh(θ u_t), nonlinear in its single parameter.
func tanhGain(u *tensor.Dense) autodiff.Func {
	return func(tape *autodiff.Tape, p []*tensor.Dense) (*tensor.Dense, error) {
		return tape.Tanh(tape.MatVec(u, p[0])), nil
	}
}

func TestJVPFirstOrderConsistency(t *testing.T) {
	u, err := tensor.FromSlice([]float64{0.5, -1, 2, 0.3}, tensor.Shape{4, 1})
	require.NoError(t, err)
	fn := tanhGain(u)
	set, err := params.NewSet(params.New("theta", scalar(0.8)))
	require.NoError(t, err)

	base, err := autodiff.Evaluate(fn, set.Values())
	require.NoError(t, err)

	const v = 1.0
	remainder := func(eps float64) float64 {
		pred, err := Predict(fn, set, []*tensor.Dense{scalar(eps * v)}, Options{})
		require.NoError(t, err)
		moved, err := autodiff.Evaluate(fn, []*tensor.Dense{scalar(0.8 + eps*v)})
		require.NoError(t, err)
		var worst float64
		for i := range moved.Data() {
			fd := moved.Data()[i] - base.Data()[i]
			worst = math.Max(worst, math.Abs(fd-pred.Tangent.Data()[i]))
		}
		return worst
	}

	prev := remainder(1e-2)
	for _, eps := range []float64{5e-3, 2.5e-3, 1.25e-3} {
		cur := remainder(eps)
		assert.InDelta(t, 4.0, prev/cur, 0.5, "eps=%g", eps)
		prev = cur
	}
}

func TestPredictMatchesJacobianProduct(t *testing.T) {
	m, err := nn.NewStateSpace(nn.StateSpaceConfig{States: 2, Inputs: 1, Hidden: 4, InitStd: 0.4},
		rand.New(rand.NewPCG(2, 9)))
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(3, 3))
	data := make([]float64, 10)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	u, err := tensor.FromSlice(data, tensor.Shape{10, 1})
	require.NoError(t, err)

	res, err := jacobian.Extract(nn.Bind(m, u), m.Parameters(), jacobian.Options{})
	require.NoError(t, err)

	theta := make([]float64, m.Parameters().Size())
	for i := range theta {
		theta[i] = rng.NormFloat64() * 0.1
	}
	pred, err := PredictFlat(nn.Bind(m, u), m.Parameters(), theta, res.Layout, Options{})
	require.NoError(t, err)

	var jd mat.VecDense
	jd.MulVec(res.J, mat.NewVecDense(len(theta), theta))
	assert.InDeltaSlice(t, jd.RawVector().Data, pred.Tangent.Data(), 1e-10)
	assert.InDeltaSlice(t, res.Output.Data(), pred.Sim.Data(), 1e-14)
	for i := range pred.Lin.Data() {
		assert.InDelta(t, pred.Sim.Data()[i]+pred.Tangent.Data()[i], pred.Lin.Data()[i], 1e-14)
	}
	assert.Equal(t, tensor.Shape{10, 1}, pred.Lin.Shape())
}

func TestZeroDirectionReproducesSimulation(t *testing.T) {
	m := nn.NewGain(2)
	u, err := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3, 1})
	require.NoError(t, err)

	pred, err := Predict(nn.Bind(m, u), m.Parameters(), []*tensor.Dense{scalar(0)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, pred.Lin.Data())
	assert.Equal(t, []float64{0, 0, 0}, pred.Tangent.Data())
}

func TestSensitivityOnly(t *testing.T) {
	m := nn.NewGain(2)
	u, err := tensor.FromSlice([]float64{4}, tensor.Shape{1, 1})
	require.NoError(t, err)

	pred, err := Predict(nn.Bind(m, u), m.Parameters(), []*tensor.Dense{scalar(2.03)}, Options{Offset: SensitivityOnly})
	require.NoError(t, err)
	assert.InDelta(t, 8.12, pred.Lin.Data()[0], 1e-12)
	assert.InDelta(t, 8.0, pred.Sim.Data()[0], 1e-12)
}

func TestDeltaShapeMismatch(t *testing.T) {
	m, err := nn.NewIIR([]float64{1, 0.5}, []float64{0.2})
	require.NoError(t, err)
	u := tensor.Zeros(tensor.Shape{3, 1})

	_, err = Predict(nn.Bind(m, u), m.Parameters(), []*tensor.Dense{tensor.Zeros(tensor.Shape{2})}, Options{})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)

	_, err = Predict(nn.Bind(m, u), m.Parameters(),
		[]*tensor.Dense{tensor.Zeros(tensor.Shape{3}), tensor.Zeros(tensor.Shape{1})}, Options{})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)

	other := nn.NewGain(1)
	_, err = PredictFlat(nn.Bind(m, u), m.Parameters(), []float64{0}, other.Parameters().Layout(), Options{})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestParseOffset(t *testing.T) {
	o, err := ParseOffset("raw")
	require.NoError(t, err)
	assert.Equal(t, SensitivityOnly, o)
	o, err = ParseOffset("")
	require.NoError(t, err)
	assert.Equal(t, Residual, o)
	_, err = ParseOffset("bias")
	assert.Error(t, err)
	assert.Equal(t, "sensitivity_only", SensitivityOnly.String())
}
