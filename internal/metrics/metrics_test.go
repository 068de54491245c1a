package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

func seq(t *testing.T, cols int, vs ...float64) *tensor.Dense {
	t.Helper()
	d, err := tensor.FromSlice(vs, tensor.Shape{len(vs) / cols, cols})
	require.NoError(t, err)
	return d
}

func TestRSquaredBoundaries(t *testing.T) {
	y := seq(t, 2,
		1, 10,
		2, 20,
		4, 15,
		5, 35,
	)

	perfect, err := RSquared(y, y.Clone())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, perfect)

	// Predicting the channel mean explains nothing.
	naive := seq(t, 2,
		3, 20,
		3, 20,
		3, 20,
		3, 20,
	)
	zero, err := RSquared(y, naive)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, zero, 1e-12)

	fit, err := FitIndex(y, naive)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, fit, 1e-12)
}

func TestMSEAndRMSE(t *testing.T) {
	y := seq(t, 1, 1, 2, 3, 4)
	yhat := seq(t, 1, 1, 2, 3, 6)

	mse, err := MSE(y, yhat)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, mse)

	rmse, err := RMSE(y, yhat)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, rmse)

	r2, err := RSquared(y, yhat)
	require.NoError(t, err)
	assert.InDelta(t, 1-4.0/5.0, r2[0], 1e-12)
}

func TestConstantTarget(t *testing.T) {
	y := seq(t, 1, 2, 2, 2)

	r2, err := RSquared(y, y.Clone())
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, r2)

	r2, err = RSquared(y, seq(t, 1, 2, 2, 3))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r2[0]))

	fit, err := FitIndex(y, seq(t, 1, 2, 2, 3))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fit[0]))
}

func TestConstantTargetInexactMean(t *testing.T) {
	for _, level := range []float64{0.1, 0.7, 1.0 / 3} {
		y := seq(t, 1, level, level, level)
		yhat := seq(t, 1, level+0.2, level+0.2, level+0.2)

		r, err := Evaluate(y, yhat, Options{})
		require.NoError(t, err)
		assert.True(t, math.IsNaN(r.R2[0]), "level=%g R2=%g", level, r.R2[0])
		assert.True(t, math.IsNaN(r.FitIndex[0]), "level=%g fit=%g", level, r.FitIndex[0])
		assert.InDelta(t, 0.04, r.MSE[0], 1e-12)

		r, err = Evaluate(y, y.Clone(), Options{})
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, r.R2, "level=%g", level)
		assert.Equal(t, []float64{100}, r.FitIndex, "level=%g", level)
	}
}

func TestSkipTransient(t *testing.T) {
	y := seq(t, 1, 0, 1, 2, 3)
	yhat := seq(t, 1, 100, 1, 2, 3)

	r, err := Evaluate(y, yhat, Options{Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, r.R2)
	assert.Equal(t, []float64{0}, r.MSE)

	_, err = Evaluate(y, yhat, Options{Skip: 4})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestVectorAgainstColumn(t *testing.T) {
	flat, err := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	r2, err := RSquared(flat, seq(t, 1, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, r2)
}

func TestShapeMismatch(t *testing.T) {
	_, err := RSquared(seq(t, 1, 1, 2, 3), seq(t, 1, 1, 2))
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
	_, err = MSE(seq(t, 2, 1, 2, 3, 4), seq(t, 1, 1, 2, 3, 4))
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}
