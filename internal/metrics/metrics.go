// Package metrics scores predictions per output channel.
//
// Sequences are [T, C] tensors (a 1-D tensor is one channel). Every metric
// returns one value per channel.
//
// When a channel of y is constant (SS_tot = 0) the coefficient of
// determination is undefined. R² is then reported as 1 if the prediction is
// exact (SS_res = 0) and NaN otherwise; the fit index follows the same rule
// with 100 in place of 1.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Options configures Evaluate.
type Options struct {
	// Skip ignores the first Skip time steps (initial transient).
	Skip int
}

// Report holds every metric, one entry per channel.
type Report struct {
	R2       []float64
	MSE      []float64
	RMSE     []float64
	FitIndex []float64
}

// RSquared returns 1 − SS_res/SS_tot per channel.
func RSquared(y, yhat *tensor.Dense) ([]float64, error) {
	r, err := Evaluate(y, yhat, Options{})
	if err != nil {
		return nil, err
	}
	return r.R2, nil
}

// MSE returns the mean squared error per channel.
func MSE(y, yhat *tensor.Dense) ([]float64, error) {
	r, err := Evaluate(y, yhat, Options{})
	if err != nil {
		return nil, err
	}
	return r.MSE, nil
}

// RMSE returns the root mean squared error per channel.
func RMSE(y, yhat *tensor.Dense) ([]float64, error) {
	r, err := Evaluate(y, yhat, Options{})
	if err != nil {
		return nil, err
	}
	return r.RMSE, nil
}

// FitIndex returns 100·(1 − ‖y − ŷ‖/‖y − ȳ‖) per channel.
func FitIndex(y, yhat *tensor.Dense) ([]float64, error) {
	r, err := Evaluate(y, yhat, Options{})
	if err != nil {
		return nil, err
	}
	return r.FitIndex, nil
}

// Evaluate computes every metric after dropping the first opts.Skip steps.
func Evaluate(y, yhat *tensor.Dense, opts Options) (*Report, error) {
	if len(y.Shape()) > 2 || len(yhat.Shape()) > 2 || y.Rows() != yhat.Rows() || y.Cols() != yhat.Cols() {
		return nil, errs.Shape("prediction", y.Shape(), yhat.Shape())
	}
	steps, chans := y.Rows(), y.Cols()
	if opts.Skip < 0 || opts.Skip >= steps {
		return nil, errs.Shape("scored steps after skip", "> 0", steps-opts.Skip)
	}

	r := &Report{
		R2:       make([]float64, chans),
		MSE:      make([]float64, chans),
		RMSE:     make([]float64, chans),
		FitIndex: make([]float64, chans),
	}
	n := steps - opts.Skip
	obs := make([]float64, n)
	res := make([]float64, n)
	for c := 0; c < chans; c++ {
		for t := 0; t < n; t++ {
			k := (opts.Skip+t)*chans + c
			obs[t] = y.Data()[k]
			res[t] = y.Data()[k] - yhat.Data()[k]
		}
		mean := stat.Mean(obs, nil)
		ssRes := floats.Dot(res, res)
		// A constant channel has SS_tot = 0 exactly; the rounded mean
		// would otherwise leave a tiny positive residue.
		var ssTot float64
		if floats.Max(obs) != floats.Min(obs) {
			for _, v := range obs {
				ssTot += (v - mean) * (v - mean)
			}
		}

		r.MSE[c] = ssRes / float64(n)
		r.RMSE[c] = math.Sqrt(r.MSE[c])
		switch {
		case ssTot > 0:
			r.R2[c] = 1 - ssRes/ssTot
			r.FitIndex[c] = 100 * (1 - math.Sqrt(ssRes)/math.Sqrt(ssTot))
		case ssRes == 0:
			r.R2[c] = 1
			r.FitIndex[c] = 100
		default:
			r.R2[c] = math.NaN()
			r.FitIndex[c] = math.NaN()
		}
	}
	return r, nil
}
