// Package sweep runs one adaptation episode per regularisation level and
// picks the level that generalises best.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/adapt"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/logging"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/nn"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/parallel"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// ErrNoSigmas is returned when the sweep grid is empty.
var ErrNoSigmas = errors.New("sweep: no sigma values")

// Config configures Run. Base.Sigma2 and Base.Noise are ignored.
type Config struct {
	Sigmas   []float64
	Base     adapt.Config
	Parallel parallel.Config
}

// Data holds the adaptation and evaluation trajectories.
type Data struct {
	AdaptU, AdaptY *tensor.Dense
	EvalU, EvalY   *tensor.Dense
}

// Point is the outcome for one sigma.
type Point struct {
	Sigma   float64
	Episode *adapt.Episode
	Report  *adapt.Report
	Err     error
}

// Score is the evaluation MSE of the linearized model summed over
// channels, +Inf for failed points.
func (p Point) Score() float64 {
	if p.Err != nil || p.Report == nil {
		return math.Inf(1)
	}
	var s float64
	for _, v := range p.Report.Linearized.MSE {
		s += v
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}

// Run adapts m once per sigma. Points are returned in the order of
// cfg.Sigmas; a failing sigma is reported in its Point and does not stop
// the others. m is only read. The logger is taken from ctx.
func Run(ctx context.Context, cfg Config, m nn.Model, data Data) ([]Point, error) {
	if len(cfg.Sigmas) == 0 {
		return nil, ErrNoSigmas
	}
	for _, s := range cfg.Sigmas {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("sweep: invalid sigma %g", s)
		}
	}
	log := logging.FromContext(ctx).WithName("sweep")

	points, _ := parallel.Map(cfg.Sigmas, func(sigma float64) (Point, error) {
		acfg := cfg.Base
		acfg.Sigma2 = sigma * sigma
		acfg.Noise = nil
		a := adapt.New(acfg, log.WithValues("sigma", sigma))

		p := Point{Sigma: sigma}
		p.Episode, p.Err = a.Adapt(ctx, m, data.AdaptU, data.AdaptY)
		if p.Err == nil {
			p.Report, p.Err = a.Evaluate(ctx, p.Episode, data.EvalU, data.EvalY)
		}
		if p.Err != nil {
			log.Error(p.Err, "Sweep point failed", "sigma", sigma)
		}
		return p, nil
	}, cfg.Parallel)

	if err := ctx.Err(); err != nil {
		return points, err
	}
	return points, nil
}

// Best returns the point with the lowest Score. ok is false when every
// point failed.
func Best(points []Point) (best Point, ok bool) {
	score := math.Inf(1)
	for _, p := range points {
		if s := p.Score(); s < score {
			best, score, ok = p, s, true
		}
	}
	return best, ok
}
