// Package adapt runs few-shot adaptation of a pretrained model in
// parameter space:
//
//	Extract J at θ₀ -> Solve ridge for δ -> Predict y_sim + Jδ -> Score
//
// The model's parameters are never modified. An Episode captures the
// expansion point θ₀ and the solution δ, so it can be evaluated on any
// number of new input sequences.
package adapt

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/jacobian"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/linearize"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/logging"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/metrics"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/nn"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/ridge"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Config configures an Adapter.
type Config struct {
	// Sigma2 is the ridge regularisation σ² (observation noise variance).
	Sigma2 float64

	// Noise, when set, gives a noise std per output channel and replaces
	// Sigma2.
	Noise ridge.Noise

	Strategy    jacobian.Strategy
	MemoryLimit int64 // bytes, 0 = unlimited
	Solver      ridge.Options
	Offset      linearize.Offset

	// Skip drops the initial transient when scoring evaluations.
	Skip int
}

// Adapter runs adaptation episodes. It holds no per-episode state and is
// safe to reuse.
type Adapter struct {
	cfg Config
	log logr.Logger
}

// New creates an Adapter.
func New(cfg Config, log logr.Logger) *Adapter {
	return &Adapter{cfg: cfg, log: log.WithName("adapt")}
}

// Episode is the result of adapting a model to one data set.
type Episode struct {
	ID       string
	Model    nn.Model
	Offset   linearize.Offset
	Theta0   []float64     // expansion point
	Layout   params.Layout // ordering of Theta0, Jacobian columns and Delta
	Sim      *tensor.Dense // nominal output on the adaptation data
	Jacobian *mat.Dense
	Solution *ridge.Result
	Delta    []*tensor.Dense // θ_lin per parameter
	Fit      *metrics.Report // linearized model on the adaptation data
}

// Report scores an episode on new data.
type Report struct {
	EpisodeID  string
	Prediction *linearize.Prediction
	Nominal    *metrics.Report // y_sim against y
	Linearized *metrics.Report // y_lin against y
}

// Adapt linearizes m around its current parameters and fits the parameter
// offset to (u, y).
func (a *Adapter) Adapt(ctx context.Context, m nn.Model, u, y *tensor.Dense) (*Episode, error) {
	id := uuid.New().String()
	log := a.log.WithValues("episode", id, "model", m.Name())

	if err := checkData(m, u, y); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	theta0, layout := params.Flatten(m.Parameters())
	snapshot, err := params.Restore(theta0, layout)
	if err != nil {
		return nil, err
	}
	fn := nn.Bind(m, u)

	start := time.Now()
	jac, err := jacobian.Extract(fn, snapshot, jacobian.Options{Strategy: a.cfg.Strategy, MemoryLimit: a.cfg.MemoryLimit})
	if err != nil {
		return nil, fmt.Errorf("extract jacobian: %w", err)
	}
	n, p := jac.J.Dims()
	log.V(logging.DEBUG).Info("Extracted jacobian", "rows", n, "params", p,
		"strategy", a.cfg.Strategy.String(), "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	targets := append([]float64(nil), y.Data()...)
	if a.cfg.Offset == linearize.Residual {
		for i, s := range jac.Output.Data() {
			targets[i] -= s
		}
	}

	start = time.Now()
	sol, err := a.solve(jac.J, targets)
	if err != nil {
		return nil, fmt.Errorf("solve ridge: %w", err)
	}
	log.V(logging.DEBUG).Info("Solved ridge", "method", a.cfg.Solver.Method.String(), "dual", sol.Dual,
		"iterations", sol.Iterations, "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	delta, err := params.Unflatten(sol.Theta, layout)
	if err != nil {
		return nil, err
	}
	fit, err := a.fit(jac, sol.Theta, y)
	if err != nil {
		return nil, err
	}
	log.Info("Adapted", "params", p, "samples", n, "r2", fit.R2)

	return &Episode{
		ID:       id,
		Model:    m,
		Offset:   a.cfg.Offset,
		Theta0:   theta0,
		Layout:   layout,
		Sim:      jac.Output,
		Jacobian: jac.J,
		Solution: sol,
		Delta:    delta,
		Fit:      fit,
	}, nil
}

func (a *Adapter) solve(J *mat.Dense, targets []float64) (*ridge.Result, error) {
	if len(a.cfg.Noise) > 0 {
		return ridge.SolveWeighted(J, targets, a.cfg.Noise, a.cfg.Solver)
	}
	return ridge.Solve(J, targets, a.cfg.Sigma2, a.cfg.Solver)
}

// fit scores the linear model on the data it was fitted to.
func (a *Adapter) fit(jac *jacobian.Result, theta []float64, y *tensor.Dense) (*metrics.Report, error) {
	n, _ := jac.J.Dims()
	lin := tensor.Zeros(y.Shape())
	v := mat.NewVecDense(n, lin.Data())
	v.MulVec(jac.J, mat.NewVecDense(len(theta), theta))
	if a.cfg.Offset == linearize.Residual {
		for i, s := range jac.Output.Data() {
			lin.Data()[i] += s
		}
	}
	return metrics.Evaluate(y, lin, metrics.Options{})
}

// Evaluate predicts y on new inputs with the adapted linear model and
// scores both the nominal and linearized predictions.
func (a *Adapter) Evaluate(ctx context.Context, ep *Episode, u, y *tensor.Dense) (*Report, error) {
	log := a.log.WithValues("episode", ep.ID, "model", ep.Model.Name())
	if err := checkData(ep.Model, u, y); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot, err := params.Restore(ep.Theta0, ep.Layout)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	pred, err := linearize.Predict(nn.Bind(ep.Model, u), snapshot, ep.Delta, linearize.Options{Offset: ep.Offset})
	if err != nil {
		return nil, fmt.Errorf("linearized prediction: %w", err)
	}
	log.V(logging.DEBUG).Info("Predicted", "steps", u.Rows(), "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := metrics.Options{Skip: a.cfg.Skip}
	nominal, err := metrics.Evaluate(y, pred.Sim, opts)
	if err != nil {
		return nil, fmt.Errorf("score nominal: %w", err)
	}
	linearized, err := metrics.Evaluate(y, pred.Lin, opts)
	if err != nil {
		return nil, fmt.Errorf("score linearized: %w", err)
	}
	log.Info("Evaluated", "steps", u.Rows(), "r2Nominal", nominal.R2, "r2Linearized", linearized.R2)

	return &Report{EpisodeID: ep.ID, Prediction: pred, Nominal: nominal, Linearized: linearized}, nil
}

// checkData verifies that u and y are [T, in] and [T, out] for m.
func checkData(m nn.Model, u, y *tensor.Dense) error {
	us, ys := u.Shape(), y.Shape()
	if len(us) != 2 || us[1] != m.InputSize() {
		return errs.Shape("input", []int{-1, m.InputSize()}, us)
	}
	if len(ys) != 2 || ys[0] != us[0] || ys[1] != m.OutputSize() {
		return errs.Shape("targets", []int{us[0], m.OutputSize()}, ys)
	}
	return nil
}
