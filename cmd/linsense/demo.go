package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/go-logr/logr"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/adapt"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/config"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/jacobian"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/linearize"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/logging"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/metrics"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/nn"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/parallel"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/ridge"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/rlc"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/sweep"
)

// Normalisation applied to circuit data for the neural models.
const (
	voltageScale = 80.0
	currentScale = 5.0
)

// experiment is everything a run needs, built from the configuration.
type experiment struct {
	log       logr.Logger
	model     nn.Model
	adaptData *rlc.Dataset
	evalData  *rlc.Dataset
	adapter   adapt.Config
}

// prepare generates a short adaptation trajectory and a longer evaluation
// trajectory of the perturbed circuit, and builds the model for the
// nominal circuit.
func prepare(cfg *config.Config) (*experiment, error) {
	log, err := logging.New(logging.Config{Verbosity: cfg.Verbosity})
	if err != nil {
		return nil, err
	}

	circuit := rlc.Circuit(cfg.Data.Circuit)
	adaptData, err := rlc.Generate(rlc.Config{
		Circuit: circuit, Steps: cfg.Data.AdaptSteps, Ts: cfg.Data.Ts,
		NoiseStd: cfg.Data.NoiseStd, Seed: cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("generate adaptation data: %w", err)
	}
	evalData, err := rlc.Generate(rlc.Config{
		Circuit: circuit, Steps: cfg.Data.EvalSteps, Ts: cfg.Data.Ts,
		NoiseStd: cfg.Data.NoiseStd, Seed: cfg.Seed + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate evaluation data: %w", err)
	}

	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Model.Kind == config.KindStateSpace || cfg.Model.Kind == config.KindLSTM {
		adaptData = adaptData.Scale(voltageScale, currentScale)
		evalData = evalData.Scale(voltageScale, currentScale)
	}

	acfg, err := adapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Prepared experiment", "model", model.Name(), "params", model.Parameters().Size(),
		"circuit", circuit.String(), "nominal", rlc.Circuit(cfg.Data.Nominal).String())
	return &experiment{log: log, model: model, adaptData: adaptData, evalData: evalData, adapter: acfg}, nil
}

// runDemo adapts the model to the perturbed circuit and scores nominal and
// adapted predictions on the evaluation trajectory.
func runDemo(ctx context.Context, cfg *config.Config, out io.Writer) error {
	exp, err := prepare(cfg)
	if err != nil {
		return err
	}
	ctx = logging.IntoContext(ctx, exp.log)

	adapter := adapt.New(exp.adapter, exp.log)
	ep, err := adapter.Adapt(ctx, exp.model, exp.adaptData.U, exp.adaptData.Y)
	if err != nil {
		return err
	}
	report, err := adapter.Evaluate(ctx, ep, exp.evalData.U, exp.evalData.Y)
	if err != nil {
		return err
	}
	return printReport(out, ep, report)
}

// runSweep repeats the adaptation for every sigma and marks the one with
// the lowest evaluation MSE.
func runSweep(ctx context.Context, cfg *config.Config, sigmas []float64, out io.Writer) error {
	exp, err := prepare(cfg)
	if err != nil {
		return err
	}
	ctx = logging.IntoContext(ctx, exp.log)
	points, err := sweep.Run(ctx, sweep.Config{
		Sigmas:   sigmas,
		Base:     exp.adapter,
		Parallel: parallel.DefaultConfig(),
	}, exp.model, sweep.Data{
		AdaptU: exp.adaptData.U, AdaptY: exp.adaptData.Y,
		EvalU: exp.evalData.U, EvalY: exp.evalData.Y,
	})
	if err != nil {
		return err
	}
	best, ok := sweep.Best(points)
	if !ok {
		return errors.New("every sweep point failed")
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "sigma\tR2\tMSE\t")
	for _, p := range points {
		if p.Err != nil {
			fmt.Fprintf(w, "%g\t-\t-\t%v\n", p.Sigma, p.Err)
			continue
		}
		mark := ""
		if p.Sigma == best.Sigma {
			mark = "best"
		}
		fmt.Fprintf(w, "%g\t%.4f\t%.4g\t%s\n", p.Sigma, p.Report.Linearized.R2[0], p.Report.Linearized.MSE[0], mark)
	}
	return w.Flush()
}

// buildModel constructs the configured architecture. The gain and IIR
// models start from the nominal circuit; neural models use seeded random
// initialization unless weights are given.
func buildModel(cfg *config.Config) (nn.Model, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x6d6f64656c)) //nolint:gosec // weight initialization

	var (
		model nn.Model
		err   error
	)
	switch cfg.Model.Kind {
	case config.KindGain:
		model = nn.NewGain(1)
	case config.KindIIR:
		b, a := rlc.Circuit(cfg.Data.Nominal).NominalIIR(cfg.Data.Ts)
		model, err = nn.NewIIR(b, a)
	case config.KindStateSpace:
		model, err = nn.NewStateSpace(nn.StateSpaceConfig{
			States:  cfg.Model.States,
			Inputs:  1,
			Hidden:  cfg.Model.Hidden,
			ScaleDx: cfg.Model.ScaleDx,
			InitStd: cfg.Model.InitStd,
		}, rng)
	case config.KindLSTM:
		model, err = nn.NewLSTM(nn.LSTMConfig{Inputs: 1, Hidden: cfg.Model.Hidden, Outputs: 1}, rng)
	default:
		return nil, fmt.Errorf("unknown model kind %q", cfg.Model.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s model: %w", cfg.Model.Kind, err)
	}

	if cfg.Model.Weights != "" {
		f, err := os.Open(cfg.Model.Weights)
		if err != nil {
			return nil, fmt.Errorf("open weights: %w", err)
		}
		defer f.Close()
		if err := nn.LoadWeights(f, model); err != nil {
			return nil, fmt.Errorf("load weights %s: %w", cfg.Model.Weights, err)
		}
	}
	return model, nil
}

func adapterConfig(cfg *config.Config) (adapt.Config, error) {
	strategy, err := jacobian.ParseStrategy(cfg.Strategy)
	if err != nil {
		return adapt.Config{}, err
	}
	method, err := ridge.ParseMethod(cfg.Method)
	if err != nil {
		return adapt.Config{}, err
	}
	offset, err := linearize.ParseOffset(cfg.Offset)
	if err != nil {
		return adapt.Config{}, err
	}
	return adapt.Config{
		Sigma2:      cfg.Sigma2(),
		Strategy:    strategy,
		MemoryLimit: cfg.MemoryLimit,
		Solver:      ridge.Options{Method: method, Covariance: cfg.Covariance},
		Offset:      offset,
		Skip:        cfg.Skip,
	}, nil
}

func printReport(out io.Writer, ep *adapt.Episode, r *adapt.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "episode\t%s\n", ep.ID)
	fmt.Fprintf(w, "model\t%s (%d params)\n", ep.Model.Name(), ep.Layout.Size())
	fmt.Fprintf(w, "solver\t%s\n", ep.Solution.Method)
	fmt.Fprintf(w, "offset\t%s\n\n", ep.Offset)
	fmt.Fprintln(w, "\tR2\tMSE\tRMSE\tFIT%")
	row := func(name string, m *metrics.Report) {
		fmt.Fprintf(w, "%s\t%.4f\t%.4g\t%.4g\t%.2f\n", name, m.R2[0], m.MSE[0], m.RMSE[0], m.FitIndex[0])
	}
	row("adaptation fit", ep.Fit)
	row("nominal", r.Nominal)
	row("linearized", r.Linearized)
	return w.Flush()
}
