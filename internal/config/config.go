// Package config loads the experiment configuration.
//
// Precedence: flags > env (LINSENSE_*) > YAML file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/jacobian"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/linearize"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/ridge"
)

// envPrefix prefixes environment overrides, e.g. LINSENSE_SIGMA.
const envPrefix = "LINSENSE"

// Model kinds.
const (
	KindGain       = "gain"
	KindIIR        = "iir"
	KindStateSpace = "statespace"
	KindLSTM       = "lstm"
)

// Config is the experiment configuration.
type Config struct {
	Seed        uint64  `yaml:"seed"`
	Sigma       float64 `yaml:"sigma"` // noise std; the ridge uses sigma²
	Strategy    string  `yaml:"strategy"`
	Method      string  `yaml:"method"`
	Offset      string  `yaml:"offset"`
	MemoryLimit int64   `yaml:"memory_limit"` // bytes, 0 = unlimited
	Skip        int     `yaml:"skip"`
	Covariance  bool    `yaml:"covariance"`
	Verbosity   int     `yaml:"verbosity"`
	Model       Model   `yaml:"model"`
	Data        Data    `yaml:"data"`
}

// Model selects and sizes the model.
type Model struct {
	Kind    string  `yaml:"kind"`
	Weights string  `yaml:"weights"` // optional SafeTensors file
	Hidden  int     `yaml:"hidden"`
	States  int     `yaml:"states"`
	ScaleDx float64 `yaml:"scale_dx"`
	InitStd float64 `yaml:"init_std"`
}

// Circuit holds RLC component values.
type Circuit struct {
	R float64 `yaml:"r"`
	L float64 `yaml:"l"`
	C float64 `yaml:"c"`
}

// Data describes the synthetic adaptation and evaluation trajectories.
type Data struct {
	Circuit    Circuit `yaml:"circuit"` // system that produced the data
	Nominal    Circuit `yaml:"nominal"` // system the model was built for
	AdaptSteps int     `yaml:"adapt_steps"`
	EvalSteps  int     `yaml:"eval_steps"`
	NoiseStd   float64 `yaml:"noise_std"`
	Ts         float64 `yaml:"ts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sigma:    0.1,
		Strategy: jacobian.Vectorized.String(),
		Method:   ridge.ClosedForm.String(),
		Offset:   linearize.Residual.String(),
		Model: Model{
			Kind:    KindIIR,
			Hidden:  50,
			States:  2,
			ScaleDx: 1,
			InitStd: 1e-4,
		},
		Data: Data{
			Circuit:    Circuit{R: 4, L: 50e-6, C: 270e-9},
			Nominal:    Circuit{R: 3, L: 50e-6, C: 270e-9},
			AdaptSteps: 100,
			EvalSteps:  2000,
			NoiseStd:   0.1,
			Ts:         1e-6,
		},
	}
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// flagBindings maps config keys (= env suffixes) to pflag names.
var flagBindings = map[string]string{
	"seed":         "seed",
	"sigma":        "sigma",
	"strategy":     "strategy",
	"method":       "method",
	"offset":       "offset",
	"memory_limit": "memory-limit",
	"verbosity":    "verbosity",
	"model":        "model",
	"weights":      "weights",
	"skip":         "skip",
}

// Load reads path (if non-empty), applies environment and flag overrides
// and validates the result. flagSet may be nil.
func Load(path string, flagSet *flag.FlagSet) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}

	if err := applyOverrides(cfg, flagSet); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyOverrides layers env and explicitly-set flags on top of cfg.
func applyOverrides(cfg *Config, flagSet *flag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if flagSet != nil {
		for key, name := range flagBindings {
			if f := flagSet.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
	}

	if v.IsSet("seed") {
		cfg.Seed = v.GetUint64("seed")
	}
	if v.IsSet("sigma") {
		cfg.Sigma = v.GetFloat64("sigma")
	}
	if v.IsSet("strategy") {
		cfg.Strategy = v.GetString("strategy")
	}
	if v.IsSet("method") {
		cfg.Method = v.GetString("method")
	}
	if v.IsSet("offset") {
		cfg.Offset = v.GetString("offset")
	}
	if v.IsSet("memory_limit") {
		cfg.MemoryLimit = v.GetInt64("memory_limit")
	}
	if v.IsSet("verbosity") {
		cfg.Verbosity = v.GetInt("verbosity")
	}
	if v.IsSet("model") {
		cfg.Model.Kind = v.GetString("model")
	}
	if v.IsSet("weights") {
		cfg.Model.Weights = v.GetString("weights")
	}
	if v.IsSet("skip") {
		cfg.Skip = v.GetInt("skip")
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if !finite(c.Sigma) || c.Sigma < 0 {
		errs = append(errs, fmt.Errorf("sigma must be finite and non-negative, got %g", c.Sigma))
	}
	if _, err := jacobian.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := ridge.ParseMethod(c.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := linearize.ParseOffset(c.Offset); err != nil {
		errs = append(errs, err)
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("memory_limit must be non-negative, got %d", c.MemoryLimit))
	}
	if c.Skip < 0 || c.Skip >= c.Data.EvalSteps {
		errs = append(errs, fmt.Errorf("skip must be in [0, eval_steps), got %d", c.Skip))
	}
	switch c.Model.Kind {
	case KindGain, KindIIR:
	case KindStateSpace, KindLSTM:
		if c.Model.Hidden < 1 {
			errs = append(errs, fmt.Errorf("model.hidden must be positive, got %d", c.Model.Hidden))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model kind %q", c.Model.Kind))
	}
	if c.Data.AdaptSteps < 1 || c.Data.EvalSteps < 1 {
		errs = append(errs, fmt.Errorf("data steps must be positive, got adapt=%d eval=%d", c.Data.AdaptSteps, c.Data.EvalSteps))
	}
	if !finite(c.Data.NoiseStd) || !finite(c.Data.Ts) || c.Data.NoiseStd < 0 || c.Data.Ts <= 0 {
		errs = append(errs, fmt.Errorf("data.noise_std must be >= 0 and data.ts > 0, got %g and %g", c.Data.NoiseStd, c.Data.Ts))
	}
	return errors.Join(errs...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Sigma2 returns the ridge regularisation σ².
func (c *Config) Sigma2() float64 {
	return c.Sigma * c.Sigma
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
