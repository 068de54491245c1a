package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "vectorized", cfg.Strategy)
	assert.Equal(t, "closed_form", cfg.Method)
	assert.InDelta(t, 0.01, cfg.Sigma2(), 1e-15)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
seed: 42
sigma: 0.5
strategy: looped
model:
  kind: statespace
  hidden: 16
data:
  adapt_steps: 50
`))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 0.5, cfg.Sigma)
	assert.Equal(t, "looped", cfg.Strategy)
	assert.Equal(t, KindStateSpace, cfg.Model.Kind)
	assert.Equal(t, 16, cfg.Model.Hidden)
	assert.Equal(t, 50, cfg.Data.AdaptSteps)
	// untouched keys keep their defaults
	assert.Equal(t, 2000, cfg.Data.EvalSteps)
	assert.Equal(t, 1e-4, cfg.Model.InitStd)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("sigmaa: 1\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative sigma", func(c *Config) { c.Sigma = -1 }},
		{"nan sigma", func(c *Config) { c.Sigma = math.NaN() }},
		{"inf sigma", func(c *Config) { c.Sigma = math.Inf(1) }},
		{"nan noise", func(c *Config) { c.Data.NoiseStd = math.NaN() }},
		{"strategy", func(c *Config) { c.Strategy = "diagonal" }},
		{"method", func(c *Config) { c.Method = "newton" }},
		{"offset", func(c *Config) { c.Offset = "bias" }},
		{"memory", func(c *Config) { c.MemoryLimit = -5 }},
		{"skip", func(c *Config) { c.Skip = c.Data.EvalSteps }},
		{"kind", func(c *Config) { c.Model.Kind = "gru" }},
		{"hidden", func(c *Config) { c.Model.Kind = KindLSTM; c.Model.Hidden = 0 }},
		{"steps", func(c *Config) { c.Data.AdaptSteps = 0 }},
		{"ts", func(c *Config) { c.Data.Ts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sigma: 0.3\nseed: 1\nmethod: lbfgs\n"), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Sigma)
	assert.Equal(t, "lbfgs", cfg.Method)

	t.Setenv("LINSENSE_SIGMA", "0.4")
	t.Setenv("LINSENSE_SEED", "9")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Sigma)
	assert.Equal(t, uint64(9), cfg.Seed)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Float64("sigma", 0, "")
	fs.Uint64("seed", 0, "")
	require.NoError(t, fs.Parse([]string{"--sigma=0.2"}))
	cfg, err = Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Sigma)
	assert.Equal(t, uint64(9), cfg.Seed, "unset flags do not override env")
}

func TestLoadRejectsNonFiniteSigma(t *testing.T) {
	for _, v := range []string{"NaN", "+Inf", "-Inf"} {
		t.Setenv("LINSENSE_SIGMA", v)
		_, err := Load("", nil)
		assert.ErrorContains(t, err, "sigma", v)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sigma: -2\n"), 0o600))
	_, err = Load(path, nil)
	assert.ErrorContains(t, err, "validation")
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = 3
	cfg.Model.Kind = KindLSTM
	data, err := cfg.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
