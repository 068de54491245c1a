package rlc

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Config describes one synthetic trajectory.
type Config struct {
	Circuit  Circuit
	Steps    int     // number of samples
	Ts       float64 // sample time [s], default 1e-6
	Substeps int     // forward Euler steps per sample, default 10
	InputStd float64 // std of the input levels [V], default 80
	Hold     int     // samples each input level is held, default 20
	NoiseStd float64 // std of the V_C measurement noise [V]
	Seed     uint64
}

func (c *Config) setDefaults() {
	if c.Ts == 0 {
		c.Ts = 1e-6
	}
	if c.Substeps == 0 {
		c.Substeps = 10
	}
	if c.InputStd == 0 {
		c.InputStd = 80
	}
	if c.Hold == 0 {
		c.Hold = 20
	}
}

// Dataset is one simulated trajectory. U, X, Y and YTrue are time-major.
type Dataset struct {
	T     []float64     // sample times
	U     *tensor.Dense // [T, 1] V_IN
	X     *tensor.Dense // [T, 2] noise-free (V_C, I_L)
	Y     *tensor.Dense // [T, 1] measured V_C
	YTrue *tensor.Dense // [T, 1] noise-free V_C
}

// Generate simulates the circuit from rest under a piecewise-constant
// random input and adds Gaussian measurement noise. The same config always
// yields the same data.
func Generate(cfg Config) (*Dataset, error) {
	cfg.setDefaults()
	if err := cfg.Circuit.Validate(); err != nil {
		return nil, err
	}
	if cfg.Steps < 1 || cfg.Substeps < 1 || cfg.Hold < 1 || cfg.Ts <= 0 || cfg.NoiseStd < 0 {
		return nil, fmt.Errorf("rlc: invalid config: steps=%d substeps=%d hold=%d ts=%g noise=%g",
			cfg.Steps, cfg.Substeps, cfg.Hold, cfg.Ts, cfg.NoiseStd)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0x524c43)) //nolint:gosec // simulation noise
	input := distuv.Normal{Mu: 0, Sigma: cfg.InputStd, Src: rng}
	noise := distuv.Normal{Mu: 0, Sigma: cfg.NoiseStd, Src: rng}

	n := cfg.Steps
	ds := &Dataset{
		T:     make([]float64, n),
		U:     tensor.Zeros(tensor.Shape{n, 1}),
		X:     tensor.Zeros(tensor.Shape{n, 2}),
		Y:     tensor.Zeros(tensor.Shape{n, 1}),
		YTrue: tensor.Zeros(tensor.Shape{n, 1}),
	}

	c := cfg.Circuit
	h := cfg.Ts / float64(cfg.Substeps)
	var vc, il, vin float64
	for k := 0; k < n; k++ {
		if k%cfg.Hold == 0 {
			vin = input.Rand()
		}
		ds.T[k] = float64(k) * cfg.Ts
		ds.U.Data()[k] = vin
		ds.X.Data()[2*k] = vc
		ds.X.Data()[2*k+1] = il
		ds.YTrue.Data()[k] = vc
		ds.Y.Data()[k] = vc
		if cfg.NoiseStd > 0 {
			ds.Y.Data()[k] += noise.Rand()
		}

		for s := 0; s < cfg.Substeps; s++ {
			dvc := il / c.C
			dil := (vin - vc - c.R*il) / c.L
			vc += h * dvc
			il += h * dil
		}
	}
	return ds, nil
}

// Scale divides voltages by vScale and currents by iScale, the
// normalisation used when training neural models on circuit data.
func (d *Dataset) Scale(vScale, iScale float64) *Dataset {
	out := &Dataset{
		T:     append([]float64(nil), d.T...),
		U:     d.U.Clone(),
		X:     d.X.Clone(),
		Y:     d.Y.Clone(),
		YTrue: d.YTrue.Clone(),
	}
	for _, t := range []*tensor.Dense{out.U, out.Y, out.YTrue} {
		for i := range t.Data() {
			t.Data()[i] /= vScale
		}
	}
	x := out.X.Data()
	for k := 0; k < len(x); k += 2 {
		x[k] /= vScale
		x[k+1] /= iScale
	}
	return out
}
