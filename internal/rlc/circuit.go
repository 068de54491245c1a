// Package rlc generates synthetic data from a series RLC circuit, the
// benchmark system for the adaptation experiments.
//
// States are the capacitor voltage V_C and the inductor current I_L; the
// input is the supply voltage V_IN:
//
//	dV_C/dt = I_L / C
//	dI_L/dt = (V_IN − V_C − R·I_L) / L
package rlc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Circuit holds the component values in SI units.
type Circuit struct {
	R float64 // resistance [Ω]
	L float64 // inductance [H]
	C float64 // capacitance [F]
}

// DefaultCircuit is the nominal circuit.
var DefaultCircuit = Circuit{R: 3, L: 50e-6, C: 270e-9}

// Validate checks that every component value is positive.
func (c Circuit) Validate() error {
	if c.R <= 0 || c.L <= 0 || c.C <= 0 {
		return fmt.Errorf("rlc: component values must be positive, got R=%g L=%g C=%g", c.R, c.L, c.C)
	}
	return nil
}

// String implements fmt.Stringer.
func (c Circuit) String() string {
	return fmt.Sprintf("R:%g_L:%g_C:%g", c.R, c.L, c.C)
}

// Continuous returns the state matrices A (2×2) and B (2) of the
// continuous-time model.
func (c Circuit) Continuous() (*mat.Dense, *mat.VecDense) {
	a := mat.NewDense(2, 2, []float64{
		0, 1 / c.C,
		-1 / c.L, -c.R / c.L,
	})
	b := mat.NewVecDense(2, []float64{0, 1 / c.L})
	return a, b
}

// Discretize returns the zero-order-hold discretization (Ad, Bd) for the
// sample time ts, from the exponential of the augmented matrix
// [[A, B], [0, 0]]·ts.
func (c Circuit) Discretize(ts float64) (*mat.Dense, *mat.VecDense) {
	a, b := c.Continuous()
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			m.Set(i, j, a.At(i, j)*ts)
		}
		m.Set(i, 2, b.AtVec(i)*ts)
	}
	var e mat.Dense
	e.Exp(m)

	ad := mat.NewDense(2, 2, nil)
	ad.Copy(e.Slice(0, 2, 0, 2))
	bd := mat.NewVecDense(2, []float64{e.At(0, 2), e.At(1, 2)})
	return ad, bd
}

// NominalIIR returns the IIR coefficients of the sampled transfer function
// from V_IN to V_C:
//
//	G(q) = (b1 q⁻¹ + b2 q⁻²) / (1 + a1 q⁻¹ + a2 q⁻²)
//
// as b = [0, b1, b2] and a = [a1, a2], ready for nn.NewIIR.
func (c Circuit) NominalIIR(ts float64) (b, a []float64) {
	ad, bd := c.Discretize(ts)
	a1 := -(ad.At(0, 0) + ad.At(1, 1))
	a2 := mat.Det(ad)
	b1 := bd.AtVec(0)
	b2 := ad.At(0, 1)*bd.AtVec(1) - ad.At(1, 1)*bd.AtVec(0)
	return []float64{0, b1, b2}, []float64{a1, a2}
}
