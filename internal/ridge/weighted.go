package ridge

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
)

// Noise holds the observation noise standard deviation of each output
// channel. Targets are laid out [time, channel] row-major, so row i of the
// Jacobian belongs to channel i mod len(Noise).
type Noise []float64

// Validate checks that every σ_c is finite and positive.
func (n Noise) Validate() error {
	if len(n) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidNoise)
	}
	for c, s := range n {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return fmt.Errorf("%w: channel %d has sigma=%v", ErrInvalidNoise, c, s)
		}
	}
	return nil
}

// SolveWeighted solves the ridge problem with per-channel noise levels.
// Rows are whitened by 1/σ_c, which reduces the problem to σ² = 1:
//
//	θ = (JᵀΣ⁻¹J + I)⁻¹ JᵀΣ⁻¹y
//
// With a single channel this equals Solve(J, y, σ², opts).
func SolveWeighted(J *mat.Dense, y []float64, noise Noise, opts Options) (*Result, error) {
	if err := noise.Validate(); err != nil {
		return nil, err
	}
	n, p := J.Dims()
	if n%len(noise) != 0 {
		return nil, errs.Shape("jacobian rows per noise channel", fmt.Sprintf("multiple of %d", len(noise)), n)
	}
	if len(y) != n {
		return nil, errs.Shape("ridge targets", n, len(y))
	}

	jw := mat.NewDense(n, p, nil)
	yw := make([]float64, n)
	for i := 0; i < n; i++ {
		inv := 1 / noise[i%len(noise)]
		dst := jw.RawRowView(i)
		for j, v := range J.RawRowView(i) {
			dst[j] = v * inv
		}
		yw[i] = y[i] * inv
	}
	return Solve(jw, yw, 1, opts)
}
