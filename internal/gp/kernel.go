// Package gp implements exact Gaussian-process regression.
//
// Its main use is the kernel view of linearized adaptation: with the
// neural tangent kernel k(x, x') = J(x) J(x')ᵀ, zero mean and noise σ², the
// GP posterior mean equals the prediction of the ridge-adapted linearized
// model, and the posterior variance equals J Σ Jᵀ for the ridge posterior
// covariance Σ.
//
// Points are the rows of a *mat.Dense.
package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kernel computes covariance matrices between two sets of points.
type Kernel interface {
	// Gram returns the len(x1) × len(x2) matrix k(x1_i, x2_j).
	Gram(x1, x2 mat.Matrix) *mat.Dense
}

// RBF is the squared-exponential kernel scaled by an output variance:
//
//	k(x, x') = s · exp(−‖x − x'‖² / 2ℓ²)
type RBF struct {
	Lengthscale float64 // ℓ
	Outputscale float64 // s
}

// Gram implements Kernel.
func (k RBF) Gram(x1, x2 mat.Matrix) *mat.Dense {
	n1, d := x1.Dims()
	n2, _ := x2.Dims()
	out := mat.NewDense(n1, n2, nil)
	inv := 1 / (2 * k.Lengthscale * k.Lengthscale)
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			var sq float64
			for c := 0; c < d; c++ {
				diff := x1.At(i, c) - x2.At(j, c)
				sq += diff * diff
			}
			out.Set(i, j, k.Outputscale*math.Exp(-sq*inv))
		}
	}
	return out
}

// Linear is the dot-product kernel k(x, x') = v · xᵀx'. With v = 1 and
// Jacobian rows as points it is the neural tangent kernel.
type Linear struct {
	Variance float64
}

// Gram implements Kernel.
func (k Linear) Gram(x1, x2 mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(x1, x2.T())
	if k.Variance != 1 {
		out.Scale(k.Variance, &out)
	}
	return &out
}

// NTK is the neural tangent kernel over parameter Jacobians.
var NTK = Linear{Variance: 1}

// Points wraps scalar inputs as a one-column matrix.
func Points(xs []float64) *mat.Dense {
	return mat.NewDense(len(xs), 1, append([]float64(nil), xs...))
}
