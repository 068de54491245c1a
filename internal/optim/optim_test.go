package optim_test

import (
	"math"
	"testing"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/optim"
)

// Helper to check float equality with tolerance.
func floatEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	theta := []float64{2.0}
	optimizer := optim.NewSGD(1, optim.SGDConfig{LR: 0.1})

	optimizer.Step(theta, []float64{1.0})

	// Expected: x_new = x_old - lr * grad = 2.0 - 0.1 * 1.0 = 1.9
	if !floatEqual(theta[0], 1.9, 1e-12) {
		t.Errorf("SGD update: got %f, want %f", theta[0], 1.9)
	}
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	theta := []float64{1.0}
	optimizer := optim.NewSGD(1, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: v = 1, x = 1 - 0.1 = 0.9
	optimizer.Step(theta, []float64{1.0})
	// Step 2: v = 0.9 + 1 = 1.9, x = 0.9 - 0.19 = 0.71
	optimizer.Step(theta, []float64{1.0})

	if !floatEqual(theta[0], 0.71, 1e-12) {
		t.Errorf("SGD momentum: got %f, want %f", theta[0], 0.71)
	}

	optimizer.Reset()
	// After reset the velocity restarts: x = 0.71 - 0.1
	optimizer.Step(theta, []float64{1.0})
	if !floatEqual(theta[0], 0.61, 1e-12) {
		t.Errorf("SGD after reset: got %f, want %f", theta[0], 0.61)
	}
}

// TestSGD_GetSetLR tests learning rate getter/setter.
func TestSGD_GetSetLR(t *testing.T) {
	optimizer := optim.NewSGD(1, optim.SGDConfig{})
	if optimizer.LR() != 0.01 {
		t.Errorf("default LR: got %f, want 0.01", optimizer.LR())
	}
	optimizer.SetLR(0.5)
	if optimizer.LR() != 0.5 {
		t.Errorf("SetLR: got %f, want 0.5", optimizer.LR())
	}
}

// TestAdam_SimpleUpdate tests the first Adam step.
func TestAdam_SimpleUpdate(t *testing.T) {
	theta := []float64{1.0}
	optimizer := optim.NewAdam(1, optim.AdamConfig{LR: 0.1})

	// With bias correction the first step moves by lr * sign(grad).
	optimizer.Step(theta, []float64{0.5})

	if !floatEqual(theta[0], 0.9, 1e-6) {
		t.Errorf("Adam update: got %f, want %f", theta[0], 0.9)
	}
	if optimizer.GetTimestep() != 1 {
		t.Errorf("timestep: got %d, want 1", optimizer.GetTimestep())
	}
}

// TestAdam_Reset tests that Reset clears the moments and timestep.
func TestAdam_Reset(t *testing.T) {
	optimizer := optim.NewAdam(2, optim.AdamConfig{})
	theta := []float64{1, 1}
	optimizer.Step(theta, []float64{1, -1})
	optimizer.Step(theta, []float64{1, -1})
	optimizer.Reset()

	if optimizer.GetTimestep() != 0 {
		t.Errorf("timestep after reset: got %d, want 0", optimizer.GetTimestep())
	}
}

// TestConvergence_SimpleQuadratic minimizes f(x) = Σ (x_i - c_i)².
func TestConvergence_SimpleQuadratic(t *testing.T) {
	target := []float64{3, -1, 0.5}
	for _, tc := range []struct {
		name string
		opt  optim.Optimizer
	}{
		{"sgd", optim.NewSGD(3, optim.SGDConfig{LR: 0.1, Momentum: 0.5})},
		{"adam", optim.NewAdam(3, optim.AdamConfig{LR: 0.05})},
	} {
		t.Run(tc.name, func(t *testing.T) {
			theta := make([]float64, 3)
			grad := make([]float64, 3)
			for range 2000 {
				for i := range theta {
					grad[i] = 2 * (theta[i] - target[i])
				}
				tc.opt.Step(theta, grad)
			}
			for i := range theta {
				if !floatEqual(theta[i], target[i], 1e-2) {
					t.Errorf("theta[%d] = %f, want %f", i, theta[i], target[i])
				}
			}
		})
	}
}

// TestStepLengthMismatchPanics guards the fixed-length contract.
func TestStepLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched lengths")
		}
	}()
	optim.NewSGD(2, optim.SGDConfig{}).Step([]float64{1}, []float64{1})
}
