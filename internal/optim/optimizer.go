// Package optim implements first-order optimizers over flat parameter
// vectors.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: gradient descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers own their state (velocities, moments) keyed by position in the
// vector, so one instance must always be stepped with vectors of the same
// length.
//
// Example usage:
//
//	opt := optim.NewAdam(len(theta), optim.AdamConfig{LR: 0.01})
//	for range iterations {
//	    grad := gradient(theta)
//	    opt.Step(theta, grad)
//	}
package optim

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one update to theta in place using grad.
	// len(grad) must equal len(theta).
	Step(theta, grad []float64)

	// Reset clears the optimizer state (momentum, moments, timestep).
	Reset()

	// LR returns the current learning rate.
	LR() float64
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}
