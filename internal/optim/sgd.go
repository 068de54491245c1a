package optim

import "fmt"

// SGD implements gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	lr       float64
	momentum float64
	velocity []float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer for n parameters.
func NewSGD(n int, config SGDConfig) *SGD {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make([]float64, n),
	}
}

// Step performs a single optimization step.
func (s *SGD) Step(theta, grad []float64) {
	mustMatch(len(s.velocity), theta, grad)
	for i, g := range grad {
		if s.momentum != 0 {
			s.velocity[i] = s.momentum*s.velocity[i] + g
			g = s.velocity[i]
		}
		theta[i] -= s.lr * g
	}
}

// Reset zeroes the velocity.
func (s *SGD) Reset() {
	clear(s.velocity)
}

// LR returns the learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

func mustMatch(n int, theta, grad []float64) {
	if len(theta) != n || len(grad) != n {
		panic(fmt.Sprintf("optim: expected %d parameters, got theta=%d grad=%d", n, len(theta), len(grad)))
	}
}
