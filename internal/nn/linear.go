package nn

import (
	"math/rand/v2"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/params"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = W @ x + b
// where:
//   - x is the input vector with in_features elements
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//
// Linear is a building block: models own it and hand it the tape leaves
// for its weight and bias.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *params.Parameter // [out_features, in_features]
	bias        *params.Parameter // [out_features]
}

// NewLinear creates a Linear layer whose parameters are named
// prefix+".weight" and prefix+".bias".
//
// Weights are initialized using Xavier/Glorot uniform distribution.
// Biases are initialized to zeros.
func NewLinear(prefix string, inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng)
	return newLinearWith(prefix, weight)
}

// newLinearWith wraps an already initialized [out, in] weight with a zero bias.
func newLinearWith(prefix string, weight *tensor.Dense) *Linear {
	shape := weight.Shape()
	return &Linear{
		inFeatures:  shape[1],
		outFeatures: shape[0],
		weight:      params.New(prefix+".weight", weight),
		bias:        params.New(prefix+".bias", Zeros(tensor.Shape{shape[0]})),
	}
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*params.Parameter {
	return []*params.Parameter{l.weight, l.bias}
}

// Apply computes w @ x + b.
func (l *Linear) Apply(tape *autodiff.Tape, w, b, x *tensor.Dense) *tensor.Dense {
	return tape.Add(tape.MatVec(w, x), b)
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
