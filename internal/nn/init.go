package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Dense {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return Uniform(-bound, bound, shape, rng)
}

// Uniform draws every element from U(lo, hi).
func Uniform(lo, hi float64, shape tensor.Shape, rng *rand.Rand) *tensor.Dense {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: newRand(rng)}
	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = dist.Rand()
	}
	return t
}

// Normal draws every element from N(0, std²).
func Normal(std float64, shape tensor.Shape, rng *rand.Rand) *tensor.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: newRand(rng)}
	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = dist.Rand()
	}
	return t
}

// Zeros creates a tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros(shape tensor.Shape) *tensor.Dense {
	return tensor.Zeros(shape)
}
