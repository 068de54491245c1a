// Copyright 2025 The linsense Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 arrays used throughout linsense.
//
// Sequences are time-major: a trajectory of T samples with C channels has
// shape [T, C].
//
//	u, err := tensor.FromSlice([]float64{0.1, 0.4, -0.2}, tensor.Shape{3, 1})
package tensor

import "github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"

// Shape is the size of each dimension.
type Shape = tensor.Shape

// Dense is a row-major float64 tensor.
type Dense = tensor.Dense

// New allocates a zero-filled tensor.
func New(shape Shape) (*Dense, error) {
	return tensor.New(shape)
}

// Zeros is New for shapes known to be valid. It panics on invalid shapes.
func Zeros(shape Shape) *Dense {
	return tensor.Zeros(shape)
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float64, shape Shape) (*Dense, error) {
	return tensor.FromSlice(data, shape)
}

// Wrap creates a tensor that shares data.
func Wrap(data []float64, shape Shape) (*Dense, error) {
	return tensor.Wrap(data, shape)
}
