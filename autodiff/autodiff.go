// Copyright 2025 The linsense Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides tape-based automatic differentiation with
// batched reverse (VJP) and forward (JVP) sweeps.
//
// A differentiable computation is written as a Func over the parameter
// tensors:
//
//	fn := func(tape *autodiff.Tape, p []*tensor.Dense) (*tensor.Dense, error) {
//	    return tape.Tanh(tape.MatVec(u, p[0])), nil
//	}
//	y, err := autodiff.Evaluate(fn, values)
//
// The jacobian and linearization routines in package linsense record fn
// once and sweep the tape as many times as they need.
package autodiff

import (
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/autodiff/ops"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// Tape records differentiable operations.
type Tape = autodiff.Tape

// Func is a pure function of the parameter tensors.
type Func = autodiff.Func

// Batch is a stack of row vectors swept through the tape together: seeds
// for Forward, output cotangents for Backward.
type Batch = ops.Batch

// Identity returns the n×n identity batch, the seed for a full Jacobian.
func Identity(n int) *Batch {
	return ops.Identity(n)
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return autodiff.NewTape()
}

// Evaluate runs fn on params without recording anything.
func Evaluate(fn Func, params []*tensor.Dense) (*tensor.Dense, error) {
	return autodiff.Evaluate(fn, params)
}
