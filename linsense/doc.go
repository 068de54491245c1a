// Copyright 2025 The linsense Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linsense linearizes differentiable models in parameter space and
// adapts them to new data with a closed-form ridge solve.
//
// # Overview
//
// Around pretrained parameters θ₀ a model is replaced by its first-order
// expansion
//
//	y_lin(u; δ) = y(u; θ₀) + J(u; θ₀) δ
//
// and the offset δ is fitted to a handful of samples:
//
//	δ = (JᵀJ + σ²I)⁻¹ Jᵀ (y − y_sim)
//
// This package provides:
//   - Extract: the full Jacobian of a model output w.r.t. its parameters
//   - Solve, SolveWeighted: ridge regression on the Jacobian
//   - Predict, PredictFlat: linearized predictions via a JVP
//   - Evaluate: R², MSE, RMSE and fit index per output channel
//   - Adapter: the end-to-end episode (extract, solve, predict, score)
//
// # Basic Usage
//
//	model, _ := nn.NewIIR(b, a)
//	adapter := linsense.NewAdapter(linsense.AdapterConfig{Sigma2: 0.01}, logr.Discard())
//	ep, err := adapter.Adapt(ctx, model, uAdapt, yAdapt)
//	report, err := adapter.Evaluate(ctx, ep, uTest, yTest)
//	fmt.Println(report.Linearized.R2)
//
// # Errors
//
// Failures are reported with typed errors that match the category
// sentinels through errors.Is:
//
//	errors.Is(err, linsense.ErrSingularSystem)
package linsense
