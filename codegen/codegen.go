// Copyright 2025 The Quadgen Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package codegen provides the public API for converting a validated
// weight/bias tensor list into a self-contained C translation unit that
// evaluates the network forward pass.
//
// The generated file declares a structure table, constant weight and bias
// arrays, per-layer output buffers and a single evaluation routine
// (conventionally networkEvaluate) applying tanh to every hidden layer and
// leaving the final layer linear.
//
// Example:
//
//	spec, err := codegen.BuildNetworkSpec(tensors, codegen.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	src := codegen.Emit(spec)
//	err = src.WriteFile("out/network_evaluate.c")
package codegen

import (
	"github.com/quadgen-ml/quadgen/internal/codegen"
	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// Options controls network interpretation and emission.
type Options = codegen.Options

// Layer is one affine transform of the emitted network.
type Layer = codegen.Layer

// NetworkSpec is a validated feed-forward network ready for emission.
type NetworkSpec = codegen.NetworkSpec

// Source is a generated translation unit.
type Source = codegen.Source

// TopologyError carries the layer index of a topology violation.
type TopologyError = codegen.TopologyError

// ErrInvalidTopology reports a tensor list that does not describe a valid
// feed-forward network.
var ErrInvalidTopology = codegen.ErrInvalidTopology

// DefaultOptions matches the training pipeline's conventions: a trailing
// std head to strip and an evaluation routine named networkEvaluate.
func DefaultOptions() Options {
	return codegen.DefaultOptions()
}

// BuildNetworkSpec validates the canonical tensor list (weight, bias,
// weight, bias, ...) and derives the NetworkSpec.
func BuildNetworkSpec(tensors []*tensor.Tensor, opts Options) (*NetworkSpec, error) {
	return codegen.BuildNetworkSpec(tensors, opts)
}

// Emit renders the network as C source. The same spec always yields
// byte-identical text.
func Emit(spec *NetworkSpec) *Source {
	return codegen.Emit(spec)
}

// Generate validates the tensor list and emits in one step.
func Generate(tensors []*tensor.Tensor, opts Options) (*Source, error) {
	return codegen.Generate(tensors, opts)
}
