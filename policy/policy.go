// Copyright 2025 The Quadgen Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package policy provides the public API for normalizing stored control
// policies into the canonical ordered tensor list the code emitter
// consumes: weight matrix followed by bias vector, per layer, input to
// output.
//
// Example:
//
//	tensors, err := reader.LoadAll()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ordered, err := policy.FromTensors(tensors)
package policy

import (
	"github.com/quadgen-ml/quadgen/internal/policy"
	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// ParamSource is a policy object exposing its trained parameters in
// network order, weight before bias per layer.
type ParamSource = policy.ParamSource

// MalformedPolicyError carries the layer and field that could not be
// resolved.
type MalformedPolicyError = policy.MalformedPolicyError

// ErrMalformedPolicy reports a stored policy whose expected parameter
// fields are absent or unorderable.
var ErrMalformedPolicy = policy.ErrMalformedPolicy

// FromTensors groups container tensors by layer name and returns the
// canonical ordered list.
func FromTensors(tensors []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return policy.FromTensors(tensors)
}

// FromSource returns the source's parameter list as the canonical tensor
// list.
func FromSource(src ParamSource) ([]*tensor.Tensor, error) {
	return policy.FromSource(src)
}
