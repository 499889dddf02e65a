// Copyright 2025 The Quadgen Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package container provides the public API for reading and writing the
// SafeTensors parameter containers that hold a trained policy's weights.
//
// Example:
//
//	r, err := container.Open("params.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	tensors, err := r.LoadAll()
package container

import (
	"github.com/quadgen-ml/quadgen/internal/container"
	"github.com/quadgen-ml/quadgen/internal/tensor"
)

// Reader reads tensors out of a SafeTensors parameter container.
type Reader = container.Reader

// TensorInfo describes a tensor entry in the container header.
type TensorInfo = container.TensorInfo

// NamedData is a tensor staged for writing.
type NamedData = container.NamedData

// WeightData is one named tensor in a JSON weight dump.
type WeightData = container.WeightData

// ValidationError provides detailed information about a malformed
// container.
type ValidationError = container.ValidationError

// Common errors.
var (
	ErrHeaderTooLarge  = container.ErrHeaderTooLarge
	ErrTensorNotFound  = container.ErrTensorNotFound
	ErrOutOfBounds     = container.ErrOutOfBounds
	ErrNegativeExtent  = container.ErrNegativeExtent
	ErrUnsupportedType = container.ErrUnsupportedType
)

// Open opens a parameter container and parses its header.
func Open(path string) (*Reader, error) {
	return container.Open(path)
}

// Write writes tensors to a new SafeTensors container.
func Write(path string, tensors []*NamedData, metadata map[string]string) error {
	return container.Write(path, tensors, metadata)
}

// Pack converts a JSON weight dump into a SafeTensors container.
func Pack(jsonPath, containerPath string) error {
	return container.Pack(jsonPath, containerPath)
}

// ReadJSONWeights reads a JSON weight dump into container write order.
func ReadJSONWeights(path string) ([]*NamedData, error) {
	return container.ReadJSONWeights(path)
}

// LoadPolicyTensors opens a container and loads every tensor, in sorted
// name order.
func LoadPolicyTensors(path string) ([]*tensor.Tensor, error) {
	r, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.LoadAll()
}
