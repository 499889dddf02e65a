// Copyright 2025 The Quadgen Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types shared by the container
// reader, policy adapter and code emitter: named, immutable float32
// tensors with explicit shapes.
package tensor

import "github.com/quadgen-ml/quadgen/internal/tensor"

// Shape describes tensor dimensions.
type Shape = tensor.Shape

// DataType identifies a container element type.
type DataType = tensor.DataType

// Supported element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Float16 = tensor.Float16
)

// Tensor is a named, immutable float32 tensor.
type Tensor = tensor.Tensor

// New builds a tensor, validating that the data length matches the shape.
func New(name string, shape Shape, data []float32) (*Tensor, error) {
	return tensor.New(name, shape, data)
}

// MustNew is New, panicking on error. For tests and literals.
func MustNew(name string, shape Shape, data []float32) *Tensor {
	return tensor.MustNew(name, shape, data)
}
