// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides dense float64 tensors and the backend interface
// that executes operations on them.
//
// # Basic Usage
//
//	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	w := tensor.Ones(tensor.Shape{3, 2})
//	r := tensor.Randn(tensor.Shape{2, 3}, rand.New(rand.NewSource(1)))
//
// Tensors are row-major and never share storage unless created with Reshape.
package tensor

import (
	"math/rand"

	"github.com/born-ml/backprop/internal/tensor"
)

// Tensor is a dense, row-major array of float64 values.
type Tensor = tensor.Tensor

// Shape represents tensor dimensions. The empty shape is a scalar.
type Shape = tensor.Shape

// Backend executes tensor operations.
type Backend = tensor.Backend

// Errors returned by tensor operations. Test with errors.Is.
var (
	ErrInvalidShape         = tensor.ErrInvalidShape
	ErrShapeMismatch        = tensor.ErrShapeMismatch
	ErrIndexOutOfRange      = tensor.ErrIndexOutOfRange
	ErrNumericalInstability = tensor.ErrNumericalInstability
)

// New creates a zero-filled tensor.
func New(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Scalar creates a 0-dimensional tensor.
func Scalar(v float64) *Tensor {
	return tensor.Scalar(v)
}

// Zeros creates a tensor filled with zeros. Panics on an invalid shape.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}

// Randn draws values from N(0, 1).
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	return tensor.Randn(shape, rng)
}

// Uniform draws values from U(low, high).
func Uniform(shape Shape, low, high float64, rng *rand.Rand) *Tensor {
	return tensor.Uniform(shape, low, high, rng)
}

// BroadcastShapes returns the NumPy-style broadcast of a and b.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
