// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// A Graph records every tracked operation as a Node. Backward on a scalar
// node walks the graph in reverse topological order and accumulates
// gradients into the leaves.
//
// Example:
//
//	g := autodiff.New(cpu.New())
//	w := autodiff.NewParameter("w", tensor.Ones(tensor.Shape{3, 2}))
//	x := autodiff.NewLeaf(input)
//	y, _ := g.Linear(x, w, nil)
//	loss := g.Mean(g.ReLU(y))
//	if err := g.Backward(loss); err != nil { ... }
//	grad := w.Grad()
package autodiff

import (
	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/tensor"
)

// Graph records operations for one forward/backward cycle.
type Graph = autodiff.Graph

// Node is a vertex of the computation graph.
type Node = autodiff.Node

// Errors returned by graph operations and Backward. Test with errors.Is.
var (
	ErrShapeMismatch        = autodiff.ErrShapeMismatch
	ErrIndexOutOfRange      = autodiff.ErrIndexOutOfRange
	ErrNumericalInstability = autodiff.ErrNumericalInstability
	ErrBackwardOnNonScalar  = autodiff.ErrBackwardOnNonScalar
	ErrNoGradientContext    = autodiff.ErrNoGradientContext
)

// New creates an empty graph with gradient tracking enabled.
func New(backend tensor.Backend) *Graph {
	return autodiff.New(backend)
}

// NewLeaf wraps an input tensor. It is tracked if value.RequiresGrad().
func NewLeaf(value *tensor.Tensor) *Node {
	return autodiff.NewLeaf(value)
}

// NewParameter wraps a tensor as a named, tracked leaf.
func NewParameter(name string, value *tensor.Tensor) *Node {
	return autodiff.NewParameter(name, value)
}
