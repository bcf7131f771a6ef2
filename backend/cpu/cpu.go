// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go compute backend.
package cpu

import (
	internalcpu "github.com/born-ml/backprop/internal/backend/cpu"
	"github.com/born-ml/backprop/tensor"
)

// Backend represents the CPU backend implementation.
//
// Matrix products run on gonum; element-wise work is plain Go loops.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	g := autodiff.New(backend)
func New() *Backend {
	return internalcpu.New()
}
