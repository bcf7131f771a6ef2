// Package cpu implements the CPU backend on top of gonum.
//
// Dense matrix products go through gonum/mat, vector arithmetic and
// reductions through gonum/floats. Every operation allocates its result so
// operands captured by the autodiff graph are never modified.
package cpu

import (
	"github.com/born-ml/backprop/internal/tensor"
)

// CPUBackend implements tensor.Backend on the CPU.
type CPUBackend struct{}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}
