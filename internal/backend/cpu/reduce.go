package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/backprop/internal/tensor"
)

// Sum adds all elements into a scalar.
func (cpu *CPUBackend) Sum(x *tensor.Tensor) *tensor.Tensor {
	return tensor.Scalar(floats.Sum(x.Data()))
}

// SumAxis sums tensor elements along the specified axis.
//
// Parameters:
//   - axis: axis to reduce (supports negative indexing: -1 = last axis)
//   - keepDim: if true, keep the reduced axis with size 1; if false, remove it
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3, 4})
//	y, _ := backend.SumAxis(x, -1, true)   // shape: (2, 3, 1)
//	z, _ := backend.SumAxis(x, -1, false)  // shape: (2, 3)
func (cpu *CPUBackend) SumAxis(x *tensor.Tensor, axis int, keepDim bool) (*tensor.Tensor, error) {
	shape := x.Shape()
	axis, err := shape.NormalizeAxis(axis)
	if err != nil {
		return nil, errors.WithMessage(err, "sum")
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[axis] = 1
	} else {
		outShape = make(tensor.Shape, 0, len(shape)-1)
		for i, d := range shape {
			if i != axis {
				outShape = append(outShape, d)
			}
		}
	}

	result := tensor.Zeros(outShape)
	src, dst := x.Data(), result.Data()
	outer, n, inner := axisLayout(shape, axis)
	for o := 0; o < outer; o++ {
		for k := 0; k < n; k++ {
			base := (o*n + k) * inner
			floats.Add(dst[o*inner:(o+1)*inner], src[base:base+inner])
		}
	}
	return result, nil
}

// SumTo reduces x to shape by summing over the axes that broadcasting
// expanded. It is the adjoint of broadcasting shape up to x's shape.
//
// Example:
//
//	Forward: a(3,1) + b(3,4) -> c(3,4)  (a was broadcast along axis 1)
//	Backward: SumTo(grad_c, (3,1)) -> grad_a (sum along axis 1)
func (cpu *CPUBackend) SumTo(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	xShape := x.Shape()
	if xShape.Equal(shape) {
		return x.Clone().SetRequiresGrad(false), nil
	}

	broadcast, _, err := tensor.BroadcastShapes(shape, xShape)
	if err != nil || !broadcast.Equal(xShape) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "sum to: %v does not broadcast to %v", shape, xShape)
	}

	result, err := tensor.New(shape)
	if err != nil {
		return nil, err
	}
	dst := result.Data()
	xStrides := xShape.ComputeStrides()
	targetStrides := computeBroadcastStridesForShape(shape, xShape)
	for i, v := range x.Data() {
		dst[computeFlatIndex(i, xStrides, targetStrides)] += v
	}
	return result, nil
}
