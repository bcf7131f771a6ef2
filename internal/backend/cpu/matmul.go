package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/backprop/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N), computed by gonum/mat.
func (cpu *CPUBackend) MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"matmul: only 2D tensors supported, got %v and %v", aShape, bShape)
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "matmul: %v @ %v", aShape, bShape)
	}

	result := tensor.Zeros(tensor.Shape{m, n})
	out := mat.NewDense(m, n, result.Data())
	out.Mul(mat.NewDense(m, k, a.Data()), mat.NewDense(k, n, b.Data()))
	return result, nil
}

// Transpose swaps the two axes of a 2D tensor.
func (cpu *CPUBackend) Transpose(x *tensor.Tensor) (*tensor.Tensor, error) {
	shape := x.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "transpose: expected 2D tensor, got %v", shape)
	}

	rows, cols := shape[0], shape[1]
	result := tensor.Zeros(tensor.Shape{cols, rows})
	out := mat.NewDense(cols, rows, result.Data())
	out.Copy(mat.NewDense(rows, cols, x.Data()).T())
	return result, nil
}

// Linear computes x @ weight.T + bias.
//
// Shapes:
//   - x: [batch_size, in_features]
//   - weight: [out_features, in_features]
//   - bias: [out_features] or nil
//
// Returns [batch_size, out_features].
func (cpu *CPUBackend) Linear(x, weight, bias *tensor.Tensor) (*tensor.Tensor, error) {
	xShape, wShape := x.Shape(), weight.Shape()
	if len(xShape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"linear: expected 2D input [batch, features], got %v", xShape)
	}
	if len(wShape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"linear: expected 2D weight [out, in], got %v", wShape)
	}
	if xShape[1] != wShape[1] {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"linear: input has %d features, weight expects %d", xShape[1], wShape[1])
	}

	batch, in, out := xShape[0], xShape[1], wShape[0]
	if bias != nil && !bias.Shape().Equal(tensor.Shape{out}) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"linear: bias shape %v, want (%d)", bias.Shape(), out)
	}

	result := tensor.Zeros(tensor.Shape{batch, out})
	dst := mat.NewDense(batch, out, result.Data())
	dst.Mul(mat.NewDense(batch, in, x.Data()), mat.NewDense(out, in, weight.Data()).T())

	if bias != nil {
		b := bias.Data()
		for i := 0; i < batch; i++ {
			floats.Add(result.Row(i), b)
		}
	}
	return result, nil
}
