package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/backprop/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return binaryOp("add", a, b, floats.AddTo, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with NumPy-style broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return binaryOp("sub", a, b, floats.SubTo, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return binaryOp("mul", a, b, floats.MulTo, func(x, y float64) float64 { return x * y })
}

// binaryOp runs vectorized when the shapes match and falls back to strided
// broadcasting otherwise.
func binaryOp(
	name string,
	a, b *tensor.Tensor,
	vectorized func(dst, s, t []float64) []float64,
	scalar func(x, y float64) float64,
) (*tensor.Tensor, error) {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}

	result := tensor.Zeros(outShape)
	dst := result.Data()
	aData, bData := a.Data(), b.Data()

	if !needsBroadcast {
		vectorized(dst, aData, bData)
		return result, nil
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)
	for i := range dst {
		dst[i] = scalar(
			aData[computeFlatIndex(i, outStrides, aStrides)],
			bData[computeFlatIndex(i, outStrides, bStrides)],
		)
	}
	return result, nil
}
