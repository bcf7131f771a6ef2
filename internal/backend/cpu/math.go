package cpu

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/backprop/internal/tensor"
)

// Scale multiplies every element by factor.
func (cpu *CPUBackend) Scale(x *tensor.Tensor, factor float64) *tensor.Tensor {
	result := tensor.Zeros(x.Shape())
	floats.ScaleTo(result.Data(), factor, x.Data())
	return result
}

// Pow raises every element to exponent.
func (cpu *CPUBackend) Pow(x *tensor.Tensor, exponent float64) *tensor.Tensor {
	return unaryOp(x, func(v float64) float64 { return math.Pow(v, exponent) })
}

// Exp computes e^x element-wise.
//
// Overflow to +Inf and NaN inputs are reported as ErrNumericalInstability
// instead of leaking non-finite values into the graph.
func (cpu *CPUBackend) Exp(x *tensor.Tensor) (*tensor.Tensor, error) {
	result := tensor.Zeros(x.Shape())
	dst := result.Data()
	for i, v := range x.Data() {
		e := math.Exp(v)
		if math.IsNaN(e) || math.IsInf(e, 1) {
			return nil, errors.Wrapf(tensor.ErrNumericalInstability, "exp: input %g at index %d", v, i)
		}
		dst[i] = e
	}
	return result, nil
}

// ReLU applies max(0, x).
func (cpu *CPUBackend) ReLU(x *tensor.Tensor) *tensor.Tensor {
	return unaryOp(x, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// ReLUMask returns 1 where x > 0 and 0 elsewhere, including x == 0.
func (cpu *CPUBackend) ReLUMask(x *tensor.Tensor) *tensor.Tensor {
	return unaryOp(x, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)) without overflowing for large |x|.
func (cpu *CPUBackend) Sigmoid(x *tensor.Tensor) *tensor.Tensor {
	return unaryOp(x, func(v float64) float64 {
		if v >= 0 {
			return 1 / (1 + math.Exp(-v))
		}
		e := math.Exp(v)
		return e / (1 + e)
	})
}

func unaryOp(x *tensor.Tensor, fn func(float64) float64) *tensor.Tensor {
	result := tensor.Zeros(x.Shape())
	dst := result.Data()
	for i, v := range x.Data() {
		dst[i] = fn(v)
	}
	return result
}
