package ops

import (
	"github.com/born-ml/backprop/internal/tensor"
)

// expandScalar spreads a one-element gradient over shape, scaled by factor.
func expandScalar(grad *tensor.Tensor, shape tensor.Shape, factor float64) *tensor.Tensor {
	return tensor.Full(shape, grad.Item()*factor)
}
