package ops

import "github.com/born-ml/backprop/internal/tensor"

// ReLUOp represents a ReLU (Rectified Linear Unit) activation: output = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
//
// ReLU is not differentiable at exactly 0; the subgradient used there is 0.
type ReLUOp struct {
	input  *tensor.Tensor // x
	output *tensor.Tensor // max(0, x)
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.Tensor) *ReLUOp {
	return &ReLUOp{
		input:  input,
		output: output,
	}
}

// Name returns "ReLU".
func (op *ReLUOp) Name() string { return "ReLU" }

// Backward computes input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	gradInput, err := backend.Mul(outputGrad, backend.ReLUMask(op.input))
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *tensor.Tensor {
	return op.output
}
