package ops

import "github.com/born-ml/backprop/internal/tensor"

// LinearOp represents a fully connected transform: output = x @ W^T + b.
//
// Shapes: x [batch, in], W [out, in], b [out] (optional), output [batch, out].
//
// Backward pass (δ = outputGrad):
//   - grad_x = δ @ W
//   - grad_W = δ^T @ x
//   - grad_b = column-sum of δ
type LinearOp struct {
	input  *tensor.Tensor
	weight *tensor.Tensor
	bias   *tensor.Tensor // nil when the layer has no bias
	output *tensor.Tensor
}

// NewLinearOp creates a new LinearOp. bias may be nil.
func NewLinearOp(input, weight, bias, output *tensor.Tensor) *LinearOp {
	return &LinearOp{
		input:  input,
		weight: weight,
		bias:   bias,
		output: output,
	}
}

// Name returns "Linear".
func (op *LinearOp) Name() string { return "Linear" }

// Backward computes gradients for input, weight and (if present) bias.
func (op *LinearOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	gradInput, err := backend.MatMul(outputGrad, op.weight)
	if err != nil {
		return nil, err
	}

	gradT, err := backend.Transpose(outputGrad)
	if err != nil {
		return nil, err
	}
	gradWeight, err := backend.MatMul(gradT, op.input)
	if err != nil {
		return nil, err
	}

	if op.bias == nil {
		return []*tensor.Tensor{gradInput, gradWeight}, nil
	}

	gradBias, err := backend.SumAxis(outputGrad, 0, false)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradInput, gradWeight, gradBias}, nil
}

// Inputs returns [x, W] or [x, W, b].
func (op *LinearOp) Inputs() []*tensor.Tensor {
	if op.bias == nil {
		return []*tensor.Tensor{op.input, op.weight}
	}
	return []*tensor.Tensor{op.input, op.weight, op.bias}
}

// Output returns the output tensor.
func (op *LinearOp) Output() *tensor.Tensor {
	return op.output
}
