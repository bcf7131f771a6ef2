package ops

import "github.com/born-ml/backprop/internal/tensor"

// ExpOp represents element-wise exponentiation: output = e^x.
//
// Backward pass:
//   - d(e^x)/dx = e^x, so grad_x = outputGrad * output
type ExpOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewExpOp creates a new ExpOp.
func NewExpOp(input, output *tensor.Tensor) *ExpOp {
	return &ExpOp{input: input, output: output}
}

// Name returns "Exp".
func (op *ExpOp) Name() string { return "Exp" }

// Backward reuses the forward output as the local derivative.
func (op *ExpOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	gradInput, err := backend.Mul(outputGrad, op.output)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the input tensor [x].
func (op *ExpOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the output tensor e^x.
func (op *ExpOp) Output() *tensor.Tensor {
	return op.output
}
