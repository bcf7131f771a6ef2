package ops

import "github.com/born-ml/backprop/internal/tensor"

// PowOp represents element-wise exponentiation by a constant: output = x^p.
//
// Backward pass:
//   - grad_x = outputGrad * p * x^(p-1)
type PowOp struct {
	input    *tensor.Tensor
	output   *tensor.Tensor
	exponent float64
}

// NewPowOp creates a new PowOp.
func NewPowOp(input, output *tensor.Tensor, exponent float64) *PowOp {
	return &PowOp{
		input:    input,
		output:   output,
		exponent: exponent,
	}
}

// Name returns "Pow".
func (op *PowOp) Name() string { return "Pow" }

// Backward computes the input gradient for x^p.
func (op *PowOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	local := backend.Scale(backend.Pow(op.input, op.exponent-1), op.exponent)
	gradInput, err := backend.Mul(outputGrad, local)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the input tensor [x].
func (op *PowOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the output tensor x^p.
func (op *PowOp) Output() *tensor.Tensor {
	return op.output
}
