package ops

import "github.com/born-ml/backprop/internal/tensor"

// MatMulOp represents a matrix multiplication operation: output = a @ b.
//
// Backward pass:
//   - d(A@B)/dA = outputGrad @ B^T
//   - d(A@B)/dB = A^T @ outputGrad
type MatMulOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a @ b
}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.Tensor) *MatMulOp {
	return &MatMulOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Name returns "MatMul".
func (op *MatMulOp) Name() string { return "MatMul" }

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	// grad_a = outputGrad @ b^T
	bT, err := backend.Transpose(b)
	if err != nil {
		return nil, err
	}
	gradA, err := backend.MatMul(outputGrad, bT)
	if err != nil {
		return nil, err
	}

	// grad_b = a^T @ outputGrad
	aT, err := backend.Transpose(a)
	if err != nil {
		return nil, err
	}
	gradB, err := backend.MatMul(aT, outputGrad)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *MatMulOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a @ b.
func (op *MatMulOp) Output() *tensor.Tensor {
	return op.output
}
