package ops

import "github.com/born-ml/backprop/internal/tensor"

// AddOp represents an element-wise addition operation: output = a + b.
//
// Backward pass:
//   - d(a+b)/da = 1, so grad_a = outputGrad
//   - d(a+b)/db = 1, so grad_b = outputGrad
//
// If broadcasting was used in the forward pass, gradients are summed
// along the broadcast dimensions to match input shapes.
type AddOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a + b
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.Tensor) *AddOp {
	return &AddOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Name returns "Add".
func (op *AddOp) Name() string { return "Add" }

// Backward computes input gradients for addition.
func (op *AddOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	gradA, err := backend.SumTo(outputGrad, a.Shape())
	if err != nil {
		return nil, err
	}
	gradB, err := backend.SumTo(outputGrad, b.Shape())
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a + b.
func (op *AddOp) Output() *tensor.Tensor {
	return op.output
}
