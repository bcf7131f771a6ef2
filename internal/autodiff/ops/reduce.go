package ops

import "github.com/born-ml/backprop/internal/tensor"

// MeanOp represents the mean over all elements: output = Σx / N.
//
// Backward pass:
//   - grad_x = broadcast(outputGrad) / N
type MeanOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(input, output *tensor.Tensor) *MeanOp {
	return &MeanOp{input: input, output: output}
}

// Name returns "Mean".
func (op *MeanOp) Name() string { return "Mean" }

// Backward spreads the scalar gradient evenly over the input.
func (op *MeanOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	n := float64(op.input.Size())
	return []*tensor.Tensor{expandScalar(outputGrad, op.input.Shape(), 1/n)}, nil
}

// Inputs returns the input tensor [x].
func (op *MeanOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the scalar mean.
func (op *MeanOp) Output() *tensor.Tensor {
	return op.output
}

// SumOp represents the sum over all elements: output = Σx.
//
// Backward pass:
//   - grad_x = broadcast(outputGrad)
type SumOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.Tensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Name returns "Sum".
func (op *SumOp) Name() string { return "Sum" }

// Backward copies the scalar gradient to every input element.
func (op *SumOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{expandScalar(outputGrad, op.input.Shape(), 1)}, nil
}

// Inputs returns the input tensor [x].
func (op *SumOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.Tensor {
	return op.output
}
