package ops

import "github.com/born-ml/backprop/internal/tensor"

// SigmoidOp represents the logistic activation: output = σ(x) = 1 / (1 + e^-x).
//
// Backward pass:
//   - dσ/dx = σ(x) * (1 - σ(x)), computed from the cached output
type SigmoidOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.Tensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

// Name returns "Sigmoid".
func (op *SigmoidOp) Name() string { return "Sigmoid" }

// Backward computes grad_x = outputGrad * σ * (1 - σ).
func (op *SigmoidOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	gradInput := tensor.ZerosLike(op.input)
	dst := gradInput.Data()
	sig := op.output.Data()
	for i, g := range outputGrad.Data() {
		dst[i] = g * sig[i] * (1 - sig[i])
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the input tensor [x].
func (op *SigmoidOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the output tensor σ(x).
func (op *SigmoidOp) Output() *tensor.Tensor {
	return op.output
}
