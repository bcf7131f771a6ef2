// Package ops defines operation interfaces and implementations for automatic differentiation.
//
// Each operation implements the Operation interface, which provides:
//   - Forward pass: computed by the backend, captured by the op at construction
//   - Backward pass: computes gradients for inputs given output gradient
//
// Supported operations:
//   - AddOp, SubOp, MulOp: element-wise arithmetic with broadcasting
//   - PowOp: element-wise power with a constant exponent
//   - ExpOp, ReLUOp, SigmoidOp: element-wise nonlinearities
//   - MeanOp, SumOp: reductions to a scalar
//   - MatMulOp, LinearOp: dense matrix products
//   - LogSoftmaxOp, NLLLossOp: classification head and loss
package ops

import "github.com/born-ml/backprop/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
// Each operation records its inputs and output during the forward pass,
// and computes input gradients during the backward pass.
type Operation interface {
	// Name identifies the operation (e.g. "Linear", "ReLU").
	Name() string

	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per input tensor, each with that input's shape.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   outputGrad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error)

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.Tensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.Tensor
}
