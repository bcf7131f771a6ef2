package ops

import "github.com/born-ml/backprop/internal/tensor"

// LogSoftmaxOp represents the log-softmax operation along an axis.
//
// Forward:
//
//	log_softmax(x)_i = x_i - max(x) - log(Σ_j exp(x_j - max(x)))
//
// Backward:
//
//	∂L/∂x_j = ∂L/∂log_softmax_j - softmax_j * Σ_i ∂L/∂log_softmax_i
//
// softmax is recovered as exp(output); output ≤ 0 so this cannot overflow.
type LogSoftmaxOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
	axis   int
}

// NewLogSoftmaxOp creates a new log-softmax operation.
func NewLogSoftmaxOp(input, output *tensor.Tensor, axis int) *LogSoftmaxOp {
	return &LogSoftmaxOp{
		input:  input,
		output: output,
		axis:   axis,
	}
}

// Name returns "LogSoftmax".
func (op *LogSoftmaxOp) Name() string { return "LogSoftmax" }

// Backward computes δ - softmax · Σδ along the axis.
func (op *LogSoftmaxOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	softmax, err := backend.Exp(op.output)
	if err != nil {
		return nil, err
	}
	gradSum, err := backend.SumAxis(outputGrad, op.axis, true)
	if err != nil {
		return nil, err
	}
	scaled, err := backend.Mul(softmax, gradSum)
	if err != nil {
		return nil, err
	}
	gradInput, err := backend.Sub(outputGrad, scaled)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the input tensors.
func (op *LogSoftmaxOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the output tensor.
func (op *LogSoftmaxOp) Output() *tensor.Tensor {
	return op.output
}
