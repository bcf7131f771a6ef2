package ops

import "github.com/born-ml/backprop/internal/tensor"

// NLLLossOp represents the negative log-likelihood loss.
//
// Forward:
//
//	Loss = -1/N Σ_i logProbs[i, labels[i]]
//
// Backward:
//
//	∂L/∂logProbs[i, j] = -1/N if j == labels[i], else 0
//
// Labels are plain class indices and receive no gradient.
type NLLLossOp struct {
	input  *tensor.Tensor // log-probabilities [batch_size, num_classes]
	labels []int
	output *tensor.Tensor // scalar loss
}

// NewNLLLossOp creates a new NLLLossOp.
func NewNLLLossOp(input *tensor.Tensor, labels []int, output *tensor.Tensor) *NLLLossOp {
	return &NLLLossOp{
		input:  input,
		labels: labels,
		output: output,
	}
}

// Name returns "NLLLoss".
func (op *NLLLossOp) Name() string { return "NLLLoss" }

// Backward scatters -outputGrad/N into each row's label column.
func (op *NLLLossOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	shape := op.input.Shape()
	batch, classes := shape[0], shape[1]

	gradInput := tensor.ZerosLike(op.input)
	data := gradInput.Data()
	scale := -outputGrad.Item() / float64(batch)
	for i, label := range op.labels {
		data[i*classes+label] = scale
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the log-probability tensor.
func (op *NLLLossOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the scalar loss.
func (op *NLLLossOp) Output() *tensor.Tensor {
	return op.output
}
