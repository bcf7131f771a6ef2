package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// NLLLoss computes the negative log-likelihood loss for multi-class
// classification from log-probabilities.
//
// Mathematical Formulation:
//
//	Loss = -1/N Σ_i logProbs[i, target_i]
//
// Usage:
//
//	criterion := nn.NewNLLLoss()
//	logp, _ := model.Forward(g, x)           // ends in LogSoftmax(1)
//	loss, _ := criterion.Forward(g, logp, y) // y: one class index per row
type NLLLoss struct{}

// NewNLLLoss creates a new NLL loss function.
func NewNLLLoss() *NLLLoss {
	return &NLLLoss{}
}

// Forward computes the mean negative log-likelihood of targets.
//
// Fails with tensor.ErrIndexOutOfRange for a target outside [0, num_classes)
// and tensor.ErrShapeMismatch when len(targets) differs from the batch size.
func (c *NLLLoss) Forward(g *autodiff.Graph, logProbs *autodiff.Node, targets []int) (*autodiff.Node, error) {
	return g.NLLLoss(logProbs, targets)
}

// CrossEntropyLoss computes cross-entropy loss from raw logits.
//
// This implementation uses the LogSoftmax + NLLLoss decomposition for
// numerical stability.
//
// Gradient (Backward):
//
//	∂L/∂logits = (Softmax(logits) - y_one_hot) / N
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Forward computes the mean cross-entropy between logits [batch, classes] and targets.
func (c *CrossEntropyLoss) Forward(g *autodiff.Graph, logits *autodiff.Node, targets []int) (*autodiff.Node, error) {
	logp, err := g.LogSoftmax(logits, -1)
	if err != nil {
		return nil, err
	}
	return g.NLLLoss(logp, targets)
}

// Accuracy returns the fraction of rows of scores [batch, classes] whose
// argmax equals the target. Scores may be logits, probabilities or
// log-probabilities.
func Accuracy(scores *tensor.Tensor, targets []int) (float64, error) {
	if scores.Dims() != 2 || scores.Shape()[0] != len(targets) {
		return 0, errors.Wrapf(tensor.ErrShapeMismatch,
			"accuracy: scores %v for %d targets", scores.Shape(), len(targets))
	}
	if len(targets) == 0 {
		return 0, nil
	}

	correct := 0
	for i, predicted := range scores.Argmax() {
		if predicted == targets[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(targets)), nil
}
