package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// MSELoss computes Mean Squared Error loss.
//
// Loss = mean((predictions - targets)²)
//
// Example:
//
//	mse := nn.NewMSELoss()
//	loss, err := mse.Forward(g, predictions, targets)
type MSELoss struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Forward computes mean((predictions - targets)²).
// Shapes must match exactly; broadcasting is not applied.
func (m *MSELoss) Forward(g *autodiff.Graph, predictions, targets *autodiff.Node) (*autodiff.Node, error) {
	if !predictions.Shape().Equal(targets.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"mse: predictions %v, targets %v", predictions.Shape(), targets.Shape())
	}
	diff, err := g.Sub(predictions, targets)
	if err != nil {
		return nil, err
	}
	return g.Mean(g.Pow(diff, 2)), nil
}
