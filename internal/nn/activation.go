package nn

import (
	"fmt"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// stateless provides the parameter and state methods of modules without weights.
type stateless struct{}

func (stateless) Parameters() []*Parameter { return nil }

func (stateless) StateDict() map[string]*tensor.Tensor { return nil }

func (stateless) LoadStateDict(map[string]*tensor.Tensor) error { return nil }

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// The gradient at exactly x == 0 is taken to be 0.
type ReLU struct{ stateless }

// NewReLU creates a new ReLU activation module.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU) Forward(g *autodiff.Graph, x *autodiff.Node) (*autodiff.Node, error) {
	return g.ReLU(x), nil
}

func (r *ReLU) String() string { return "ReLU()" }

// Sigmoid is a sigmoid activation module.
//
// Applies the element-wise function: σ(x) = 1 / (1 + exp(-x))
type Sigmoid struct{ stateless }

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

// Forward applies Sigmoid activation.
func (s *Sigmoid) Forward(g *autodiff.Graph, x *autodiff.Node) (*autodiff.Node, error) {
	return g.Sigmoid(x), nil
}

func (s *Sigmoid) String() string { return "Sigmoid()" }

// LogSoftmax turns scores into log-probabilities along an axis.
//
// Example:
//
//	head := nn.NewLogSoftmax(1) // normalise each row of [batch, classes]
type LogSoftmax struct {
	stateless
	axis int
}

// NewLogSoftmax creates a LogSoftmax over axis (negative values count from the end).
func NewLogSoftmax(axis int) *LogSoftmax {
	return &LogSoftmax{axis: axis}
}

// Axis returns the normalisation axis.
func (l *LogSoftmax) Axis() int {
	return l.axis
}

// Forward applies the numerically stable log-softmax.
func (l *LogSoftmax) Forward(g *autodiff.Graph, x *autodiff.Node) (*autodiff.Node, error) {
	return g.LogSoftmax(x, l.axis)
}

func (l *LogSoftmax) String() string { return fmt.Sprintf("LogSoftmax(dim=%d)", l.axis) }
