package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization unless
// WithKaimingInit is given. Biases are initialized to zeros.
//
// Example:
//
//	layer := nn.NewLinear(784, 128, rng)
//	out, err := layer.Forward(g, x) // x: [32, 784] → out: [32, 128]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features], nil without bias
	kaiming     bool
}

// LinearOption configures a Linear layer.
type LinearOption func(*Linear)

// WithoutBias drops the bias term.
func WithoutBias() LinearOption {
	return func(l *Linear) { l.bias = nil }
}

// WithKaimingInit draws the weights with Kaiming (He) initialization,
// which suits layers followed by ReLU.
func WithKaimingInit() LinearOption {
	return func(l *Linear) { l.kaiming = true }
}

// NewLinear creates a new Linear layer.
//
// rng drives the weight initialization; pass a seeded generator for
// reproducible weights.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand, opts ...LinearOption) *Linear {
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		bias:        NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures})),
	}
	for _, opt := range opts {
		opt(l)
	}

	shape := tensor.Shape{outFeatures, inFeatures}
	if l.kaiming {
		l.weight = NewParameter("weight", Kaiming(inFeatures, shape, rng))
	} else {
		l.weight = NewParameter("weight", Xavier(inFeatures, outFeatures, shape, rng))
	}
	return l
}

// Forward computes y = x @ W.T + b.
//
// Fails with tensor.ErrShapeMismatch if x is not [batch, in_features].
func (l *Linear) Forward(g *autodiff.Graph, x *autodiff.Node) (*autodiff.Node, error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		what := x.Name()
		if what == "" {
			what = "input"
		}
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"%s: expected %s of shape [batch, %d], got %v", l, what, l.inFeatures, shape)
	}

	var bias *autodiff.Node
	if l.bias != nil {
		bias = l.bias.Node()
	}
	return g.Linear(x, l.weight.Node(), bias)
}

// Parameters returns [weight, bias], or [weight] without bias.
func (l *Linear) Parameters() []*Parameter {
	if l.bias != nil {
		return []*Parameter{l.weight, l.bias}
	}
	return []*Parameter{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter (nil without bias).
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns the weight and, if present, the bias.
func (l *Linear) StateDict() map[string]*tensor.Tensor {
	stateDict := map[string]*tensor.Tensor{"weight": l.weight.Tensor()}
	if l.bias != nil {
		stateDict["bias"] = l.bias.Tensor()
	}
	return stateDict
}

// LoadStateDict loads parameters from a state dictionary.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	for _, p := range l.Parameters() {
		src, ok := stateDict[p.Name()]
		if !ok {
			return errors.Errorf("missing %s in state dict", p.Name())
		}
		if err := p.load(src); err != nil {
			return err
		}
	}
	return nil
}

// String returns "Linear(in=…, out=…)".
func (l *Linear) String() string {
	if l.bias == nil {
		return fmt.Sprintf("Linear(in=%d, out=%d, bias=false)", l.inFeatures, l.outFeatures)
	}
	return fmt.Sprintf("Linear(in=%d, out=%d)", l.inFeatures, l.outFeatures)
}
