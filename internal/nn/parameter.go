package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// A Parameter is a named, tracked leaf of the autodiff graph. It outlives
// every graph it takes part in; only the optimizer writes to its value.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
//	grad := weight.Grad() // nil until a backward pass reaches it
type Parameter struct {
	node *autodiff.Node
}

// NewParameter creates a new trainable parameter from an initialised tensor.
// The tensor is marked as requiring gradients.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{node: autodiff.NewParameter(name, t)}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.node.Name()
}

// Node returns the graph leaf that carries the parameter.
func (p *Parameter) Node() *autodiff.Node {
	return p.node
}

// Tensor returns the parameter value.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.node.Value()
}

// Grad returns the accumulated gradient.
//
// Returns nil if no backward pass has reached the parameter yet.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.node.Grad()
}

// ZeroGrad sets the accumulated gradient to zero.
//
// This must be called between training steps; gradients accumulate otherwise.
func (p *Parameter) ZeroGrad() {
	p.node.ZeroGrad()
}

// NumElements returns the number of scalar weights.
func (p *Parameter) NumElements() int {
	return p.node.Value().Size()
}

// load copies src into the parameter after checking its shape.
func (p *Parameter) load(src *tensor.Tensor) error {
	dst := p.Tensor()
	if !src.Shape().Equal(dst.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: expected %v, got %v", p.Name(), dst.Shape(), src.Shape())
	}
	copy(dst.Data(), src.Data())
	return nil
}
