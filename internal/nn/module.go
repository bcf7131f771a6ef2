// Package nn implements neural network modules on top of the autodiff graph.
//
// This package provides building blocks for constructing neural networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Trainable parameters with gradient tracking
//   - Linear: Fully connected layer
//   - Activations: ReLU, Sigmoid, LogSoftmax
//   - Loss functions: NLLLoss, CrossEntropyLoss, MSELoss
//   - Sequential: Container for stacking layers
//   - LayerSpec: Architecture descriptions that Build turns into a Sequential
//
// Design inspired by PyTorch's nn.Module.
package nn

import (
	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Record the module's operations on g and return the output node
//   - Parameters: Return all trainable parameters
//   - StateDict / LoadStateDict: Export and restore parameter values
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	)
type Module interface {
	// Forward computes the output of the module for input x.
	//
	// For example, Linear expects x with shape [batch_size, in_features].
	Forward(g *autodiff.Graph, x *autodiff.Node) (*autodiff.Node, error)

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter

	// StateDict returns parameter tensors keyed by local name ("weight", "bias").
	StateDict() map[string]*tensor.Tensor

	// LoadStateDict copies values from stateDict into the module parameters.
	LoadStateDict(stateDict map[string]*tensor.Tensor) error

	// String returns a one-line description such as "Linear(in=784, out=128)".
	String() string
}
