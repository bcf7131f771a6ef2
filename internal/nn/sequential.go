package nn

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input, creating a
// sequential pipeline of transformations.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	    nn.NewLogSoftmax(1),
//	)
//
//	logp, err := model.Forward(g, x)
type Sequential struct {
	modules []Module
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
// Errors are annotated with the index and name of the failing module.
func (s *Sequential) Forward(g *autodiff.Graph, x *autodiff.Node) (*autodiff.Node, error) {
	out := x
	for i, module := range s.modules {
		next, err := module.Forward(g, out)
		if err != nil {
			return nil, errors.WithMessagef(err, "layer %d (%s)", i, module)
		}
		out = next
	}
	return out, nil
}

// Parameters returns all trainable parameters from all modules, in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// NumParameters returns the total number of scalar weights.
func (s *Sequential) NumParameters() int {
	n := 0
	for _, p := range s.Parameters() {
		n += p.NumElements()
	}
	return n
}

// ZeroGrad clears the gradients of every parameter.
func (s *Sequential) ZeroGrad() {
	for _, p := range s.Parameters() {
		p.ZeroGrad()
	}
}

// Add appends a module to the sequence.
func (s *Sequential) Add(module Module) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// StateDict returns parameter tensors keyed "<index>.<name>", e.g. "0.weight".
func (s *Sequential) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for i, module := range s.modules {
		for name, t := range module.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = t
		}
	}
	return stateDict
}

// LoadStateDict loads parameters from a state dictionary produced by StateDict.
// Keys that match no module are ignored.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	for i, module := range s.modules {
		if len(module.Parameters()) == 0 {
			continue
		}

		prefix := fmt.Sprintf("%d.", i)
		moduleStateDict := make(map[string]*tensor.Tensor)
		for key, t := range stateDict {
			if name, ok := strings.CutPrefix(key, prefix); ok {
				moduleStateDict[name] = t
			}
		}

		if err := module.LoadStateDict(moduleStateDict); err != nil {
			return errors.WithMessagef(err, "failed to load module %d", i)
		}
	}
	return nil
}

// String renders a multi-line summary:
//
//	Sequential(
//	  (0): Linear(in=784, out=128)
//	  (1): ReLU()
//	)
func (s *Sequential) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, module := range s.modules {
		fmt.Fprintf(&sb, "  (%d): %s\n", i, module)
	}
	sb.WriteString(")")
	return sb.String()
}
