// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with optional momentum
//   - Adam: Adaptive Moment Estimation
//
// Design inspired by PyTorch's torch.optim.
//
// Optimizers never clear gradients on their own. Call ZeroGrad after every
// Step, otherwise the next backward pass adds to the old gradients.
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})
//
//	for batch := range batches {
//	    g := autodiff.New(backend)
//	    logp, _ := model.Forward(g, autodiff.NewLeaf(batch.X))
//	    loss, _ := criterion.Forward(g, logp, batch.Y)
//	    if err := g.Backward(loss); err != nil {
//	        return err
//	    }
//	    if err := optimizer.Step(); err != nil {
//	        return err
//	    }
//	    optimizer.ZeroGrad()
//	}
package optim

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters
//   - ZeroGrad: Clear gradients before next iteration
//   - GetLR / SetLR: Read or change the learning rate
//
// Optimizers also satisfy nn.OptimizerState so checkpoints can store them.
type Optimizer interface {
	nn.OptimizerState

	// Step updates every parameter that has a gradient.
	//
	// Parameters a backward pass never reached are skipped. A non-finite
	// gradient aborts the step with tensor.ErrNumericalInstability before
	// any parameter is modified.
	Step() error

	// ZeroGrad sets all parameter gradients to zero.
	ZeroGrad()

	// SetLR changes the learning rate.
	SetLR(lr float64)
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// checkGradients verifies that every available gradient is finite.
func checkGradients(params []*nn.Parameter) error {
	for _, p := range params {
		grad := p.Grad()
		if grad == nil {
			continue
		}
		for _, v := range grad.Data() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(tensor.ErrNumericalInstability, "non-finite gradient for %s", p.Name())
			}
		}
	}
	return nil
}

// zeroGrad clears the gradients of params.
func zeroGrad(params []*nn.Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// stateKey names a per-parameter buffer, e.g. "velocity.3".
func stateKey(kind string, index int) string {
	return fmt.Sprintf("%s.%d", kind, index)
}

// loadBuffers restores per-parameter buffers saved under kind.
func loadBuffers(params []*nn.Parameter, kind string, stateDict map[string]*tensor.Tensor) (map[*nn.Parameter][]float64, error) {
	buffers := make(map[*nn.Parameter][]float64)
	for i, p := range params {
		t, ok := stateDict[stateKey(kind, i)]
		if !ok {
			continue
		}
		if !t.Shape().Equal(p.Tensor().Shape()) {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"%s shape mismatch for parameter %d: expected %v, got %v", kind, i, p.Tensor().Shape(), t.Shape())
		}
		buffers[p] = append([]float64(nil), t.Data()...)
	}
	return buffers, nil
}

// saveBuffers exports per-parameter buffers under kind.
func saveBuffers(params []*nn.Parameter, kind string, buffers map[*nn.Parameter][]float64, stateDict map[string]*tensor.Tensor) {
	for i, p := range params {
		buf, ok := buffers[p]
		if !ok {
			continue
		}
		t, err := tensor.FromSlice(buf, p.Tensor().Shape())
		if err != nil {
			panic(err) // buffers always match their parameter
		}
		stateDict[stateKey(kind, i)] = t
	}
}
