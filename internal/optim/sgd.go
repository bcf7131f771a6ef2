package optim

import (
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Example:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter][]float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter][]float64),
	}
}

// Name returns "SGD".
func (s *SGD) Name() string { return "SGD" }

// Step performs a single optimization step.
//
// Applies gradient descent update to all parameters:
//   - Without momentum: param -= lr * grad
//   - With momentum: velocity = momentum * velocity + grad, param -= lr * velocity
func (s *SGD) Step() error {
	if err := checkGradients(s.params); err != nil {
		return err
	}

	for _, param := range s.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}
		update := grad.Data()

		if s.momentum != 0 {
			velocity, ok := s.velocities[param]
			if !ok {
				velocity = make([]float64, len(update))
				s.velocities[param] = velocity
			}
			floats.Scale(s.momentum, velocity)
			floats.Add(velocity, update)
			update = velocity
		}

		floats.AddScaled(param.Tensor().Data(), -s.lr, update)
	}
	return nil
}

// ZeroGrad clears all parameter gradients.
func (s *SGD) ZeroGrad() {
	zeroGrad(s.params)
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR sets the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// StateDict exports velocity buffers as "velocity.{param_index}".
// Without momentum, returns an empty map.
func (s *SGD) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	if s.momentum == 0 {
		return stateDict
	}
	saveBuffers(s.params, "velocity", s.velocities, stateDict)
	return stateDict
}

// LoadStateDict restores velocity buffers. Without momentum it is a no-op.
func (s *SGD) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	if s.momentum == 0 {
		return nil
	}
	velocities, err := loadBuffers(s.params, "velocity", stateDict)
	if err != nil {
		return err
	}
	s.velocities = velocities
	return nil
}
