// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers, losses and checkpoints.
//
// Layers implement Module: Forward records operations on an autodiff graph
// and Parameters exposes the trainable leaves to an optimizer.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	    nn.NewLogSoftmax(1),
//	)
//	g := autodiff.New(cpu.New())
//	logp, err := model.Forward(g, autodiff.NewLeaf(images))
//	loss, err := nn.NewNLLLoss().Forward(g, logp, labels)
package nn

import (
	"math/rand"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/tensor"
)

// Module is the interface implemented by every layer.
type Module = nn.Module

// Parameter is a named trainable tensor.
type Parameter = nn.Parameter

// Layers.
type (
	Linear       = nn.Linear
	LinearOption = nn.LinearOption
	ReLU         = nn.ReLU
	Sigmoid      = nn.Sigmoid
	LogSoftmax   = nn.LogSoftmax
	Sequential   = nn.Sequential
)

// Losses.
type (
	NLLLoss          = nn.NLLLoss
	CrossEntropyLoss = nn.CrossEntropyLoss
	MSELoss          = nn.MSELoss
)

// Architecture descriptions and checkpoints.
type (
	LayerSpec      = nn.LayerSpec
	Checkpoint     = nn.Checkpoint
	OptimizerState = nn.OptimizerState
)

// ErrInvalidArchitecture reports a description that cannot be built.
var ErrInvalidArchitecture = nn.ErrInvalidArchitecture

// ErrOptimizerMismatch reports a checkpoint saved by a different optimizer type.
var ErrOptimizerMismatch = nn.ErrOptimizerMismatch

// NewParameter creates a trainable parameter from an initialised tensor.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, t)
}

// NewLinear creates a fully connected layer with Xavier-uniform weights (see WithKaimingInit) and a zero bias.
func NewLinear(in, out int, rng *rand.Rand, opts ...LinearOption) *Linear {
	return nn.NewLinear(in, out, rng, opts...)
}

// WithoutBias drops the bias term of a Linear layer.
func WithoutBias() LinearOption {
	return nn.WithoutBias()
}

// WithKaimingInit initialises Linear weights with Kaiming (He) uniform values.
func WithKaimingInit() LinearOption {
	return nn.WithKaimingInit()
}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return nn.NewReLU()
}

// NewSigmoid creates a sigmoid activation.
func NewSigmoid() *Sigmoid {
	return nn.NewSigmoid()
}

// NewLogSoftmax creates a log-softmax over axis.
func NewLogSoftmax(axis int) *LogSoftmax {
	return nn.NewLogSoftmax(axis)
}

// NewSequential chains modules.
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}

// NewNLLLoss creates the negative log-likelihood loss.
func NewNLLLoss() *NLLLoss {
	return nn.NewNLLLoss()
}

// NewCrossEntropyLoss creates LogSoftmax followed by NLLLoss.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return nn.NewCrossEntropyLoss()
}

// NewMSELoss creates the mean squared error loss.
func NewMSELoss() *MSELoss {
	return nn.NewMSELoss()
}

// Accuracy returns the fraction of rows whose argmax equals the target.
func Accuracy(scores *tensor.Tensor, targets []int) (float64, error) {
	return nn.Accuracy(scores, targets)
}

// DefaultArchitecture returns the 784 → 128 → 64 → 10 classifier.
func DefaultArchitecture() []LayerSpec {
	return nn.DefaultArchitecture()
}

// ParseArchitecture parses descriptions such as "linear(784,128),relu,linear(128,10),logsoftmax(1)".
func ParseArchitecture(desc string) ([]LayerSpec, error) {
	return nn.ParseArchitecture(desc)
}

// FormatArchitecture renders specs in the form ParseArchitecture accepts.
func FormatArchitecture(specs []LayerSpec) string {
	return nn.FormatArchitecture(specs)
}

// Build constructs a Sequential from specs.
func Build(specs []LayerSpec, rng *rand.Rand) (*Sequential, error) {
	return nn.Build(specs, rng)
}

// LoadCheckpoint restores model and, when non-nil, optimizer state from path.
func LoadCheckpoint(path string, model Module, optimizer OptimizerState) (*Checkpoint, error) {
	return nn.LoadCheckpoint(path, model, optimizer)
}

// LoadModel rebuilds and loads the model stored in a checkpoint.
func LoadModel(path string) (*Sequential, *Checkpoint, error) {
	return nn.LoadModel(path)
}
