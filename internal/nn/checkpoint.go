package nn

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/serialization"
	"github.com/born-ml/backprop/internal/tensor"
)

const optimizerPrefix = "optimizer."

// ErrOptimizerMismatch reports a checkpoint whose optimizer state belongs to
// a different optimizer type than the one restoring it.
var ErrOptimizerMismatch = errors.New("optimizer mismatch")

// OptimizerState represents an optimizer that can save/load its state.
//
// Checkpoints use this interface to serialize optimizer state without
// importing the optim package.
type OptimizerState interface {
	// Name identifies the optimizer type, e.g. "SGD".
	Name() string

	// StateDict returns the optimizer buffers for serialization.
	StateDict() map[string]*tensor.Tensor

	// LoadStateDict restores optimizer buffers.
	LoadStateDict(stateDict map[string]*tensor.Tensor) error

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Checkpoint represents a training state snapshot.
//
// A checkpoint includes:
//   - Model parameters (weights and biases)
//   - Optimizer state (momentum buffers, Adam moments), if an optimizer is set
//   - Training metadata (epoch, step, loss)
//
// Example:
//
//	ckpt := &nn.Checkpoint{
//	    Model:        model,
//	    Optimizer:    optimizer,
//	    Architecture: nn.FormatArchitecture(specs),
//	    Epoch:        10,
//	    Loss:         0.123,
//	}
//	err := ckpt.Save("epoch_10.born")
type Checkpoint struct {
	Model         Module
	Optimizer     OptimizerState // optional
	Architecture  string         // FormatArchitecture output, lets LoadModel rebuild the model
	OptimizerType string         // Name of the saved optimizer, set by LoadCheckpoint
	Epoch         int
	Step          int64
	Loss          float64
	Metadata      map[string]any
	CreatedAt     time.Time
}

// Save writes the checkpoint to a .born file.
func (c *Checkpoint) Save(path string) error {
	stateDict := make(map[string]*tensor.Tensor)
	for name, t := range c.Model.StateDict() {
		stateDict[name] = t
	}

	meta := &serialization.CheckpointMeta{
		IsCheckpoint: true,
		Epoch:        c.Epoch,
		Step:         c.Step,
		Loss:         c.Loss,
		TrainingMeta: c.Metadata,
	}
	if c.Optimizer != nil {
		for name, t := range c.Optimizer.StateDict() {
			stateDict[optimizerPrefix+name] = t
		}
		meta.OptimizerType = c.Optimizer.Name()
		meta.OptimizerConfig = map[string]any{"lr": c.Optimizer.GetLR()}
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	header := serialization.Header{
		ModelType:      "Sequential",
		Architecture:   c.Architecture,
		CreatedAt:      createdAt,
		CheckpointMeta: meta,
	}
	if err := serialization.WriteFile(path, stateDict, header); err != nil {
		return errors.WithMessage(err, "failed to write checkpoint")
	}
	return nil
}

// LoadCheckpoint restores model (and optimizer, when non-nil) from path.
//
// The model must have been constructed with the same architecture.
func LoadCheckpoint(path string, model Module, optimizer OptimizerState) (*Checkpoint, error) {
	header, stateDict, err := readCheckpoint(path)
	if err != nil {
		return nil, err
	}
	meta := header.CheckpointMeta
	if optimizer != nil && meta.OptimizerType != "" && meta.OptimizerType != optimizer.Name() {
		return nil, errors.Wrapf(ErrOptimizerMismatch,
			"%s holds %s state, cannot restore into %s", path, meta.OptimizerType, optimizer.Name())
	}

	modelState := make(map[string]*tensor.Tensor)
	optimizerState := make(map[string]*tensor.Tensor)
	for name, t := range stateDict {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerState[rest] = t
		} else {
			modelState[name] = t
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, errors.WithMessage(err, "failed to load model state")
	}
	if optimizer != nil && len(optimizerState) > 0 {
		if err := optimizer.LoadStateDict(optimizerState); err != nil {
			return nil, errors.WithMessage(err, "failed to load optimizer state")
		}
	}

	return &Checkpoint{
		Model:         model,
		Optimizer:     optimizer,
		Architecture:  header.Architecture,
		OptimizerType: meta.OptimizerType,
		Epoch:         meta.Epoch,
		Step:          meta.Step,
		Loss:          meta.Loss,
		Metadata:      meta.TrainingMeta,
		CreatedAt:     header.CreatedAt,
	}, nil
}

// LoadModel rebuilds a Sequential from the architecture stored in a
// checkpoint and loads its weights.
func LoadModel(path string) (*Sequential, *Checkpoint, error) {
	header, _, err := readCheckpoint(path)
	if err != nil {
		return nil, nil, err
	}
	if header.Architecture == "" {
		return nil, nil, errors.Wrapf(ErrInvalidArchitecture, "%s records no architecture", path)
	}

	specs, err := ParseArchitecture(header.Architecture)
	if err != nil {
		return nil, nil, err
	}
	model, err := Build(specs, nil)
	if err != nil {
		return nil, nil, err
	}

	ckpt, err := LoadCheckpoint(path, model, nil)
	if err != nil {
		return nil, nil, err
	}
	return model, ckpt, nil
}

func readCheckpoint(path string) (serialization.Header, map[string]*tensor.Tensor, error) {
	reader, err := serialization.NewBornReader(path)
	if err != nil {
		return serialization.Header{}, nil, err
	}
	defer reader.Close()

	header := reader.Header()
	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return serialization.Header{}, nil, errors.Errorf("%s is not a checkpoint", path)
	}

	stateDict, err := reader.ReadStateDict()
	if err != nil {
		return serialization.Header{}, nil, err
	}
	return header, stateDict, nil
}
