// Package train drives the forward, backward and update cycle over a dataset.
//
// One Trainer owns a model, an optimizer and a single reusable autodiff graph.
// Every Step resets the graph, runs the model, backpropagates the NLL loss,
// applies the optimizer and clears gradients, in that order.
package train

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/backend/cpu"
	"github.com/born-ml/backprop/internal/dataset"
	"github.com/born-ml/backprop/internal/device"
	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/optim"
	"github.com/born-ml/backprop/internal/tensor"
)

// EpochStats summarises one pass over the training set.
type EpochStats struct {
	Epoch     int
	Steps     int64
	TrainLoss float64 // mean batch loss over the epoch
	TestLoss  float64 // zero without a test set
	Accuracy  float64 // zero without a test set
	Elapsed   time.Duration
}

// Trainer runs training and evaluation for a Sequential model.
type Trainer struct {
	cfg       Config
	specs     []nn.LayerSpec
	model     *nn.Sequential
	optimizer optim.Optimizer
	criterion *nn.NLLLoss
	backend   tensor.Backend
	graph     *autodiff.Graph
	logger    *slog.Logger

	epoch int
	step  int64
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithBackend replaces the CPU backend.
func WithBackend(backend tensor.Backend) Option {
	return func(t *Trainer) {
		if backend != nil {
			t.backend = backend
		}
	}
}

// New validates cfg and builds the model and optimizer.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // Weight initialization
	model, err := nn.Build(specs, rng)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to build model")
	}

	t := &Trainer{
		cfg:       cfg,
		specs:     specs,
		model:     model,
		criterion: nn.NewNLLLoss(),
		backend:   cpu.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.graph = autodiff.New(t.backend)
	t.optimizer = newOptimizer(cfg, model.Parameters())
	return t, nil
}

func newOptimizer(cfg Config, params []*nn.Parameter) optim.Optimizer {
	if strings.ToLower(cfg.Optimizer) == OptimizerAdam {
		return optim.NewAdam(params, optim.AdamConfig{LR: cfg.LearningRate})
	}
	return optim.NewSGD(params, optim.SGDConfig{LR: cfg.LearningRate, Momentum: cfg.Momentum})
}

// Model returns the model being trained.
func (t *Trainer) Model() *nn.Sequential { return t.model }

// Optimizer returns the optimizer.
func (t *Trainer) Optimizer() optim.Optimizer { return t.optimizer }

// Architecture returns the compact architecture string.
func (t *Trainer) Architecture() string { return nn.FormatArchitecture(t.specs) }

// Epoch returns the number of completed epochs.
func (t *Trainer) Epoch() int { return t.epoch }

// Steps returns the number of optimizer steps taken.
func (t *Trainer) Steps() int64 { return t.step }

// Step runs one forward, backward and update cycle on a batch and returns the loss.
//
// On error the parameters are unchanged and gradients are cleared.
func (t *Trainer) Step(x *tensor.Tensor, labels []int) (float64, error) {
	t.graph.Reset()
	defer t.optimizer.ZeroGrad()

	logp, err := t.model.Forward(t.graph, batchLeaf(x))
	if err != nil {
		return 0, errors.WithMessage(err, "forward")
	}
	loss, err := t.criterion.Forward(t.graph, logp, labels)
	if err != nil {
		return 0, errors.WithMessage(err, "loss")
	}
	if err := t.graph.Backward(loss); err != nil {
		return 0, errors.WithMessage(err, "backward")
	}
	if err := t.optimizer.Step(); err != nil {
		return 0, errors.WithMessagef(err, "optimizer step %d", t.step+1)
	}

	t.step++
	return loss.Item(), nil
}

// Fit trains until cfg.Epochs epochs are complete, evaluating on test after
// each one when test is non-nil. A resumed trainer continues from its saved
// epoch. Cancellation is checked between batches.
func (t *Trainer) Fit(ctx context.Context, train, test *dataset.Dataset) ([]EpochStats, error) {
	if train == nil || train.Len() == 0 {
		return nil, dataset.ErrEmptyDataset
	}

	loader := dataset.NewLoader(train, t.cfg.BatchSize, true, t.cfg.Seed)
	t.logger.Info("training started",
		"architecture", t.Architecture(),
		"parameters", t.model.NumParameters(),
		"optimizer", t.optimizer.Name(),
		"lr", t.optimizer.GetLR(),
		"samples", train.Len(),
		"batches", loader.NumBatches(),
		"device", device.Detect(),
	)

	history := make([]EpochStats, 0, t.cfg.Epochs)
	for t.epoch < t.cfg.Epochs {
		start := time.Now()
		loader.Reset()

		running, batches := 0.0, 0
		for loader.Next() {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			x, y := loader.Batch()
			loss, err := t.Step(x, y)
			if err != nil {
				return history, errors.WithMessagef(err, "epoch %d", t.epoch+1)
			}
			running += loss
			batches++

			if t.cfg.LogEvery > 0 && t.step%int64(t.cfg.LogEvery) == 0 {
				t.logger.Debug("step", "epoch", t.epoch+1, "step", t.step, "training_loss", running/float64(batches))
			}
		}
		if err := loader.Err(); err != nil {
			return history, err
		}
		t.epoch++

		stats := EpochStats{
			Epoch:     t.epoch,
			Steps:     t.step,
			TrainLoss: running / float64(batches),
		}
		if test != nil && test.Len() > 0 {
			testLoss, acc, err := t.Evaluate(test)
			if err != nil {
				return history, err
			}
			stats.TestLoss, stats.Accuracy = testLoss, acc
		}
		stats.Elapsed = time.Since(start)
		history = append(history, stats)

		t.logger.Info("epoch complete",
			"epoch", fmt.Sprintf("%d/%d", stats.Epoch, t.cfg.Epochs),
			"training_loss", stats.TrainLoss,
			"test_loss", stats.TestLoss,
			"accuracy", stats.Accuracy,
			"elapsed", stats.Elapsed.Round(time.Millisecond),
		)

		if t.cfg.CheckpointDir != "" {
			path := filepath.Join(t.cfg.CheckpointDir, fmt.Sprintf("epoch_%03d.born", t.epoch))
			if err := t.Save(path, stats.TrainLoss); err != nil {
				return history, err
			}
			t.logger.Info("checkpoint saved", "path", path)
		}
	}
	return history, nil
}

// Evaluate returns the mean NLL loss and accuracy over data without
// recording any gradient information.
func (t *Trainer) Evaluate(data *dataset.Dataset) (loss, accuracy float64, err error) {
	if data.Len() == 0 {
		return 0, 0, dataset.ErrEmptyDataset
	}

	loader := dataset.NewLoader(data, t.cfg.BatchSize, false, 0)
	var totalLoss float64
	var correct float64
	for loader.Next() {
		x, y := loader.Batch()
		t.graph.Reset()
		err := t.graph.NoGrad(func() error {
			logp, err := t.model.Forward(t.graph, batchLeaf(x))
			if err != nil {
				return err
			}
			l, err := t.criterion.Forward(t.graph, logp, y)
			if err != nil {
				return err
			}
			acc, err := nn.Accuracy(logp.Value(), y)
			if err != nil {
				return err
			}
			n := float64(len(y))
			totalLoss += l.Item() * n
			correct += acc * n
			return nil
		})
		if err != nil {
			return 0, 0, errors.WithMessage(err, "evaluate")
		}
	}
	if err := loader.Err(); err != nil {
		return 0, 0, err
	}

	n := float64(data.Len())
	return totalLoss / n, correct / n, nil
}

// Predict returns class probabilities, shape (batch, classes), for x.
// The model's log-probabilities are exponentiated inside a no-grad scope.
func (t *Trainer) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	return Predict(t.graph, t.model, x)
}

// batchLeaf wraps an input batch so shape errors name it.
func batchLeaf(x *tensor.Tensor) *autodiff.Node {
	return autodiff.NewLeaf(x).SetName("batch")
}

// Predict runs model on x without tracking and returns exp(output).
func Predict(g *autodiff.Graph, model nn.Module, x *tensor.Tensor) (*tensor.Tensor, error) {
	g.Reset()
	var probs *tensor.Tensor
	err := g.NoGrad(func() error {
		logp, err := model.Forward(g, batchLeaf(x))
		if err != nil {
			return err
		}
		p, err := g.Exp(logp)
		if err != nil {
			return err
		}
		probs = p.Value()
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "predict")
	}
	return probs, nil
}

// Save writes a checkpoint with model weights, optimizer state and progress.
func (t *Trainer) Save(path string, loss float64) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, "failed to create checkpoint directory")
		}
	}
	ckpt := &nn.Checkpoint{
		Model:        t.model,
		Optimizer:    t.optimizer,
		Architecture: t.Architecture(),
		Epoch:        t.epoch,
		Step:         t.step,
		Loss:         loss,
		Metadata: map[string]any{
			"batch_size": t.cfg.BatchSize,
			"seed":       t.cfg.Seed,
			"data_mean":  t.cfg.Data.Mean,
			"data_std":   t.cfg.Data.Std,
		},
	}
	return ckpt.Save(path)
}

// Resume restores weights, optimizer state and progress from a checkpoint
// written by Save. The architecture and optimizer type must match; a
// checkpoint from another optimizer fails with nn.ErrOptimizerMismatch.
func (t *Trainer) Resume(path string) error {
	ckpt, err := nn.LoadCheckpoint(path, t.model, t.optimizer)
	if err != nil {
		return err
	}
	if ckpt.Architecture != "" && ckpt.Architecture != t.Architecture() {
		return errors.Wrapf(nn.ErrInvalidArchitecture,
			"checkpoint has %s, trainer has %s", ckpt.Architecture, t.Architecture())
	}
	t.epoch = ckpt.Epoch
	t.step = ckpt.Step
	t.logger.Info("resumed", "path", path, "epoch", t.epoch, "step", t.step)
	return nil
}
