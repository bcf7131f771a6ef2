package train

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/backprop/internal/dataset"
	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/tensor"
)

const smallArch = "linear(784,32),relu,linear(32,10),logsoftmax(1)"

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Architecture = smallArch
	cfg.Optimizer = OptimizerAdam
	cfg.LearningRate = 0.01
	cfg.BatchSize = 16
	cfg.Epochs = 3
	cfg.LogEvery = 5
	return cfg
}

func syntheticSplit(t *testing.T, n int) (*dataset.Dataset, *dataset.Dataset) {
	t.Helper()
	d := dataset.Synthetic(n, rand.New(rand.NewSource(7)))
	require.NoError(t, d.Normalize(0.5, 0.5))
	train, test, err := d.Split(0.8)
	require.NoError(t, err)
	return train, test
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	specs, err := cfg.Specs()
	require.NoError(t, err)
	assert.Equal(t, nn.DefaultArchitecture(), specs)
	assert.Equal(t, OptimizerSGD, cfg.Optimizer)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero lr", func(c *Config) { c.LearningRate = 0 }},
		{"momentum one", func(c *Config) { c.Momentum = 1 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"zero epochs", func(c *Config) { c.Epochs = 0 }},
		{"negative log interval", func(c *Config) { c.LogEvery = -1 }},
		{"zero std", func(c *Config) { c.Data.Std = 0 }},
		{"unknown optimizer", func(c *Config) { c.Optimizer = "lbfgs" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
		})
	}

	for _, arch := range []string{
		"linear(784,0)",
		"linear(784,10)",
		"linear(784,10),relu",
		"linear(784,10),logsoftmax(0)",
		"logsoftmax(1),linear(784,10)",
	} {
		cfg := DefaultConfig()
		cfg.Architecture = arch
		assert.True(t, errors.Is(cfg.Validate(), nn.ErrInvalidArchitecture), "%q", arch)
	}

	cfg := DefaultConfig()
	cfg.Architecture = "linear(784,10),logsoftmax(-1)"
	assert.NoError(t, cfg.Validate())
}

func TestNew_RequiresLogSoftmaxHead(t *testing.T) {
	cfg := smallConfig()
	cfg.Architecture = "linear(784,10)"
	_, err := New(cfg)
	assert.True(t, errors.Is(err, nn.ErrInvalidArchitecture), "%v", err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
optimizer: adam
learning_rate: 0.001
epochs: 2
layers:
  - {type: linear, in: 784, out: 16}
  - {type: sigmoid}
  - {type: linear, in: 16, out: 10}
  - {type: logsoftmax, dim: 1}
data:
  synthetic: 100
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, OptimizerAdam, cfg.Optimizer)
	assert.InDelta(t, 0.001, cfg.LearningRate, 0)
	assert.Equal(t, 2, cfg.Epochs)
	assert.Equal(t, 64, cfg.BatchSize, "unset fields keep defaults")
	assert.InDelta(t, 0.5, cfg.Data.Std, 0)
	assert.Equal(t, 100, cfg.Data.Synthetic)

	specs, err := cfg.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 4)
	assert.Equal(t, "linear(784,16),sigmoid,linear(16,10),logsoftmax(1)", nn.FormatArchitecture(specs))

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "learning_rate: 0.001")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("epochs: [1"), 0o600))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTrainer_Step(t *testing.T) {
	trainer, err := New(smallConfig())
	require.NoError(t, err)
	assert.Equal(t, smallArch, trainer.Architecture())

	d := dataset.Synthetic(8, nil)
	x, y, err := d.Batch([]int{0, 1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)

	first, err := trainer.Step(x, y)
	require.NoError(t, err)
	var last float64
	for i := 0; i < 10; i++ {
		last, err = trainer.Step(x, y)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
	assert.Equal(t, int64(11), trainer.Steps())

	for _, p := range trainer.Model().Parameters() {
		require.NotNil(t, p.Grad())
		assert.Equal(t, 0.0, floats.Norm(p.Grad().Data(), 2), "%s gradient must be cleared", p.Name())
	}
}

func TestTrainer_StepShapeMismatch(t *testing.T) {
	trainer, err := New(smallConfig())
	require.NoError(t, err)

	_, err = trainer.Step(tensor.Zeros(tensor.Shape{2, 10}), []int{0, 1})
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))
	assert.Contains(t, err.Error(), "expected batch of shape [batch, 784]")
	assert.Equal(t, int64(0), trainer.Steps())

	_, err = trainer.Step(tensor.Zeros(tensor.Shape{2, 784}), []int{0, 10})
	assert.True(t, errors.Is(err, tensor.ErrIndexOutOfRange))
}

func TestTrainer_Fit(t *testing.T) {
	train, test := syntheticSplit(t, 400)

	var logs bytes.Buffer
	cfg := smallConfig()
	cfg.CheckpointDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	trainer, err := New(cfg, WithLogger(logger))
	require.NoError(t, err)

	history, err := trainer.Fit(context.Background(), train, test)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Less(t, history[2].TrainLoss, history[0].TrainLoss)
	assert.Greater(t, history[2].Accuracy, 0.5)
	assert.Equal(t, 3, trainer.Epoch())
	assert.Equal(t, int64(3*20), trainer.Steps())

	assert.Contains(t, logs.String(), "training started")
	assert.Contains(t, logs.String(), "epoch complete")
	assert.Contains(t, logs.String(), "training_loss=")

	for epoch := 1; epoch <= 3; epoch++ {
		assert.FileExists(t, filepath.Join(cfg.CheckpointDir, fmt.Sprintf("epoch_%03d.born", epoch)))
	}

	// A resumed trainer sees the same weights and stops at the configured epoch count.
	resumed, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, resumed.Resume(filepath.Join(cfg.CheckpointDir, "epoch_003.born")))
	assert.Equal(t, 3, resumed.Epoch())
	assert.Equal(t, trainer.Steps(), resumed.Steps())

	wantLoss, wantAcc, err := trainer.Evaluate(test)
	require.NoError(t, err)
	gotLoss, gotAcc, err := resumed.Evaluate(test)
	require.NoError(t, err)
	assert.InDelta(t, wantLoss, gotLoss, 1e-12)
	assert.InDelta(t, wantAcc, gotAcc, 1e-12)

	more, err := resumed.Fit(context.Background(), train, nil)
	require.NoError(t, err)
	assert.Empty(t, more)
}

func TestTrainer_FitCancelled(t *testing.T) {
	train, _ := syntheticSplit(t, 50)
	trainer, err := New(smallConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainer.Fit(ctx, train, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int64(0), trainer.Steps())

	_, err = trainer.Fit(context.Background(), &dataset.Dataset{}, nil)
	assert.True(t, errors.Is(err, dataset.ErrEmptyDataset))
}

func TestTrainer_ResumeMismatch(t *testing.T) {
	trainer, err := New(smallConfig())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "ckpt.born")
	require.NoError(t, trainer.Save(path, 1.5))

	cfg := smallConfig()
	cfg.Architecture = "linear(784,10),logsoftmax(1)"
	other, err := New(cfg)
	require.NoError(t, err)
	assert.Error(t, other.Resume(path))
}

func TestTrainer_ResumeOptimizerMismatch(t *testing.T) {
	tests := []struct {
		saved, resumed string
	}{
		{OptimizerSGD, OptimizerAdam},
		{OptimizerAdam, OptimizerSGD},
	}
	for _, tt := range tests {
		t.Run(tt.saved+"_into_"+tt.resumed, func(t *testing.T) {
			cfg := smallConfig()
			cfg.Optimizer = tt.saved
			cfg.Momentum = 0.9
			trainer, err := New(cfg)
			require.NoError(t, err)
			train, _ := syntheticSplit(t, 40)
			x, y, err := train.Batch([]int{0, 1, 2, 3})
			require.NoError(t, err)
			_, err = trainer.Step(x, y)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "ckpt.born")
			require.NoError(t, trainer.Save(path, 1))

			cfg.Optimizer = tt.resumed
			other, err := New(cfg)
			require.NoError(t, err)
			err = other.Resume(path)
			assert.True(t, errors.Is(err, nn.ErrOptimizerMismatch), "%v", err)
			assert.Equal(t, int64(0), other.Steps())

			cfg.Optimizer = tt.saved
			same, err := New(cfg)
			require.NoError(t, err)
			require.NoError(t, same.Resume(path))
			assert.Equal(t, int64(1), same.Steps())
		})
	}
}

func TestTrainer_Predict(t *testing.T) {
	trainer, err := New(smallConfig())
	require.NoError(t, err)

	d := dataset.Synthetic(5, nil)
	x, _, err := d.Batch([]int{0, 1, 2, 3, 4})
	require.NoError(t, err)

	probs, err := trainer.Predict(x)
	require.NoError(t, err)
	require.True(t, probs.Shape().Equal(tensor.Shape{5, 10}))
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 1.0, floats.Sum(probs.Row(i)), 1e-9)
	}
	for _, p := range trainer.Model().Parameters() {
		assert.Nil(t, p.Grad(), "prediction must not touch gradients")
	}
}
