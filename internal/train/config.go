package train

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/backprop/internal/nn"
)

// Optimizer names accepted by Config.Optimizer.
const (
	OptimizerSGD  = "sgd"
	OptimizerAdam = "adam"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid training config")

// Config holds every knob of a training run.
//
// The model is described either by Layers (a YAML list of nn.LayerSpec) or
// by the compact Architecture string; Layers wins when both are set.
//
// Example YAML:
//
//	architecture: linear(784,128),relu,linear(128,64),relu,linear(64,10),logsoftmax(1)
//	optimizer: sgd
//	learning_rate: 0.003
//	batch_size: 64
//	epochs: 5
//	data:
//	  dir: ./data/mnist
//	  mean: 0.5
//	  std: 0.5
type Config struct {
	Architecture string         `yaml:"architecture,omitempty"`
	Layers       []nn.LayerSpec `yaml:"layers,omitempty"`

	Optimizer    string  `yaml:"optimizer"`
	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum,omitempty"`

	BatchSize int   `yaml:"batch_size"`
	Epochs    int   `yaml:"epochs"`
	Seed      int64 `yaml:"seed"`
	LogEvery  int   `yaml:"log_every"` // log the running loss every N steps, 0 = per epoch only

	CheckpointDir string `yaml:"checkpoint_dir,omitempty"`

	Data DataConfig `yaml:"data"`
}

// DataConfig selects and preprocesses the dataset.
type DataConfig struct {
	Dir       string  `yaml:"dir,omitempty"`       // directory with the IDX files
	MaxTrain  int     `yaml:"max_train,omitempty"` // 0 = all
	MaxTest   int     `yaml:"max_test,omitempty"`  // 0 = all
	Synthetic int     `yaml:"synthetic,omitempty"` // generate N samples instead of reading Dir
	Mean      float64 `yaml:"mean"`
	Std       float64 `yaml:"std"`
}

// DefaultConfig returns the classic digit-classifier recipe:
// 784 → 128 → 64 → 10, plain SGD at 0.003, batches of 64, five epochs.
func DefaultConfig() Config {
	return Config{
		Architecture: nn.FormatArchitecture(nn.DefaultArchitecture()),
		Optimizer:    OptimizerSGD,
		LearningRate: 0.003,
		BatchSize:    64,
		Epochs:       5,
		Seed:         42,
		LogEvery:     100,
		Data: DataConfig{
			Mean: 0.5,
			Std:  0.5,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", path)
	}
	if len(cfg.Layers) > 0 {
		cfg.Architecture = ""
	}
	return cfg, cfg.Validate()
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	return out, errors.Wrap(err, "failed to encode config")
}

// Specs returns the layer list the config describes.
func (c Config) Specs() ([]nn.LayerSpec, error) {
	if len(c.Layers) > 0 {
		return c.Layers, nil
	}
	if strings.TrimSpace(c.Architecture) == "" {
		return nn.DefaultArchitecture(), nil
	}
	return nn.ParseArchitecture(c.Architecture)
}

// Validate checks ranges and the architecture.
func (c Config) Validate() error {
	switch {
	case c.LearningRate <= 0:
		return errors.Wrapf(ErrInvalidConfig, "learning_rate must be positive, got %g", c.LearningRate)
	case c.Momentum < 0 || c.Momentum >= 1:
		return errors.Wrapf(ErrInvalidConfig, "momentum must be in [0, 1), got %g", c.Momentum)
	case c.BatchSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "batch_size must be positive, got %d", c.BatchSize)
	case c.Epochs <= 0:
		return errors.Wrapf(ErrInvalidConfig, "epochs must be positive, got %d", c.Epochs)
	case c.LogEvery < 0:
		return errors.Wrapf(ErrInvalidConfig, "log_every must not be negative, got %d", c.LogEvery)
	case c.Data.Std == 0:
		return errors.Wrap(ErrInvalidConfig, "data.std must be non-zero")
	}

	switch strings.ToLower(c.Optimizer) {
	case OptimizerSGD, OptimizerAdam:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown optimizer %q", c.Optimizer)
	}

	specs, err := c.Specs()
	if err != nil {
		return err
	}
	for _, s := range specs {
		if s.Type == nn.LayerLinear && (s.In <= 0 || s.Out <= 0) {
			return errors.Wrapf(nn.ErrInvalidArchitecture, "%s", s)
		}
	}

	// The trainer's NLL loss expects log-probabilities over the class axis.
	if len(specs) == 0 {
		return errors.Wrap(nn.ErrInvalidArchitecture, "no layers")
	}
	if last := specs[len(specs)-1]; last.Type != nn.LayerLogSoftmax || (last.Dim != 1 && last.Dim != -1) {
		return errors.Wrapf(nn.ErrInvalidArchitecture,
			"last layer must be logsoftmax(1) for the NLL loss, got %s", last)
	}
	return nil
}
