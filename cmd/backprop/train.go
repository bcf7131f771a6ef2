package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/dataset"
	"github.com/born-ml/backprop/internal/train"
)

func runTrain(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := train.DefaultConfig()
	configPath := fs.String("config", "", "YAML config file (flags override it)")
	dataDir := fs.String("data", "", "directory with MNIST IDX files")
	synthetic := fs.Int("synthetic", 0, "train on N generated samples instead of -data")
	arch := fs.String("arch", "", "architecture, e.g. "+defaults.Architecture)
	optimizer := fs.String("optimizer", "", "sgd or adam")
	lr := fs.Float64("lr", 0, "learning rate")
	momentum := fs.Float64("momentum", -1, "SGD momentum")
	batch := fs.Int("batch", 0, "batch size")
	epochs := fs.Int("epochs", 0, "number of epochs")
	seed := fs.Int64("seed", 0, "random seed")
	maxTrain := fs.Int("max-train", 0, "limit training samples (0 = all)")
	maxTest := fs.Int("max-test", 0, "limit test samples (0 = all)")
	ckptDir := fs.String("checkpoint-dir", "", "write a checkpoint after every epoch")
	resume := fs.String("resume", "", "resume from checkpoint")
	out := fs.String("out", "model.born", "final checkpoint path")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaults
	if *configPath != "" {
		var err error
		if cfg, err = train.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	// Only explicitly set flags override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data.Dir = *dataDir
		case "synthetic":
			cfg.Data.Synthetic = *synthetic
		case "arch":
			cfg.Architecture, cfg.Layers = *arch, nil
		case "optimizer":
			cfg.Optimizer = *optimizer
		case "lr":
			cfg.LearningRate = *lr
		case "momentum":
			cfg.Momentum = *momentum
		case "batch":
			cfg.BatchSize = *batch
		case "epochs":
			cfg.Epochs = *epochs
		case "seed":
			cfg.Seed = *seed
		case "max-train":
			cfg.Data.MaxTrain = *maxTrain
		case "max-test":
			cfg.Data.MaxTest = *maxTest
		case "checkpoint-dir":
			cfg.CheckpointDir = *ckptDir
		}
	})

	logger := newLogger(stderr, *verbose)
	trainer, err := train.New(cfg, train.WithLogger(logger))
	if err != nil {
		return err
	}
	if *resume != "" {
		if err := trainer.Resume(*resume); err != nil {
			return err
		}
	}

	trainSet, testSet, err := loadData(cfg)
	if err != nil {
		return err
	}
	logger.Info("data loaded", "train", trainSet.Len(), "test", testSet.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	history, err := trainer.Fit(ctx, trainSet, testSet)
	if err != nil {
		return err
	}

	var last train.EpochStats
	if len(history) > 0 {
		last = history[len(history)-1]
	}
	if err := trainer.Save(*out, last.TrainLoss); err != nil {
		return err
	}
	logger.Info("model saved", "path", *out)

	fmt.Fprintf(stdout, "epochs=%d steps=%d training_loss=%.4f test_loss=%.4f accuracy=%.2f%%\n",
		trainer.Epoch(), trainer.Steps(), last.TrainLoss, last.TestLoss, last.Accuracy*100)
	return nil
}

// loadData returns normalized training and test sets for cfg.
func loadData(cfg train.Config) (trainSet, testSet *dataset.Dataset, err error) {
	if cfg.Data.Synthetic > 0 {
		all := dataset.Synthetic(cfg.Data.Synthetic, rand.New(rand.NewSource(cfg.Seed))) //nolint:gosec // Demo data
		if trainSet, testSet, err = all.Split(0.8); err != nil {
			return nil, nil, err
		}
	} else {
		if cfg.Data.Dir == "" {
			return nil, nil, errors.New("either -data or -synthetic is required")
		}
		if trainSet, err = dataset.Load(cfg.Data.Dir, true, cfg.Data.MaxTrain); err != nil {
			return nil, nil, err
		}
		if testSet, err = dataset.Load(cfg.Data.Dir, false, cfg.Data.MaxTest); err != nil {
			return nil, nil, err
		}
	}

	for _, d := range []*dataset.Dataset{trainSet, testSet} {
		if err := d.Normalize(cfg.Data.Mean, cfg.Data.Std); err != nil {
			return nil, nil, err
		}
	}
	return trainSet, testSet, nil
}
