package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/backend/cpu"
	"github.com/born-ml/backprop/internal/dataset"
	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/train"
	"github.com/born-ml/backprop/internal/viz"
)

func runPredict(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)

	modelPath := fs.String("model", "model.born", "checkpoint written by train")
	dataDir := fs.String("data", "", "directory with MNIST IDX files (test split is used)")
	synthetic := fs.Int("synthetic", 0, "classify N generated samples instead of -data")
	seed := fs.Int64("seed", 1, "seed for -synthetic")
	index := fs.Int("index", 0, "first sample to classify")
	count := fs.Int("count", 1, "number of samples to classify")
	if err := fs.Parse(args); err != nil {
		return err
	}

	model, ckpt, err := nn.LoadModel(*modelPath)
	if err != nil {
		return err
	}

	var data *dataset.Dataset
	switch {
	case *synthetic > 0:
		data = dataset.Synthetic(*synthetic, rand.New(rand.NewSource(*seed))) //nolint:gosec // Demo data
	case *dataDir != "":
		if data, err = dataset.Load(*dataDir, false, 0); err != nil {
			return err
		}
	default:
		return errors.New("either -data or -synthetic is required")
	}

	mean, std := normalization(ckpt)
	if err := data.Normalize(mean, std); err != nil {
		return err
	}

	if *index < 0 || *count < 1 || *index+*count > data.Len() {
		return errors.Errorf("samples [%d, %d) outside dataset of %d", *index, *index+*count, data.Len())
	}
	indices := make([]int, *count)
	for i := range indices {
		indices[i] = *index + i
	}
	x, labels, err := data.Batch(indices)
	if err != nil {
		return err
	}

	probs, err := train.Predict(autodiff.New(cpu.New()), model, x)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "model: %s (epoch %d)\n\n", ckpt.Architecture, ckpt.Epoch)
	for i, idx := range indices {
		fmt.Fprintf(stdout, "sample %d\n", idx)
		if err := viz.ViewClassify(stdout, data.Image(idx), data.Rows, data.Cols, probs.Row(i), labels[i]); err != nil {
			return err
		}
		fmt.Fprintln(stdout)
	}
	return nil
}

// normalization returns the mean and std the checkpoint was trained with,
// falling back to the training defaults.
func normalization(ckpt *nn.Checkpoint) (mean, std float64) {
	d := train.DefaultConfig().Data
	mean, std = d.Mean, d.Std
	if v, ok := ckpt.Metadata["data_mean"].(float64); ok {
		mean = v
	}
	if v, ok := ckpt.Metadata["data_std"].(float64); ok && v != 0 {
		std = v
	}
	return mean, std
}
