// Package dataset loads handwritten-digit images and serves them as
// mini-batches of float64 tensors.
//
// The on-disk format is the MNIST IDX layout, optionally gzip-compressed.
// Pixels are scaled to [0, 1] on load; Normalize applies the usual
// (x - mean) / std transform afterwards.
package dataset

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/parallel"
	"github.com/born-ml/backprop/internal/tensor"
)

// NumClasses is the number of digit classes.
const NumClasses = 10

// Standard MNIST image size.
const (
	ImageRows = 28
	ImageCols = 28
)

// ErrEmptyDataset is returned when an operation needs at least one sample.
var ErrEmptyDataset = errors.New("dataset is empty")

// Dataset holds images and labels in memory.
//
// Images is flattened: sample i occupies Images[i*Features() : (i+1)*Features()].
type Dataset struct {
	Images []float64
	Labels []int
	Rows   int
	Cols   int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Features returns the number of pixels per image.
func (d *Dataset) Features() int {
	return d.Rows * d.Cols
}

// Image returns the pixels of sample i as a sub-slice of Images.
func (d *Dataset) Image(i int) []float64 {
	n := d.Features()
	return d.Images[i*n : (i+1)*n]
}

// Batch gathers the given samples into a (len(indices), Features()) tensor
// and the matching labels.
func (d *Dataset) Batch(indices []int) (*tensor.Tensor, []int, error) {
	if len(indices) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	n := d.Features()
	x, err := tensor.New(tensor.Shape{len(indices), n})
	if err != nil {
		return nil, nil, err
	}
	labels := make([]int, len(indices))
	dst := x.Data()
	for row, idx := range indices {
		if idx < 0 || idx >= d.Len() {
			return nil, nil, errors.Wrapf(tensor.ErrIndexOutOfRange, "sample %d of %d", idx, d.Len())
		}
		copy(dst[row*n:(row+1)*n], d.Image(idx))
		labels[row] = d.Labels[idx]
	}
	return x, labels, nil
}

// Normalize applies (x - mean) / std to every pixel in place.
func (d *Dataset) Normalize(mean, std float64) error {
	if std == 0 {
		return errors.New("normalize: std must be non-zero")
	}
	pixels := d.Images
	parallel.ForRange(len(pixels), func(start, end int) {
		for i := start; i < end; i++ {
			pixels[i] = (pixels[i] - mean) / std
		}
	}, parallel.DefaultConfig())
	return nil
}

// Split divides the dataset into two parts, the first holding
// round(ratio * Len()) samples. The parts share the backing arrays.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, errors.Errorf("split ratio %g outside (0, 1)", ratio)
	}
	cut := int(float64(d.Len())*ratio + 0.5)
	n := d.Features()
	first := &Dataset{Images: d.Images[:cut*n], Labels: d.Labels[:cut], Rows: d.Rows, Cols: d.Cols}
	second := &Dataset{Images: d.Images[cut*n:], Labels: d.Labels[cut:], Rows: d.Rows, Cols: d.Cols}
	return first, second, nil
}

// FileNames returns the image and label file names for the training or test split.
func FileNames(train bool) (images, labels string) {
	if train {
		return "train-images-idx3-ubyte", "train-labels-idx1-ubyte"
	}
	return "t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte"
}

// Load reads the training or test split from dir.
//
// Each file is looked up as-is and with a ".gz" suffix. maxSamples > 0 truncates
// the dataset. Pixels are scaled to [0, 1].
func Load(dir string, train bool, maxSamples int) (*Dataset, error) {
	imageName, labelName := FileNames(train)

	pixels, count, rows, cols, err := loadImages(filepath.Join(dir, imageName))
	if err != nil {
		return nil, err
	}
	labels, err := loadLabels(filepath.Join(dir, labelName))
	if err != nil {
		return nil, err
	}
	if count != len(labels) {
		return nil, errors.Wrapf(ErrInvalidIDX, "image count (%d) != label count (%d)", count, len(labels))
	}

	if maxSamples > 0 && count > maxSamples {
		count = maxSamples
	}
	return FromBytes(pixels[:count*rows*cols], labels[:count], rows, cols)
}

// FromBytes builds a dataset from raw 0-255 pixels and byte labels.
func FromBytes(pixels, labels []byte, rows, cols int) (*Dataset, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(pixels) != len(labels)*rows*cols {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"%d pixels for %d images of %dx%d", len(pixels), len(labels), rows, cols)
	}

	d := &Dataset{
		Images: make([]float64, len(pixels)),
		Labels: make([]int, len(labels)),
		Rows:   rows,
		Cols:   cols,
	}
	for i, p := range pixels {
		d.Images[i] = float64(p) / 255
	}
	for i, l := range labels {
		if int(l) >= NumClasses {
			return nil, errors.Wrapf(tensor.ErrIndexOutOfRange, "label %d at sample %d", l, i)
		}
		d.Labels[i] = int(l)
	}
	return d, nil
}

func loadImages(path string) ([]byte, int, int, int, error) {
	r, err := openFirst(path)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer r.Close()

	pixels, count, rows, cols, err := ReadIDXImages(r)
	if err != nil {
		return nil, 0, 0, 0, errors.WithMessagef(err, "failed to load images from %s", path)
	}
	return pixels, count, rows, cols, nil
}

func loadLabels(path string) ([]byte, error) {
	r, err := openFirst(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	labels, err := ReadIDXLabels(r)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load labels from %s", path)
	}
	return labels, nil
}

// openFirst opens path, or path + ".gz" when only the compressed file exists.
func openFirst(path string) (io.ReadCloser, error) {
	if _, err := os.Stat(path); err == nil {
		return openIDX(path)
	}
	return openIDX(path + ".gz")
}

// Synthetic generates n labelled images of the standard size.
//
// Every digit class has its own fixed stroke pattern (a horizontal band whose
// position depends on the label) plus uniform noise, so a small network can
// learn to separate the classes. Used by tests and offline demos.
func Synthetic(n int, rng *rand.Rand) *Dataset {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // Deterministic demo data
	}
	d := &Dataset{
		Images: make([]float64, n*ImageRows*ImageCols),
		Labels: make([]int, n),
		Rows:   ImageRows,
		Cols:   ImageCols,
	}
	for i := 0; i < n; i++ {
		label := rng.Intn(NumClasses)
		d.Labels[i] = label
		img := d.Image(i)
		for j := range img {
			img[j] = 0.1 * rng.Float64()
		}
		startRow := label*2 + 2
		for row := startRow; row < startRow+4; row++ {
			for col := 5; col < 23; col++ {
				img[row*ImageCols+col] = 0.8 + 0.2*rng.Float64()
			}
		}
	}
	return d
}
