package dataset

import (
	"math/rand"

	"github.com/born-ml/backprop/internal/tensor"
)

// Loader iterates over a dataset in mini-batches.
//
// With shuffling enabled the sample order is re-drawn from the loader's
// own generator on every Reset, so runs with the same seed are reproducible.
//
// Example:
//
//	loader := dataset.NewLoader(train, 64, true, 42)
//	for loader.Next() {
//	    x, y := loader.Batch()
//	    ...
//	}
//	if err := loader.Err(); err != nil { ... }
type Loader struct {
	data      *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	order     []int
	pos       int

	x   *tensor.Tensor
	y   []int
	err error
}

// NewLoader creates a loader. batchSize < 1 is treated as 1.
func NewLoader(data *Dataset, batchSize int, shuffle bool, seed int64) *Loader {
	l := &Loader{
		data:      data,
		batchSize: max(batchSize, 1),
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // Shuffling only
		order:     make([]int, data.Len()),
	}
	l.Reset()
	return l
}

// Reset starts a new epoch.
func (l *Loader) Reset() {
	for i := range l.order {
		l.order[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.pos = 0
	l.x, l.y, l.err = nil, nil, nil
}

// Next advances to the next batch. It returns false at the end of the epoch
// or on error; check Err afterwards.
func (l *Loader) Next() bool {
	if l.err != nil || l.pos >= len(l.order) {
		return false
	}
	end := min(l.pos+l.batchSize, len(l.order))
	l.x, l.y, l.err = l.data.Batch(l.order[l.pos:end])
	l.pos = end
	return l.err == nil
}

// Batch returns the current images, shape (batch, features), and labels.
// The last batch of an epoch may be smaller.
func (l *Loader) Batch() (*tensor.Tensor, []int) {
	return l.x, l.y
}

// Err returns the error that stopped iteration, if any.
func (l *Loader) Err() error {
	return l.err
}

// NumBatches returns the number of batches per epoch.
func (l *Loader) NumBatches() int {
	return (len(l.order) + l.batchSize - 1) / l.batchSize
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// Len returns the number of samples per epoch.
func (l *Loader) Len() int {
	return len(l.order)
}
