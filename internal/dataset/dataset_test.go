package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/backprop/internal/tensor"
)

// writeSplit stores a tiny 2x3-pixel dataset in dir under the training file names.
func writeSplit(t *testing.T, dir string, gz bool) {
	t.Helper()
	pixels := []byte{
		0, 255, 0, 255, 0, 255,
		51, 51, 51, 102, 102, 102,
		255, 255, 255, 0, 0, 0,
	}
	labels := []byte{3, 7, 1}

	imageName, labelName := FileNames(true)
	write := func(name string, fill func(*bytes.Buffer) error) {
		var buf bytes.Buffer
		require.NoError(t, fill(&buf))
		data := buf.Bytes()
		if gz {
			var zbuf bytes.Buffer
			zw := gzip.NewWriter(&zbuf)
			_, err := zw.Write(data)
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			data = zbuf.Bytes()
			name += ".gz"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
	write(imageName, func(b *bytes.Buffer) error { return WriteIDXImages(b, pixels, 2, 3) })
	write(labelName, func(b *bytes.Buffer) error { return WriteIDXLabels(b, labels) })
}

func TestIDX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIDXImages(&buf, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2))

	pixels, count, rows, cols, err := ReadIDXImages(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, pixels)

	buf.Reset()
	require.NoError(t, WriteIDXLabels(&buf, []byte{9, 0}))
	labels, err := ReadIDXLabels(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 0}, labels)
}

func TestIDX_Invalid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIDXLabels(&buf, []byte{1}))
	_, _, _, _, err := ReadIDXImages(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)

	buf.Reset()
	require.NoError(t, WriteIDXImages(&buf, []byte{1, 2, 3, 4}, 2, 2))
	_, err = ReadIDXLabels(bytes.NewReader(buf.Bytes()))
	assert.True(t, errors.Is(err, ErrInvalidIDX))

	// Truncated pixel data.
	truncated := buf.Bytes()[:buf.Len()-1]
	_, _, _, _, err = ReadIDXImages(bytes.NewReader(truncated))
	assert.Error(t, err)

	assert.True(t, errors.Is(WriteIDXImages(&buf, []byte{1, 2, 3}, 2, 2), ErrInvalidIDX))
}

func TestIDX_OversizedHeader(t *testing.T) {
	header := func(fields ...uint32) *bytes.Reader {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.BigEndian, fields))
		return bytes.NewReader(buf.Bytes())
	}

	images := []struct {
		name string
		hdr  []uint32
	}{
		{"HugeDims", []uint32{idxImageMagic, 1 << 31, 1 << 31, 2}},
		{"HugeCount", []uint32{idxImageMagic, 1<<32 - 1, 28, 28}},
		{"HugeTotal", []uint32{idxImageMagic, 1 << 27, 256, 256}},
		{"ZeroRows", []uint32{idxImageMagic, 1, 0, 28}},
	}
	for _, tc := range images {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() {
				_, _, _, _, err = ReadIDXImages(header(tc.hdr...))
			})
			assert.True(t, errors.Is(err, ErrInvalidIDX), "%v", err)
		})
	}

	t.Run("HugeLabelCount", func(t *testing.T) {
		_, err := ReadIDXLabels(header(idxLabelMagic, 1<<31))
		assert.True(t, errors.Is(err, ErrInvalidIDX), "%v", err)
	})

	// Plausible header, missing payload: fails on EOF without allocating the
	// claimed size up front.
	t.Run("OverstatedPayload", func(t *testing.T) {
		_, _, _, _, err := ReadIDXImages(header(idxImageMagic, 1000, 28, 28))
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "%v", err)

		_, err = ReadIDXLabels(header(idxLabelMagic, 1000))
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "%v", err)
	})
}

func TestLoad(t *testing.T) {
	for _, gz := range []bool{false, true} {
		name := "plain"
		if gz {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeSplit(t, dir, gz)

			d, err := Load(dir, true, 0)
			require.NoError(t, err)
			assert.Equal(t, 3, d.Len())
			assert.Equal(t, 6, d.Features())
			assert.Equal(t, []int{3, 7, 1}, d.Labels)
			assert.InDeltaSlice(t, []float64{0, 1, 0, 1, 0, 1}, d.Image(0), 1e-12)
			assert.InDeltaSlice(t, []float64{0.2, 0.2, 0.2, 0.4, 0.4, 0.4}, d.Image(1), 1e-12)

			limited, err := Load(dir, true, 2)
			require.NoError(t, err)
			assert.Equal(t, 2, limited.Len())
			assert.Len(t, limited.Images, 12)
		})
	}

	t.Run("Missing", func(t *testing.T) {
		_, err := Load(t.TempDir(), false, 0)
		assert.Error(t, err)
	})
}

func TestFromBytes_Invalid(t *testing.T) {
	_, err := FromBytes(nil, nil, 2, 2)
	assert.True(t, errors.Is(err, ErrEmptyDataset))

	_, err = FromBytes([]byte{1, 2, 3}, []byte{1}, 2, 2)
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))

	_, err = FromBytes([]byte{1, 2, 3, 4}, []byte{12}, 2, 2)
	assert.True(t, errors.Is(err, tensor.ErrIndexOutOfRange))
}

func TestNormalize(t *testing.T) {
	d := Synthetic(200, rand.New(rand.NewSource(3)))
	orig := append([]float64(nil), d.Images...)

	require.NoError(t, d.Normalize(0.5, 0.5))
	for i, v := range d.Images {
		require.InDelta(t, (orig[i]-0.5)/0.5, v, 1e-12)
	}
	assert.Error(t, d.Normalize(0, 0))
}

func TestBatchAndSplit(t *testing.T) {
	d := Synthetic(10, rand.New(rand.NewSource(1)))
	assert.Equal(t, 784, d.Features())

	x, y, err := d.Batch([]int{4, 2})
	require.NoError(t, err)
	assert.True(t, x.Shape().Equal(tensor.Shape{2, 784}))
	assert.Equal(t, []int{d.Labels[4], d.Labels[2]}, y)
	assert.Equal(t, d.Image(2), x.Row(1))

	_, _, err = d.Batch([]int{10})
	assert.True(t, errors.Is(err, tensor.ErrIndexOutOfRange))

	a, b, err := d.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, d.Image(8), b.Image(0))

	_, _, err = d.Split(1)
	assert.Error(t, err)
}

func TestSynthetic_Deterministic(t *testing.T) {
	a := Synthetic(20, rand.New(rand.NewSource(9)))
	b := Synthetic(20, rand.New(rand.NewSource(9)))
	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Images, b.Images)
	for _, l := range a.Labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, NumClasses)
	}
}

func TestLoader(t *testing.T) {
	d := Synthetic(10, nil)

	t.Run("Sequential", func(t *testing.T) {
		l := NewLoader(d, 4, false, 0)
		assert.Equal(t, 3, l.NumBatches())

		var sizes []int
		var labels []int
		for l.Next() {
			x, y := l.Batch()
			sizes = append(sizes, x.Shape()[0])
			labels = append(labels, y...)
		}
		require.NoError(t, l.Err())
		assert.Equal(t, []int{4, 4, 2}, sizes)
		assert.Equal(t, d.Labels, labels)

		l.Reset()
		assert.True(t, l.Next())
	})

	t.Run("ShuffleSeeded", func(t *testing.T) {
		collect := func(l *Loader) []int {
			var out []int
			for l.Next() {
				_, y := l.Batch()
				out = append(out, y...)
			}
			return out
		}
		a := collect(NewLoader(d, 3, true, 42))
		b := collect(NewLoader(d, 3, true, 42))
		assert.Equal(t, a, b)
		assert.ElementsMatch(t, d.Labels, a)
	})

	t.Run("MinimumBatch", func(t *testing.T) {
		l := NewLoader(d, 0, false, 0)
		assert.Equal(t, 1, l.BatchSize())
		assert.Equal(t, 10, l.NumBatches())
	})
}
