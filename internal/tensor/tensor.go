package tensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Tensor is a dense, row-major array of float64 values with a fixed shape.
//
// The requiresGrad flag tells the autodiff graph whether operations consuming
// this tensor should be tracked. It is a property of the value, so the same
// tensor can be fed to several graphs.
//
// Example:
//
//	x, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	x.SetRequiresGrad(true)
type Tensor struct {
	shape        Shape
	data         []float64
	requiresGrad bool
}

// New creates a zero-filled tensor of the given shape.
func New(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float64, shape.NumElements()),
	}, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	t := &Tensor{
		shape: shape.Clone(),
		data:  make([]float64, len(data)),
	}
	copy(t.data, data)
	return t, nil
}

// Scalar creates a 0-dimensional tensor holding v.
func Scalar(v float64) *Tensor {
	return &Tensor{shape: Shape{}, data: []float64{v}}
}

// Shape returns the tensor's shape. Callers must not modify it.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the backing slice in row-major order.
// Writes through this slice mutate the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Size returns the number of elements.
func (t *Tensor) Size() int {
	return len(t.data)
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// IsScalar reports whether the tensor holds exactly one element.
func (t *Tensor) IsScalar() bool {
	return len(t.data) == 1
}

// Item returns the single value of a one-element tensor.
//
// Panics if the tensor has more than one element.
func (t *Tensor) Item() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor.Item: tensor of shape %v has %d elements", t.shape, len(t.data)))
	}
	return t.data[0]
}

// At returns the element at the given multi-dimensional index.
//
// Panics on a wrong number of indices or an index out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set writes v at the given multi-dimensional index.
func (t *Tensor) Set(v float64, indices ...int) {
	t.data[t.offset(indices)] = v
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for shape %v", len(indices), t.shape))
	}
	strides := t.shape.ComputeStrides()
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for dimension %d of shape %v", idx, i, t.shape))
		}
		off += idx * strides[i]
	}
	return off
}

// Row returns row i of a 2-D tensor as a sub-slice of the backing data.
func (t *Tensor) Row(i int) []float64 {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor.Row: expected 2-D tensor, got shape %v", t.shape))
	}
	cols := t.shape[1]
	return t.data[i*cols : (i+1)*cols]
}

// Clone returns a deep copy, including the requiresGrad flag.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{
		shape:        t.shape.Clone(),
		data:         data,
		requiresGrad: t.requiresGrad,
	}
}

// Reshape returns a tensor that shares this tensor's data under a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	newShape := Shape(shape)
	if err := newShape.Validate(); err != nil {
		return nil, err
	}
	if newShape.NumElements() != len(t.data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "cannot reshape %v into %v", t.shape, newShape)
	}
	return &Tensor{shape: newShape.Clone(), data: t.data, requiresGrad: t.requiresGrad}, nil
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// RequiresGrad reports whether operations on this tensor are tracked.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// SetRequiresGrad marks the tensor for gradient tracking and returns it.
func (t *Tensor) SetRequiresGrad(requires bool) *Tensor {
	t.requiresGrad = requires
	return t
}

// AllClose reports whether both tensors have the same shape and every pair
// of elements differs by at most atol + rtol*|other|.
func (t *Tensor) AllClose(other *Tensor, rtol, atol float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-other.data[i]) > atol+rtol*math.Abs(other.data[i]) {
			return false
		}
	}
	return true
}

// Argmax returns the index of the largest value in every row of a 2-D tensor.
func (t *Tensor) Argmax() []int {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor.Argmax: expected 2-D tensor, got shape %v", t.shape))
	}
	out := make([]int, t.shape[0])
	for i := range out {
		row := t.Row(i)
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// String returns a short description such as Tensor(2, 3)[1 2 3 ...].
func (t *Tensor) String() string {
	const preview = 6
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor%v[", t.shape)
	for i, v := range t.data {
		if i == preview {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.4g", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
