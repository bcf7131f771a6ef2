package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shape Tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShapeValidate(t *testing.T) {
	require.NoError(t, Shape{}.Validate())
	require.NoError(t, Shape{1, 2}.Validate())

	err := Shape{2, 0}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidShape))
}

func TestShapeComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}

func TestShapeNormalizeAxis(t *testing.T) {
	s := Shape{4, 10}

	axis, err := s.NormalizeAxis(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, axis)

	_, err = s.NormalizeAxis(2)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
	}{
		{"same", Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{"column", Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true},
		{"row vector", Shape{5}, Shape{3, 5}, Shape{3, 5}, true},
		{"scalar", Shape{}, Shape{2, 2}, Shape{2, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}

	_, _, err := BroadcastShapes(Shape{3, 4}, Shape{3, 5})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

// Tensor Tests

func TestFromSlice(t *testing.T) {
	src := []float64{1, 2, 3, 4, 5, 6}
	x, err := FromSlice(src, Shape{2, 3})
	require.NoError(t, err)

	src[0] = 100
	assert.Equal(t, 1.0, x.At(0, 0), "FromSlice must copy its input")
	assert.Equal(t, 6.0, x.At(1, 2))
	assert.Equal(t, []float64{4, 5, 6}, x.Row(1))

	_, err = FromSlice(src, Shape{4, 2})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestScalarItem(t *testing.T) {
	s := Scalar(2.5)
	assert.Equal(t, 0, s.Dims())
	assert.True(t, s.IsScalar())
	assert.Equal(t, 2.5, s.Item())

	assert.Panics(t, func() { Zeros(Shape{2}).Item() })
}

func TestSetAndClone(t *testing.T) {
	x := Zeros(Shape{2, 2}).SetRequiresGrad(true)
	x.Set(7, 1, 0)

	c := x.Clone()
	c.Set(1, 1, 0)

	assert.Equal(t, 7.0, x.At(1, 0))
	assert.True(t, c.RequiresGrad())
	assert.Panics(t, func() { x.At(2, 0) })
}

func TestReshapeSharesData(t *testing.T) {
	x, err := FromSlice([]float64{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)

	flat, err := x.Reshape(4)
	require.NoError(t, err)
	flat.Data()[3] = 40
	assert.Equal(t, 40.0, x.At(1, 1))

	_, err = x.Reshape(3)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestAllCloseAndArgmax(t *testing.T) {
	a, _ := FromSlice([]float64{0.1, 0.7, 0.2, 0.9, 0.05, 0.05}, Shape{2, 3})
	b := a.Clone()
	b.Data()[0] += 1e-9

	assert.True(t, a.AllClose(b, 1e-6, 1e-6))
	assert.False(t, a.AllClose(Zeros(Shape{2, 3}), 1e-6, 1e-6))
	assert.False(t, a.AllClose(Zeros(Shape{3, 2}), 1, 1))
	assert.Equal(t, []int{1, 0}, a.Argmax())
}
