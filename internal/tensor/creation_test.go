package tensor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestZerosOnesFull(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 0}, Zeros(Shape{3}).Data())
	assert.Equal(t, []float64{1, 1}, Ones(Shape{2}).Data())
	assert.Equal(t, []float64{3.5, 3.5, 3.5, 3.5}, Full(Shape{2, 2}, 3.5).Data())
	assert.Panics(t, func() { Zeros(Shape{-1}) })
}

func TestRandn(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := Randn(Shape{100, 50}, rng)

	mean, std := stat.MeanStdDev(x.Data(), nil)
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, std, 0.05)
}

func TestUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := Uniform(Shape{1000}, -0.5, 0.5, rng)

	assert.GreaterOrEqual(t, floats.Min(x.Data()), -0.5)
	assert.Less(t, floats.Max(x.Data()), 0.5)
	assert.Less(t, math.Abs(floats.Sum(x.Data())/1000), 0.05)
}
