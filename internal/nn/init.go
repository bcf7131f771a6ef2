package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/backprop/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// A nil rng uses a generator seeded from the current time.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform(shape, -bound, bound, orDefault(rng))
}

// Kaiming (He) uniform initialization, suited to ReLU networks:
// U(-sqrt(6/fan_in), sqrt(6/fan_in)).
func Kaiming(fanIn int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn))
	return tensor.Uniform(shape, -bound, bound, orDefault(rng))
}

//nolint:gosec // Using math/rand for weight initialization (not security-critical)
func orDefault(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(rand.Int63()))
}
