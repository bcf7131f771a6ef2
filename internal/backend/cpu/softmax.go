package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/tensor"
)

// LogSoftmax computes log(softmax(x)) along axis:
//
//	log_softmax(x)_i = x_i - max(x) - log(Σ_j exp(x_j - max(x)))
//
// Shifting by the per-slice max keeps every exponent ≤ 0, so the sum cannot
// overflow. Non-finite inputs are rejected with ErrNumericalInstability.
func (cpu *CPUBackend) LogSoftmax(x *tensor.Tensor, axis int) (*tensor.Tensor, error) {
	return softmaxAlong("log-softmax", x, axis, true)
}

// Softmax computes exp(x_i - max(x)) / Σ_j exp(x_j - max(x)) along axis.
func (cpu *CPUBackend) Softmax(x *tensor.Tensor, axis int) (*tensor.Tensor, error) {
	return softmaxAlong("softmax", x, axis, false)
}

func softmaxAlong(name string, x *tensor.Tensor, axis int, logSpace bool) (*tensor.Tensor, error) {
	shape := x.Shape()
	axis, err := shape.NormalizeAxis(axis)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}

	src := x.Data()
	for i, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(tensor.ErrNumericalInstability, "%s: non-finite input %g at index %d", name, v, i)
		}
	}

	result := tensor.Zeros(shape)
	dst := result.Data()
	outer, n, inner := axisLayout(shape, axis)

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*n*inner + i

			maxVal := math.Inf(-1)
			for k := 0; k < n; k++ {
				maxVal = math.Max(maxVal, src[base+k*inner])
			}

			sum := 0.0
			for k := 0; k < n; k++ {
				sum += math.Exp(src[base+k*inner] - maxVal)
			}
			logSum := math.Log(sum)

			for k := 0; k < n; k++ {
				idx := base + k*inner
				if logSpace {
					dst[idx] = src[idx] - maxVal - logSum
				} else {
					dst[idx] = math.Exp(src[idx]-maxVal) / sum
				}
			}
		}
	}
	return result, nil
}

// NLLLoss computes the mean negative log-likelihood:
//
//	loss = -1/N Σ_i logProbs[i, labels[i]]
//
// logProbs must be [batch_size, num_classes] and labels must hold one class
// index in [0, num_classes) per row.
func (cpu *CPUBackend) NLLLoss(logProbs *tensor.Tensor, labels []int) (*tensor.Tensor, error) {
	batch, classes, err := CheckLabels(logProbs, labels)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for i, label := range labels {
		total += logProbs.Data()[i*classes+label]
	}
	return tensor.Scalar(-total / float64(batch)), nil
}

// CheckLabels validates a [batch, classes] score tensor against its labels
// and returns the two dimensions.
func CheckLabels(scores *tensor.Tensor, labels []int) (batch, classes int, err error) {
	shape := scores.Shape()
	if len(shape) != 2 {
		return 0, 0, errors.Wrapf(tensor.ErrShapeMismatch,
			"nll loss: expected 2D input [batch, classes], got %v", shape)
	}
	batch, classes = shape[0], shape[1]
	if len(labels) != batch {
		return 0, 0, errors.Wrapf(tensor.ErrShapeMismatch,
			"nll loss: %d labels for batch of %d", len(labels), batch)
	}
	for i, label := range labels {
		if label < 0 || label >= classes {
			return 0, 0, errors.Wrapf(tensor.ErrIndexOutOfRange,
				"nll loss: label %d at row %d outside [0, %d)", label, i, classes)
		}
	}
	return batch, classes, nil
}
