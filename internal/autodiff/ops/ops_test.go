package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/backprop/internal/backend/cpu"
	"github.com/born-ml/backprop/internal/tensor"
)

func mustTensor(t *testing.T, data []float64, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

func TestAddOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b := mustTensor(t, []float64{10, 20, 30}, 3)
	out, err := backend.Add(a, b)
	require.NoError(t, err)

	op := NewAddOp(a, b, out)
	assert.Equal(t, "Add", op.Name())
	assert.Len(t, op.Inputs(), 2)
	assert.Same(t, out, op.Output())

	grads, err := op.Backward(tensor.Ones(tensor.Shape{2, 3}), backend)
	require.NoError(t, err)
	require.Len(t, grads, 2)

	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, grads[0].Data())
	// b was broadcast across two rows, so its gradient sums them.
	assert.True(t, grads[1].Shape().Equal(tensor.Shape{3}))
	assert.Equal(t, []float64{2, 2, 2}, grads[1].Data())
}

func TestSubOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := mustTensor(t, []float64{1, 2}, 2)
	b := tensor.Scalar(5)
	out, err := backend.Sub(a, b)
	require.NoError(t, err)

	grads, err := NewSubOp(a, b, out).Backward(mustTensor(t, []float64{1, 3}, 2), backend)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3}, grads[0].Data())
	assert.Equal(t, []float64{-4}, grads[1].Data())
}

func TestMulOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := mustTensor(t, []float64{2, 3}, 2)
	b := mustTensor(t, []float64{4, 5}, 2)
	out, err := backend.Mul(a, b)
	require.NoError(t, err)

	grads, err := NewMulOp(a, b, out).Backward(tensor.Ones(tensor.Shape{2}), backend)
	require.NoError(t, err)

	assert.Equal(t, []float64{4, 5}, grads[0].Data(), "grad_a = b")
	assert.Equal(t, []float64{2, 3}, grads[1].Data(), "grad_b = a")
}

func TestPowOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := mustTensor(t, []float64{1, 2, 3}, 3)
	out := backend.Pow(x, 3)

	grads, err := NewPowOp(x, out, 3).Backward(tensor.Ones(tensor.Shape{3}), backend)
	require.NoError(t, err)

	// d(x^3)/dx = 3x^2
	assert.InDeltaSlice(t, []float64{3, 12, 27}, grads[0].Data(), 1e-12)
}

func TestReductionOps_Backward(t *testing.T) {
	backend := cpu.New()
	x := mustTensor(t, []float64{1, 2, 3, 4}, 2, 2)

	t.Run("Mean", func(t *testing.T) {
		op := NewMeanOp(x, tensor.Scalar(2.5))
		grads, err := op.Backward(tensor.Scalar(2), backend)
		require.NoError(t, err)
		assert.True(t, grads[0].Shape().Equal(tensor.Shape{2, 2}))
		assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, grads[0].Data())
	})

	t.Run("Sum", func(t *testing.T) {
		op := NewSumOp(x, backend.Sum(x))
		grads, err := op.Backward(tensor.Scalar(3), backend)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 3, 3, 3}, grads[0].Data())
	})
}

func TestExpOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := mustTensor(t, []float64{0, 1}, 2)
	out, err := backend.Exp(x)
	require.NoError(t, err)

	grads, err := NewExpOp(x, out).Backward(mustTensor(t, []float64{2, 1}, 2), backend)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, math.E}, grads[0].Data(), 1e-12)
}

func TestReLUOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := mustTensor(t, []float64{-1, 0, 2}, 3)
	op := NewReLUOp(x, backend.ReLU(x))

	grads, err := op.Backward(mustTensor(t, []float64{5, 5, 5}, 3), backend)
	require.NoError(t, err)

	// Zero input takes the zero subgradient.
	assert.Equal(t, []float64{0, 0, 5}, grads[0].Data())
}

func TestSigmoidOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := mustTensor(t, []float64{0}, 1)
	op := NewSigmoidOp(x, backend.Sigmoid(x))

	grads, err := op.Backward(tensor.Ones(tensor.Shape{1}), backend)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, grads[0].Data()[0], 1e-12)
}

func TestMatMulOp_Backward(t *testing.T) {
	backend := cpu.New()

	a := mustTensor(t, []float64{1, 2, 3, 4}, 2, 2)
	b := mustTensor(t, []float64{5, 6, 7, 8}, 2, 2)
	out, err := backend.MatMul(a, b)
	require.NoError(t, err)

	grads, err := NewMatMulOp(a, b, out).Backward(tensor.Ones(tensor.Shape{2, 2}), backend)
	require.NoError(t, err)

	// grad_a = 1 @ b^T: row sums of b in every row.
	assert.Equal(t, []float64{11, 15, 11, 15}, grads[0].Data())
	// grad_b = a^T @ 1: column sums of a in every column.
	assert.Equal(t, []float64{4, 4, 6, 6}, grads[1].Data())
}

func TestLinearOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	w := mustTensor(t, []float64{1, 0, -1, 2, 1, 0}, 2, 3)
	b := mustTensor(t, []float64{0.5, -0.5}, 2)
	out, err := backend.Linear(x, w, b)
	require.NoError(t, err)

	t.Run("WithBias", func(t *testing.T) {
		op := NewLinearOp(x, w, b, out)
		require.Len(t, op.Inputs(), 3)

		grads, err := op.Backward(tensor.Ones(tensor.Shape{2, 2}), backend)
		require.NoError(t, err)
		require.Len(t, grads, 3)

		// grad_x = δ @ W: column sums of W in every row.
		assert.Equal(t, []float64{3, 1, -1, 3, 1, -1}, grads[0].Data())
		// grad_W = δ^T @ x: column sums of x in every row.
		assert.Equal(t, []float64{5, 7, 9, 5, 7, 9}, grads[1].Data())
		assert.Equal(t, []float64{2, 2}, grads[2].Data())

		for i, g := range grads {
			assert.True(t, g.Shape().Equal(op.Inputs()[i].Shape()), "gradient %d shape", i)
		}
	})

	t.Run("NoBias", func(t *testing.T) {
		op := NewLinearOp(x, w, nil, out)
		require.Len(t, op.Inputs(), 2)

		grads, err := op.Backward(tensor.Ones(tensor.Shape{2, 2}), backend)
		require.NoError(t, err)
		assert.Len(t, grads, 2)
	})
}

func TestLogSoftmaxOp_Backward(t *testing.T) {
	backend := cpu.New()

	x := mustTensor(t, []float64{1, 2, 3, 1, 1, 1}, 2, 3)
	out, err := backend.LogSoftmax(x, 1)
	require.NoError(t, err)

	op := NewLogSoftmaxOp(x, out, 1)
	grads, err := op.Backward(tensor.Ones(tensor.Shape{2, 3}), backend)
	require.NoError(t, err)

	// With δ = 1 the gradient is 1 - 3·softmax, which sums to zero per row.
	for i := 0; i < 2; i++ {
		sum := 0.0
		for _, v := range grads[0].Row(i) {
			sum += v
		}
		assert.InDelta(t, 0.0, sum, 1e-12, "row %d", i)
	}
	// A uniform row has softmax 1/3 everywhere, so its gradient vanishes.
	assert.InDeltaSlice(t, []float64{0, 0, 0}, grads[0].Row(1), 1e-12)
}

func TestNLLLossOp_Backward(t *testing.T) {
	backend := cpu.New()

	logp, err := backend.LogSoftmax(mustTensor(t, []float64{1, 2, 3, 3, 2, 1}, 2, 3), 1)
	require.NoError(t, err)
	labels := []int{2, 0}
	loss, err := backend.NLLLoss(logp, labels)
	require.NoError(t, err)

	op := NewNLLLossOp(logp, labels, loss)
	grads, err := op.Backward(tensor.Scalar(1), backend)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, -0.5, -0.5, 0, 0}, grads[0].Data())
}

func TestLogSoftmaxNLL_CrossEntropyGradient(t *testing.T) {
	backend := cpu.New()

	// Chained, the two ops must yield (softmax - onehot) / N.
	x := mustTensor(t, []float64{0.2, -1, 0.7, 1.5, 0.1, -0.3}, 2, 3)
	labels := []int{1, 0}

	logp, err := backend.LogSoftmax(x, 1)
	require.NoError(t, err)
	loss, err := backend.NLLLoss(logp, labels)
	require.NoError(t, err)

	nllGrads, err := NewNLLLossOp(logp, labels, loss).Backward(tensor.Scalar(1), backend)
	require.NoError(t, err)
	xGrads, err := NewLogSoftmaxOp(x, logp, 1).Backward(nllGrads[0], backend)
	require.NoError(t, err)

	probs, err := backend.Softmax(x, 1)
	require.NoError(t, err)
	want := probs.Clone()
	for i, label := range labels {
		want.Row(i)[label]--
	}
	want = backend.Scale(want, 0.5)

	assert.True(t, xGrads[0].AllClose(want, 0, 1e-12))
}
