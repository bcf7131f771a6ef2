package autodiff_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/backprop/internal/autodiff"
	"github.com/born-ml/backprop/internal/backend/cpu"
	"github.com/born-ml/backprop/internal/tensor"
)

func mustTensor(t *testing.T, data []float64, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

func param(t *testing.T, name string, data []float64, shape ...int) *autodiff.Node {
	t.Helper()
	return autodiff.NewParameter(name, mustTensor(t, data, shape...))
}

func TestGraph_RecordsTrackedNodes(t *testing.T) {
	g := autodiff.New(cpu.New())
	assert.True(t, g.GradEnabled())
	assert.Equal(t, "CPU", g.Backend().Name())

	x := param(t, "x", []float64{1, 2}, 2)
	y := g.Pow(x, 2)
	z := g.Mean(y)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []*autodiff.Node{y, z}, g.Nodes())

	assert.True(t, x.IsLeaf())
	assert.False(t, y.IsLeaf())
	assert.Equal(t, "Pow", y.Name())
	assert.Equal(t, "x", x.Name())
	assert.Equal(t, []*autodiff.Node{x}, y.Parents())
	assert.Equal(t, "Mean", z.Op().Name())
	assert.InDelta(t, 2.5, z.Item(), 1e-12)

	g.Reset()
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, []float64{1, 2}, x.Value().Data(), "leaves survive Reset")
}

func TestGraph_UntrackedInputs(t *testing.T) {
	g := autodiff.New(cpu.New())

	a := autodiff.NewLeaf(mustTensor(t, []float64{1, 2}, 2))
	b := autodiff.NewLeaf(mustTensor(t, []float64{3, 4}, 2))
	c, err := g.Add(a, b)
	require.NoError(t, err)

	assert.False(t, c.RequiresGrad(), "no operand requires gradients")
	assert.Nil(t, c.Op())
	assert.Empty(t, c.Parents())
}

func TestGraph_LinearForward(t *testing.T) {
	g := autodiff.New(cpu.New())

	// All-ones weight with zero bias yields row-sums broadcast across outputs.
	x := autodiff.NewLeaf(mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3))
	w := autodiff.NewParameter("w", tensor.Ones(tensor.Shape{4, 3}))
	b := autodiff.NewParameter("b", tensor.Zeros(tensor.Shape{4}))

	y, err := g.Linear(x, w, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6, 6, 6, 15, 15, 15, 15}, y.Value().Data())

	_, err = g.Linear(autodiff.NewLeaf(tensor.Ones(tensor.Shape{2, 5})), w, b)
	assert.True(t, errors.Is(err, autodiff.ErrShapeMismatch))
}

func TestGraph_Backward_Simple(t *testing.T) {
	g := autodiff.New(cpu.New())

	// f(x) = mean(x^2); df/dx = 2x / N
	x := param(t, "x", []float64{1, -2, 3, 0.5}, 2, 2)
	loss := g.Mean(g.Pow(x, 2))

	require.NoError(t, g.Backward(loss))
	assert.InDeltaSlice(t, []float64{0.5, -1, 1.5, 0.25}, x.Grad().Data(), 1e-12)
	assert.True(t, x.Grad().Shape().Equal(x.Shape()))
}

func TestGraph_Backward_MultiUseAccumulates(t *testing.T) {
	g := autodiff.New(cpu.New())

	// f(x) = sum(x*x + x); x feeds three operand slots.
	x := param(t, "x", []float64{1, 2, 3}, 3)
	sq, err := g.Mul(x, x)
	require.NoError(t, err)
	s, err := g.Add(sq, x)
	require.NoError(t, err)
	loss := g.Sum(s)

	require.NoError(t, g.Backward(loss))
	assert.Equal(t, []float64{3, 5, 7}, x.Grad().Data())
}

func TestGraph_Backward_DiamondVisitsOnce(t *testing.T) {
	g := autodiff.New(cpu.New())

	// h feeds two branches that rejoin; its parents must see the full gradient once.
	x := param(t, "x", []float64{2}, 1)
	h := g.Pow(x, 2)
	left, err := g.Mul(h, autodiff.NewLeaf(tensor.Full(tensor.Shape{1}, 3)))
	require.NoError(t, err)
	right, err := g.Exp(autodiff.NewLeaf(tensor.Zeros(tensor.Shape{1})))
	require.NoError(t, err)
	both, err := g.Add(left, h)
	require.NoError(t, err)
	out, err := g.Add(both, right)
	require.NoError(t, err)

	// out = 3x^2 + x^2 + 1; d/dx = 8x
	require.NoError(t, g.Backward(g.Sum(out)))
	assert.InDelta(t, 16.0, x.Grad().Item(), 1e-12)
	assert.InDeltaSlice(t, []float64{4}, h.Grad().Data(), 1e-12)
}

func TestGraph_Backward_TwiceDoublesLeafGradients(t *testing.T) {
	g := autodiff.New(cpu.New())

	x := autodiff.NewLeaf(mustTensor(t, []float64{0.5, -1, 2, 0, 1, 3}, 2, 3))
	w := param(t, "w", []float64{0.1, -0.2, 0.3, 0.4, 0.5, -0.6}, 2, 3)
	b := param(t, "b", []float64{0.01, -0.02}, 2)

	h, err := g.Linear(x, w, b)
	require.NoError(t, err)
	logp, err := g.LogSoftmax(h, 1)
	require.NoError(t, err)
	loss, err := g.NLLLoss(logp, []int{1, 0})
	require.NoError(t, err)

	require.NoError(t, g.Backward(loss))
	once := w.Grad().Clone()
	onceBias := b.Grad().Clone()
	onceInterior := h.Grad().Clone()

	require.NoError(t, g.Backward(loss))
	for i, v := range once.Data() {
		assert.Equal(t, 2*v, w.Grad().Data()[i])
	}
	for i, v := range onceBias.Data() {
		assert.Equal(t, 2*v, b.Grad().Data()[i])
	}
	assert.Equal(t, onceInterior.Data(), h.Grad().Data(), "interior gradients are per pass")

	w.ZeroGrad()
	assert.Equal(t, make([]float64, 6), w.Grad().Data())
}

func TestGraph_Backward_Errors(t *testing.T) {
	backend := cpu.New()

	t.Run("NonScalar", func(t *testing.T) {
		g := autodiff.New(backend)
		x := param(t, "x", []float64{1, 2, 3, 4, 5, 6}, 2, 3)
		logp, err := g.LogSoftmax(x, 1)
		require.NoError(t, err)

		err = g.Backward(logp)
		assert.True(t, errors.Is(err, autodiff.ErrBackwardOnNonScalar))
		assert.Nil(t, x.Grad())
	})

	t.Run("UntrackedLeaf", func(t *testing.T) {
		g := autodiff.New(backend)
		err := g.Backward(autodiff.NewLeaf(tensor.Scalar(1)))
		assert.True(t, errors.Is(err, autodiff.ErrNoGradientContext))
	})

	t.Run("NoGradScope", func(t *testing.T) {
		g := autodiff.New(backend)
		x := param(t, "x", []float64{1, 2}, 2)

		var loss *autodiff.Node
		require.NoError(t, g.NoGrad(func() error {
			loss = g.Mean(x)
			return nil
		}))
		assert.True(t, g.GradEnabled(), "tracking restored after NoGrad")

		err := g.Backward(loss)
		assert.True(t, errors.Is(err, autodiff.ErrNoGradientContext))
		assert.Nil(t, x.Grad())
	})

	t.Run("SetGradEnabledRestore", func(t *testing.T) {
		g := autodiff.New(backend)
		restore := g.SetGradEnabled(false)
		assert.False(t, g.GradEnabled())
		inner := g.SetGradEnabled(false)
		inner()
		assert.False(t, g.GradEnabled())
		restore()
		assert.True(t, g.GradEnabled())
	})

	t.Run("LabelOutOfRange", func(t *testing.T) {
		g := autodiff.New(backend)
		x := param(t, "x", []float64{0, 0, 0, 0}, 2, 2)
		logp, err := g.LogSoftmax(x, -1)
		require.NoError(t, err)

		_, err = g.NLLLoss(logp, []int{0, 2})
		assert.True(t, errors.Is(err, autodiff.ErrIndexOutOfRange))

		_, err = g.NLLLoss(logp, []int{-1, 0})
		assert.True(t, errors.Is(err, autodiff.ErrIndexOutOfRange))
	})

	t.Run("AxisOutOfRange", func(t *testing.T) {
		g := autodiff.New(backend)
		_, err := g.LogSoftmax(param(t, "x", []float64{1, 2}, 1, 2), 2)
		assert.True(t, errors.Is(err, autodiff.ErrIndexOutOfRange))
	})

	t.Run("Overflow", func(t *testing.T) {
		g := autodiff.New(backend)
		_, err := g.Exp(param(t, "x", []float64{800}, 1))
		assert.True(t, errors.Is(err, autodiff.ErrNumericalInstability))
	})
}

func TestGraph_LogSoftmaxRowsNormalised(t *testing.T) {
	g := autodiff.New(cpu.New())

	x := autodiff.NewLeaf(mustTensor(t, []float64{
		1e4, -1e4, 0,
		-750, -760, -770,
	}, 2, 3))
	logp, err := g.LogSoftmax(x, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		sum := 0.0
		for _, v := range logp.Value().Row(i) {
			require.False(t, math.IsNaN(v))
			sum += math.Exp(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
}

func TestGraph_NLLLossPeakedDistribution(t *testing.T) {
	g := autodiff.New(cpu.New())

	const eps = 1e-12
	logp := autodiff.NewLeaf(mustTensor(t, []float64{
		math.Log(1 - 2*eps), math.Log(eps), math.Log(eps),
		math.Log(eps), math.Log(eps), math.Log(1 - 2*eps),
	}, 2, 3))

	loss, err := g.NLLLoss(logp, []int{0, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, loss.Item(), 1e-9)
}
