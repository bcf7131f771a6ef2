// Package autodiff implements reverse-mode automatic differentiation over a
// graph of tensor operations.
//
// A Graph records one Node per operation applied during the forward pass.
// Backward walks the recorded nodes in reverse topological order, applies
// each operation's backward rule and accumulates gradients into the leaves.
//
// Example:
//
//	g := autodiff.New(cpu.New())
//	w := autodiff.NewParameter("w", tensor.Randn(tensor.Shape{10, 4}, rng))
//	x := autodiff.NewLeaf(batch)
//	h, _ := g.Linear(x, w, nil)
//	logp, _ := g.LogSoftmax(h, 1)
//	loss, _ := g.NLLLoss(logp, labels)
//	_ = g.Backward(loss) // w.Grad() now holds dLoss/dw
//
// A Graph is not safe for concurrent use.
package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff/ops"
	"github.com/born-ml/backprop/internal/tensor"
)

// Graph is an arena of nodes produced during one forward pass.
type Graph struct {
	backend     tensor.Backend
	nodes       []*Node
	gradEnabled bool
}

// New creates an empty graph that computes through backend.
// Gradient tracking starts enabled.
func New(backend tensor.Backend) *Graph {
	return &Graph{
		backend:     backend,
		nodes:       make([]*Node, 0, 32),
		gradEnabled: true,
	}
}

// Backend returns the compute backend.
func (g *Graph) Backend() tensor.Backend {
	return g.backend
}

// Len returns the number of recorded nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the recorded nodes in creation order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Reset discards every recorded node. Leaves are not owned by the graph
// and keep their values and gradients.
func (g *Graph) Reset() {
	clear(g.nodes)
	g.nodes = g.nodes[:0]
}

// GradEnabled reports whether new nodes are tracked.
func (g *Graph) GradEnabled() bool {
	return g.gradEnabled
}

// SetGradEnabled switches tracking on or off and returns a func restoring
// the previous state:
//
//	defer g.SetGradEnabled(false)()
func (g *Graph) SetGradEnabled(enabled bool) func() {
	prev := g.gradEnabled
	g.gradEnabled = enabled
	return func() { g.gradEnabled = prev }
}

// NoGrad runs fn with tracking disabled. Nodes created inside fn have no
// producing operation and cannot start a backward pass.
func (g *Graph) NoGrad(fn func() error) error {
	defer g.SetGradEnabled(false)()
	return fn()
}

// record appends a node for value. The operation is built only when the
// result is tracked, so untracked work captures nothing.
func (g *Graph) record(value *tensor.Tensor, makeOp func() ops.Operation, parents ...*Node) *Node {
	track := false
	if g.gradEnabled {
		for _, p := range parents {
			if p.requiresGrad {
				track = true
				break
			}
		}
	}

	value.SetRequiresGrad(track)
	n := &Node{value: value, requiresGrad: track}
	if track {
		n.op = makeOp()
		n.parents = parents
	}
	g.nodes = append(g.nodes, n)
	return n
}

// Add returns a + b with broadcasting.
func (g *Graph) Add(a, b *Node) (*Node, error) {
	out, err := g.backend.Add(a.value, b.value)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewAddOp(a.value, b.value, out) }, a, b), nil
}

// Sub returns a - b with broadcasting.
func (g *Graph) Sub(a, b *Node) (*Node, error) {
	out, err := g.backend.Sub(a.value, b.value)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewSubOp(a.value, b.value, out) }, a, b), nil
}

// Mul returns the element-wise product a * b with broadcasting.
func (g *Graph) Mul(a, b *Node) (*Node, error) {
	out, err := g.backend.Mul(a.value, b.value)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewMulOp(a.value, b.value, out) }, a, b), nil
}

// Pow raises every element of x to exponent.
func (g *Graph) Pow(x *Node, exponent float64) *Node {
	out := g.backend.Pow(x.value, exponent)
	return g.record(out, func() ops.Operation { return ops.NewPowOp(x.value, out, exponent) }, x)
}

// Mean reduces x to the scalar mean of its elements.
func (g *Graph) Mean(x *Node) *Node {
	out := g.backend.Scale(g.backend.Sum(x.value), 1/float64(x.value.Size()))
	return g.record(out, func() ops.Operation { return ops.NewMeanOp(x.value, out) }, x)
}

// Sum reduces x to the scalar sum of its elements.
func (g *Graph) Sum(x *Node) *Node {
	out := g.backend.Sum(x.value)
	return g.record(out, func() ops.Operation { return ops.NewSumOp(x.value, out) }, x)
}

// Exp returns e^x element-wise.
func (g *Graph) Exp(x *Node) (*Node, error) {
	out, err := g.backend.Exp(x.value)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewExpOp(x.value, out) }, x), nil
}

// ReLU returns max(0, x) element-wise.
func (g *Graph) ReLU(x *Node) *Node {
	out := g.backend.ReLU(x.value)
	return g.record(out, func() ops.Operation { return ops.NewReLUOp(x.value, out) }, x)
}

// Sigmoid returns 1 / (1 + e^-x) element-wise.
func (g *Graph) Sigmoid(x *Node) *Node {
	out := g.backend.Sigmoid(x.value)
	return g.record(out, func() ops.Operation { return ops.NewSigmoidOp(x.value, out) }, x)
}

// MatMul returns the matrix product a @ b of two 2-D nodes.
func (g *Graph) MatMul(a, b *Node) (*Node, error) {
	out, err := g.backend.MatMul(a.value, b.value)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewMatMulOp(a.value, b.value, out) }, a, b), nil
}

// Linear returns x @ weight^T + bias.
//
// x is [batch, in], weight is [out, in] and bias is [out]; bias may be nil.
func (g *Graph) Linear(x, weight, bias *Node) (*Node, error) {
	var b *tensor.Tensor
	parents := []*Node{x, weight}
	if bias != nil {
		b = bias.value
		parents = append(parents, bias)
	}

	out, err := g.backend.Linear(x.value, weight.value, b)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewLinearOp(x.value, weight.value, b, out) }, parents...), nil
}

// LogSoftmax returns log-probabilities along axis. Negative axes count from the end.
func (g *Graph) LogSoftmax(x *Node, axis int) (*Node, error) {
	norm, err := x.value.Shape().NormalizeAxis(axis)
	if err != nil {
		return nil, errors.WithMessage(err, "log_softmax")
	}
	out, err := g.backend.LogSoftmax(x.value, norm)
	if err != nil {
		return nil, err
	}
	return g.record(out, func() ops.Operation { return ops.NewLogSoftmaxOp(x.value, out, norm) }, x), nil
}

// NLLLoss returns the mean negative log-likelihood of labels under the
// log-probabilities logProbs [batch, classes].
func (g *Graph) NLLLoss(logProbs *Node, labels []int) (*Node, error) {
	out, err := g.backend.NLLLoss(logProbs.value, labels)
	if err != nil {
		return nil, err
	}
	captured := append([]int(nil), labels...)
	return g.record(out, func() ops.Operation { return ops.NewNLLLossOp(logProbs.value, captured, out) }, logProbs), nil
}
