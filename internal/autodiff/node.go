package autodiff

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/autodiff/ops"
	"github.com/born-ml/backprop/internal/tensor"
)

// Node is a vertex of the computation graph.
//
// A node wraps one tensor value. Interior nodes also hold the operation that
// produced them and their operand nodes (parents). Leaves have neither; they
// are inputs or trainable parameters and keep their gradient buffer across
// backward passes until ZeroGrad is called.
type Node struct {
	name    string
	value   *tensor.Tensor
	grad    *tensor.Tensor
	op      ops.Operation
	parents []*Node

	requiresGrad bool
}

// NewLeaf wraps a tensor as a leaf node.
// The node is tracked when value.RequiresGrad() is true.
func NewLeaf(value *tensor.Tensor) *Node {
	return &Node{
		value:        value,
		requiresGrad: value.RequiresGrad(),
	}
}

// NewParameter wraps a tensor as a named, tracked leaf.
func NewParameter(name string, value *tensor.Tensor) *Node {
	value.SetRequiresGrad(true)
	return &Node{
		name:         name,
		value:        value,
		requiresGrad: true,
	}
}

// Name returns the node name; interior nodes are named after their operation.
func (n *Node) Name() string {
	if n.name == "" && n.op != nil {
		return n.op.Name()
	}
	return n.name
}

// SetName sets the node name and returns the node.
func (n *Node) SetName(name string) *Node {
	n.name = name
	return n
}

// Value returns the tensor computed for this node.
func (n *Node) Value() *tensor.Tensor { return n.value }

// Shape returns the shape of the node value.
func (n *Node) Shape() tensor.Shape { return n.value.Shape() }

// Item returns the value of a one-element node.
func (n *Node) Item() float64 { return n.value.Item() }

// Grad returns the gradient buffer, or nil if no backward pass reached the node.
func (n *Node) Grad() *tensor.Tensor { return n.grad }

// Op returns the producing operation (nil for leaves and untracked nodes).
func (n *Node) Op() ops.Operation { return n.op }

// Parents returns the operand nodes in operation order.
func (n *Node) Parents() []*Node { return n.parents }

// IsLeaf reports whether the node has no producing operation.
func (n *Node) IsLeaf() bool { return n.op == nil }

// RequiresGrad reports whether gradients flow into this node.
func (n *Node) RequiresGrad() bool { return n.requiresGrad }

// ZeroGrad sets the gradient buffer to zero, keeping its allocation.
func (n *Node) ZeroGrad() {
	if n.grad != nil {
		n.grad.Fill(0)
	}
}

// accumulate adds g into the gradient buffer, creating it on first use.
func (n *Node) accumulate(g *tensor.Tensor) error {
	if !g.Shape().Equal(n.value.Shape()) {
		return errors.Wrapf(ErrShapeMismatch, "gradient %v for node %q of shape %v",
			g.Shape(), n.Name(), n.value.Shape())
	}
	if n.grad == nil {
		n.grad = tensor.ZerosLike(n.value)
	}
	dst := n.grad.Data()
	for i, v := range g.Data() {
		dst[i] += v
	}
	return nil
}

// String returns a short description of the node.
func (n *Node) String() string {
	kind := "leaf"
	if n.op != nil {
		kind = n.op.Name()
	}
	return fmt.Sprintf("Node(%s %q %v grad=%t)", kind, n.name, n.value.Shape(), n.requiresGrad)
}
