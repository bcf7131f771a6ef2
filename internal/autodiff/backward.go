package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/tensor"
)

// Backward computes the gradient of root with respect to every tracked
// ancestor.
//
// Algorithm:
//  1. Seed the root gradient with ones (d root / d root = 1)
//  2. Order the reachable tracked nodes so that every node comes after its parents
//  3. Visit them in reverse, so a node's gradient is complete before it is used
//  4. Apply each operation's backward rule and sum contributions per parent
//
// Leaves add the result into their gradient buffers, so calling Backward
// twice without ZeroGrad doubles their gradients. Interior gradients are
// recomputed on every pass.
//
// root must hold a single element (ErrBackwardOnNonScalar) and must be
// tracked (ErrNoGradientContext).
func (g *Graph) Backward(root *Node) error {
	if !root.requiresGrad {
		return errors.Wrapf(ErrNoGradientContext, "backward from %s", root)
	}
	if root.value.Size() != 1 {
		return errors.Wrapf(ErrBackwardOnNonScalar, "backward from node of shape %v", root.Shape())
	}

	order := topoSort(root)

	pending := make(map[*Node]*tensor.Tensor, len(order))
	pending[root] = tensor.Full(root.Shape(), 1)

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		grad, ok := pending[n]
		if !ok {
			continue
		}
		delete(pending, n)

		if n.op == nil {
			if err := n.accumulate(grad); err != nil {
				return err
			}
			continue
		}
		n.grad = grad

		inputGrads, err := n.op.Backward(grad, g.backend)
		if err != nil {
			return errors.WithMessagef(err, "backward through %s", n.op.Name())
		}
		for j, parent := range n.parents {
			if !parent.requiresGrad {
				continue
			}
			if err := addPending(pending, parent, inputGrads[j]); err != nil {
				return errors.WithMessagef(err, "backward through %s", n.op.Name())
			}
		}
	}

	return nil
}

// addPending sums a gradient contribution for n into the per-pass map.
func addPending(pending map[*Node]*tensor.Tensor, n *Node, g *tensor.Tensor) error {
	if !g.Shape().Equal(n.Shape()) {
		return errors.Wrapf(ErrShapeMismatch, "gradient %v for operand of shape %v", g.Shape(), n.Shape())
	}
	existing, ok := pending[n]
	if !ok {
		pending[n] = g.Clone()
		return nil
	}
	dst := existing.Data()
	for i, v := range g.Data() {
		dst[i] += v
	}
	return nil
}

// topoSort returns the tracked nodes reachable from root, parents first.
// It uses an explicit stack so deep graphs cannot exhaust the goroutine stack.
func topoSort(root *Node) []*Node {
	type frame struct {
		node *Node
		next int // index of the next parent to visit
	}

	visited := map[*Node]bool{root: true}
	order := make([]*Node, 0, 16)
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.parents) {
			p := top.node.parents[top.next]
			top.next++
			if p.requiresGrad && !visited[p] {
				visited[p] = true
				stack = append(stack, frame{node: p})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}

	return order
}
