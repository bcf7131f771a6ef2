package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/backprop/internal/tensor"
)

// Errors returned by graph construction and the backward pass.
// Match them with errors.Is; returned errors carry operation context.
var (
	// ErrShapeMismatch reports operands whose shapes an operation cannot combine.
	ErrShapeMismatch = tensor.ErrShapeMismatch

	// ErrIndexOutOfRange reports a class label or axis outside its valid range.
	ErrIndexOutOfRange = tensor.ErrIndexOutOfRange

	// ErrNumericalInstability reports overflow or non-finite values in exponentiation.
	ErrNumericalInstability = tensor.ErrNumericalInstability

	// ErrBackwardOnNonScalar reports a backward pass started from a node with more than one element.
	ErrBackwardOnNonScalar = errors.New("backward requires a scalar output")

	// ErrNoGradientContext reports a backward pass started from a node that is not tracked.
	ErrNoGradientContext = errors.New("node was created without gradient tracking")
)
