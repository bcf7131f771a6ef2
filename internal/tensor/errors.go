package tensor

import "github.com/pkg/errors"

// Sentinel errors shared by tensor construction and the compute backends.
// Call sites wrap them with context; match with errors.Is.
var (
	// ErrInvalidShape is returned for shapes with non-positive dimensions.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrShapeMismatch is returned when operand dimensions are incompatible.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIndexOutOfRange is returned for class labels or axes outside their valid range.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNumericalInstability is returned when an exponentiation overflows or
	// a non-finite value reaches an operation that cannot absorb it.
	ErrNumericalInstability = errors.New("numerical instability")
)
