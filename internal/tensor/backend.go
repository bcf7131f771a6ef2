package tensor

// Backend defines the interface that compute backends implement.
// Backends handle the actual numerical work; the autodiff graph decides
// what to record and the operations in autodiff/ops decide how to
// differentiate it.
//
// Every method returns a freshly allocated tensor and never mutates its
// operands, so values captured by the graph stay valid for the backward pass.
//
// Implementations:
//   - CPU: pure Go on top of gonum (backend/cpu)
type Backend interface {
	// Name returns a human-readable backend name.
	Name() string

	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *Tensor) (*Tensor, error)
	Sub(a, b *Tensor) (*Tensor, error)
	Mul(a, b *Tensor) (*Tensor, error)

	// Element-wise unary operations.
	Scale(x *Tensor, factor float64) *Tensor
	Pow(x *Tensor, exponent float64) *Tensor
	Exp(x *Tensor) (*Tensor, error) // fails with ErrNumericalInstability on overflow
	ReLU(x *Tensor) *Tensor
	ReLUMask(x *Tensor) *Tensor // 1 where x > 0, else 0
	Sigmoid(x *Tensor) *Tensor

	// Matrix operations (2-D only).
	MatMul(a, b *Tensor) (*Tensor, error)
	Transpose(x *Tensor) (*Tensor, error)
	Linear(x, weight, bias *Tensor) (*Tensor, error) // x @ weight.T + bias; bias may be nil

	// Reductions.
	Sum(x *Tensor) *Tensor // scalar result
	SumAxis(x *Tensor, axis int, keepDim bool) (*Tensor, error)
	SumTo(x *Tensor, shape Shape) (*Tensor, error) // undo broadcasting by summation

	// Classification helpers.
	LogSoftmax(x *Tensor, axis int) (*Tensor, error)
	Softmax(x *Tensor, axis int) (*Tensor, error)
	NLLLoss(logProbs *Tensor, labels []int) (*Tensor, error) // scalar mean negative log-likelihood
}
