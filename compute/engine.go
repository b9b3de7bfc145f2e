// Package compute routes every tensor operation the TDN core performs
// through a single Engine implementation, separating tensor storage
// (package tensor) from the scalar ops that act on it (package numeric)
// from the engine that vectorizes those ops over shaped data (this
// package). Keeping the split means the layer catalog never touches a raw
// []float32 directly.
package compute

import "github.com/m-marini/wheellyj-sub014/tensor"

// Engine is the narrow set of NDArray operations the layer catalog and the
// actor-critic step consume. These are synchronous, in-process CPU
// operations with no cancellation points (there is no suspension point
// inside a training step to cancel), so no context.Context is threaded
// through any method.
type Engine interface {
	Add(a, b *tensor.Tensor) (*tensor.Tensor, error)
	Sub(a, b *tensor.Tensor) (*tensor.Tensor, error)
	Mul(a, b *tensor.Tensor) (*tensor.Tensor, error)
	Div(a, b *tensor.Tensor) (*tensor.Tensor, error)

	AddInPlace(dst, delta *tensor.Tensor) error
	ScaleInPlace(dst *tensor.Tensor, scalar float32) error

	MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error)
	Transpose(a *tensor.Tensor) (*tensor.Tensor, error)

	Tanh(a *tensor.Tensor) (*tensor.Tensor, error)
	Exp(a *tensor.Tensor) (*tensor.Tensor, error)
	Log(a *tensor.Tensor) (*tensor.Tensor, error)

	Max(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error)
	Min(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error)
	Clip(a *tensor.Tensor, lo, hi float32) (*tensor.Tensor, error)

	GreaterThanScalar(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error)
	LessThanScalar(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error)
	LessOrEqualScalar(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error)

	SumAxis(a *tensor.Tensor, axis int, keepDims bool) (*tensor.Tensor, error)
	Softmax(a *tensor.Tensor, axis int) (*tensor.Tensor, error)

	// Ops exposes the underlying scalar arithmetic, for code that needs a
	// single-element operation (e.g. the eligibility-trace row loop).
	Ops() numericOps
}

// numericOps is the subset of numeric.Arithmetic the engine re-exports;
// declared locally to avoid layer/network code importing package numeric
// just to call Ops().
type numericOps interface {
	Add(a, b float32) float32
	Sub(a, b float32) float32
	Mul(a, b float32) float32
	Div(a, b float32) float32
	Tanh(x float32) float32
	TanhGrad(y float32) float32
	ReLU(x float32) float32
	Exp(x float32) float32
	Log(x float32) float32
	Max(a, b float32) float32
	Min(a, b float32) float32
	Clip(x, lo, hi float32) float32
	GreaterThan(a, b float32) float32
	LessThan(a, b float32) float32
	LessOrEqual(a, b float32) float32
}
