package compute

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/numeric"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// CPUEngine is the only Engine implementation the core ships: every
// operation runs synchronously on the calling goroutine, matching the
// single-threaded cooperative scheduling model this core runs under
// (there is no suspension point inside a training step).
type CPUEngine struct {
	ops numeric.Float32Ops
}

// NewCPUEngine creates a CPU-backed engine.
func NewCPUEngine() *CPUEngine {
	return &CPUEngine{ops: numeric.Float32Ops{}}
}

func (e *CPUEngine) Ops() numericOps { return e.ops }

func (e *CPUEngine) Add(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ElementWise(a, b, e.ops.Add)
}

func (e *CPUEngine) Sub(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ElementWise(a, b, e.ops.Sub)
}

func (e *CPUEngine) Mul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ElementWise(a, b, e.ops.Mul)
}

func (e *CPUEngine) Div(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ElementWise(a, b, e.ops.Div)
}

// AddInPlace accumulates delta into dst; dst and delta must share shape.
func (e *CPUEngine) AddInPlace(dst, delta *tensor.Tensor) error {
	if !dst.ShapeEqual(delta) {
		return fmt.Errorf("compute: AddInPlace shape mismatch: %v vs %v", dst.Shape(), delta.Shape())
	}

	dData, deltaData := dst.Data(), delta.Data()
	for i := range dData {
		dData[i] = e.ops.Add(dData[i], deltaData[i])
	}

	return nil
}

// ScaleInPlace multiplies every element of dst by scalar.
func (e *CPUEngine) ScaleInPlace(dst *tensor.Tensor, scalar float32) error {
	data := dst.Data()
	for i := range data {
		data[i] = e.ops.Mul(data[i], scalar)
	}

	return nil
}

func (e *CPUEngine) MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.MatMul(a, b)
}

func (e *CPUEngine) Transpose(a *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Transpose(a)
}

func (e *CPUEngine) Tanh(a *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Unary(a, e.ops.Tanh), nil
}

func (e *CPUEngine) Exp(a *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Unary(a, e.ops.Exp), nil
}

func (e *CPUEngine) Log(a *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Unary(a, e.ops.Log), nil
}

func (e *CPUEngine) Max(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error) {
	return tensor.UnaryScalar(a, scalar, e.ops.Max), nil
}

func (e *CPUEngine) Min(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error) {
	return tensor.UnaryScalar(a, scalar, e.ops.Min), nil
}

func (e *CPUEngine) Clip(a *tensor.Tensor, lo, hi float32) (*tensor.Tensor, error) {
	out := tensor.Zeros(a.Shape())
	data, src := out.Data(), a.Data()
	for i := range src {
		data[i] = e.ops.Clip(src[i], lo, hi)
	}

	return out, nil
}

func (e *CPUEngine) GreaterThanScalar(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error) {
	return tensor.UnaryScalar(a, scalar, e.ops.GreaterThan), nil
}

func (e *CPUEngine) LessThanScalar(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error) {
	return tensor.UnaryScalar(a, scalar, e.ops.LessThan), nil
}

func (e *CPUEngine) LessOrEqualScalar(a *tensor.Tensor, scalar float32) (*tensor.Tensor, error) {
	return tensor.UnaryScalar(a, scalar, e.ops.LessOrEqual), nil
}

func (e *CPUEngine) SumAxis(a *tensor.Tensor, axis int, keepDims bool) (*tensor.Tensor, error) {
	return tensor.SumAxis(a, axis, keepDims)
}

// Softmax applies softmax along axis. If every Exp in a row underflows to
// 0, the row sum is 0 and the row comes out all zeros, since Div returns 0
// for a zero divisor.
func (e *CPUEngine) Softmax(a *tensor.Tensor, axis int) (*tensor.Tensor, error) {
	exps, err := e.Exp(a)
	if err != nil {
		return nil, err
	}

	sums, err := tensor.SumAxis(exps, axis, true)
	if err != nil {
		return nil, err
	}

	return tensor.ElementWise(exps, sums, e.ops.Div)
}

var _ Engine = (*CPUEngine)(nil)
