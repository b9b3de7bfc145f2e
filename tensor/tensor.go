// Package tensor provides the fixed-precision dense array used by the TDN core.
//
// Shapes are row-major and rank is bounded at 4, matching the shapes the
// eligibility-trace layer catalog and the actor-critic step ever construct
// (batches of signal vectors, weight matrices, and scalar reductions).
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// MaxRank is the highest tensor rank the core ever constructs.
const MaxRank = 4

// Tensor is an n-dimensional array of float32 values in row-major order.
type Tensor struct {
	shape   []int
	strides []int
	data    []float32
}

// New creates a tensor of the given shape. If data is nil a zero-filled
// backing slice is allocated.
func New(shape []int, data []float32) (*Tensor, error) {
	if len(shape) > MaxRank {
		return nil, fmt.Errorf("tensor: rank %d exceeds max rank %d", len(shape), MaxRank)
	}

	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("tensor: invalid shape dimension %d in %v", d, shape)
		}
		size *= d
	}

	if data == nil {
		data = make([]float32, size)
	}
	if len(data) != size {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (size %d)", len(data), shape, size)
	}

	shapeCopy := append([]int(nil), shape...)

	return &Tensor{
		shape:   shapeCopy,
		strides: stridesOf(shapeCopy),
		data:    data,
	}, nil
}

// Zeros creates a zero-filled tensor of the given shape.
func Zeros(shape []int) *Tensor {
	t, err := New(shape, nil)
	if err != nil {
		// Shapes built internally by the layer catalog are always valid;
		// a failure here means a programming error, not bad input.
		panic(err)
	}

	return t
}

func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}

	return strides
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Size returns the total element count.
func (t *Tensor) Size() int {
	n := 1
	for _, d := range t.shape {
		n *= d
	}

	return n
}

// Dim returns the size of a given axis, or 1 if the tensor has fewer dims
// than axis+1 (used when comparing shapes that differ in rank).
func (t *Tensor) Dim(axis int) int {
	if axis < 0 || axis >= len(t.shape) {
		return 1
	}

	return t.shape[axis]
}

// Data returns the tensor's backing slice directly; callers that intend to
// keep a value across a mutation must Clone first.
func (t *Tensor) Data() []float32 {
	return t.data
}

// ShapeEqual reports whether two tensors have identical shapes.
func (t *Tensor) ShapeEqual(o *Tensor) bool {
	return SameShape(t.shape, o.shape)
}

// SameShape reports whether two shape slices are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)

	return &Tensor{
		shape:   append([]int(nil), t.shape...),
		strides: append([]int(nil), t.strides...),
		data:    data,
	}
}

// At returns the value at the given multi-index.
func (t *Tensor) At(indices ...int) (float32, error) {
	if len(indices) != len(t.shape) {
		return 0, fmt.Errorf("tensor: expected %d indices, got %d", len(t.shape), len(indices))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			return 0, fmt.Errorf("tensor: index %d out of bounds for dim %d (size %d)", idx, i, t.shape[i])
		}
		offset += idx * t.strides[i]
	}

	return t.data[offset], nil
}

// Set assigns the value at the given multi-index.
func (t *Tensor) Set(value float32, indices ...int) error {
	if len(indices) != len(t.shape) {
		return fmt.Errorf("tensor: expected %d indices, got %d", len(t.shape), len(indices))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			return fmt.Errorf("tensor: index %d out of bounds for dim %d (size %d)", idx, i, t.shape[i])
		}
		offset += idx * t.strides[i]
	}

	t.data[offset] = value

	return nil
}

// Row returns a copy of row i of a rank-2 tensor as a (1, n) tensor.
func (t *Tensor) Row(i int) (*Tensor, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("tensor: Row requires rank 2, got rank %d", len(t.shape))
	}
	if i < 0 || i >= t.shape[0] {
		return nil, fmt.Errorf("tensor: row index %d out of bounds for %d rows", i, t.shape[0])
	}

	n := t.shape[1]
	data := make([]float32, n)
	copy(data, t.data[i*n:(i+1)*n])

	return New([]int{1, n}, data)
}

// SetRow writes src (shape (1, n) or (n)) into row i of a rank-2 tensor.
func (t *Tensor) SetRow(i int, src *Tensor) error {
	if len(t.shape) != 2 {
		return fmt.Errorf("tensor: SetRow requires rank 2, got rank %d", len(t.shape))
	}
	if i < 0 || i >= t.shape[0] {
		return fmt.Errorf("tensor: row index %d out of bounds for %d rows", i, t.shape[0])
	}
	if src.Size() != t.shape[1] {
		return fmt.Errorf("tensor: row width %d does not match source size %d", t.shape[1], src.Size())
	}

	n := t.shape[1]
	copy(t.data[i*n:(i+1)*n], src.data)

	return nil
}

// Slice extracts the half-open range [start, end) along axis, returning a
// new tensor that owns a copy of the selected data.
func (t *Tensor) Slice(axis, start, end int) (*Tensor, error) {
	if axis < 0 || axis >= len(t.shape) {
		return nil, fmt.Errorf("tensor: axis %d out of range for rank %d", axis, len(t.shape))
	}
	if start < 0 || end > t.shape[axis] || start > end {
		return nil, fmt.Errorf("tensor: invalid slice range [%d:%d) for axis %d (size %d)", start, end, axis, t.shape[axis])
	}

	newShape := append([]int(nil), t.shape...)
	newShape[axis] = end - start

	result, err := New(newShape, nil)
	if err != nil {
		return nil, err
	}

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= t.shape[i]
	}
	inner := 1
	for i := axis + 1; i < len(t.shape); i++ {
		inner *= t.shape[i]
	}

	axisSize := t.shape[axis]
	newAxisSize := end - start

	for o := 0; o < outer; o++ {
		for a := 0; a < newAxisSize; a++ {
			srcOff := (o*axisSize + (start + a)) * inner
			dstOff := (o*newAxisSize + a) * inner
			copy(result.data[dstOff:dstOff+inner], t.data[srcOff:srcOff+inner])
		}
	}

	return result, nil
}

// Reshape returns a new tensor with newShape sharing no data with the
// original (a defensive copy, to keep NetworkState entries independent).
func (t *Tensor) Reshape(newShape []int) (*Tensor, error) {
	size := 1
	for _, d := range newShape {
		if d <= 0 {
			return nil, fmt.Errorf("tensor: invalid reshape dimension %d", d)
		}
		size *= d
	}
	if size != t.Size() {
		return nil, fmt.Errorf("tensor: cannot reshape size %d into shape %v (size %d)", t.Size(), newShape, size)
	}

	data := make([]float32, len(t.data))
	copy(data, t.data)

	return New(newShape, data)
}

// IsFinite reports whether every element is neither NaN nor +/-Inf. Used by
// the network's numeric-instability check: a NaN/Inf observed in values
// after forward, or in weights after a parameter update, is logged and
// otherwise non-fatal.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Tensor {
	m := Zeros([]int{n, n})
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}

	return m
}

// String implements fmt.Stringer for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, data=%v)", t.shape, t.data)
}

// ErrRankMismatch is returned by operations that require a specific rank.
var ErrRankMismatch = errors.New("tensor: rank mismatch")
