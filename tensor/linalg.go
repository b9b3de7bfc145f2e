package tensor

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/internal/xblas"
)

// MatMul computes a @ b for rank-2 tensors, dispatching to BLAS SGEMM.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		return nil, fmt.Errorf("tensor: MatMul requires rank-2 operands, got %v and %v", a.shape, b.shape)
	}
	if a.shape[1] != b.shape[0] {
		return nil, fmt.Errorf("tensor: MatMul inner dimensions mismatch: %v @ %v", a.shape, b.shape)
	}

	m, k, n := a.shape[0], a.shape[1], b.shape[1]
	out := Zeros([]int{m, n})
	xblas.GemmF32(m, n, k, a.data, b.data, out.data)

	return out, nil
}

// Transpose returns the transpose of a rank-2 tensor.
func Transpose(a *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("tensor: Transpose requires rank 2, got rank %d", len(a.shape))
	}

	rows, cols := a.shape[0], a.shape[1]
	out := Zeros([]int{cols, rows})
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.data[c*rows+r] = a.data[r*cols+c]
		}
	}

	return out, nil
}

// SumAxis reduces a along the given axis. If keepDims is true the reduced
// axis is retained with size 1, which keeps the result broadcastable
// against the original tensor (used by Softmax's row-sum).
func SumAxis(a *Tensor, axis int, keepDims bool) (*Tensor, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("tensor: axis %d out of range for rank %d", axis, len(a.shape))
	}

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= a.shape[i]
	}
	inner := 1
	for i := axis + 1; i < len(a.shape); i++ {
		inner *= a.shape[i]
	}
	axisSize := a.shape[axis]

	var outShape []int
	if keepDims {
		outShape = append([]int(nil), a.shape...)
		outShape[axis] = 1
	} else {
		for i, d := range a.shape {
			if i != axis {
				outShape = append(outShape, d)
			}
		}
		if len(outShape) == 0 {
			outShape = []int{1}
		}
	}

	out := Zeros(outShape)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum float32
			for ax := 0; ax < axisSize; ax++ {
				sum += a.data[(o*axisSize+ax)*inner+in]
			}
			out.data[o*inner+in] = sum
		}
	}

	return out, nil
}
