package tensor

import "fmt"

// BroadcastShapes computes the resulting shape of broadcasting a against b,
// trailing-aligned per NumPy-style rules. It is used by the element-wise
// binary ops and by Dense's bias-add.
func BroadcastShapes(a, b []int) ([]int, error) {
	lenA, lenB := len(a), len(b)
	maxLen := lenA
	if lenB > maxLen {
		maxLen = lenB
	}

	result := make([]int, maxLen)
	for i := 1; i <= maxLen; i++ {
		dimA := 1
		if i <= lenA {
			dimA = a[lenA-i]
		}
		dimB := 1
		if i <= lenB {
			dimB = b[lenB-i]
		}

		if dimA != dimB && dimA != 1 && dimB != 1 {
			return nil, fmt.Errorf("tensor: shapes %v and %v are not broadcast compatible at dimension %d (%d vs %d)", a, b, i, dimA, dimB)
		}

		if dimA > dimB {
			result[maxLen-i] = dimA
		} else {
			result[maxLen-i] = dimB
		}
	}

	return result, nil
}

// broadcastIndex maps a linear index in the broadcast output shape back to
// the linear index in the (possibly smaller-rank) source shape.
func broadcastIndex(linear int, srcShape, outShape []int) int {
	outStrides := stridesOf(outShape)
	srcStrides := stridesOf(srcShape)

	rankDiff := len(outShape) - len(srcShape)
	srcIndex := 0

	for i := range outShape {
		coord := (linear / outStrides[i]) % outShape[i]

		srcDim := i - rankDiff
		if srcDim < 0 {
			continue
		}
		if srcShape[srcDim] == 1 {
			continue
		}
		srcIndex += coord * srcStrides[srcDim]
	}

	return srcIndex
}
