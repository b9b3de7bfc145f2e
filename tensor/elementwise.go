package tensor

import "fmt"

// ElementWise applies fn(a_i, b_i) over the broadcast shape of a and b,
// returning a new tensor of the broadcast shape. It backs every
// broadcastable binary op the compute engine exposes.
func ElementWise(a, b *Tensor, fn func(x, y float32) float32) (*Tensor, error) {
	outShape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, fmt.Errorf("tensor: elementwise op: %w", err)
	}

	out := Zeros(outShape)
	aBroadcast := !SameShape(a.shape, outShape)
	bBroadcast := !SameShape(b.shape, outShape)

	for i := range out.data {
		ai := i
		if aBroadcast {
			ai = broadcastIndex(i, a.shape, outShape)
		}
		bi := i
		if bBroadcast {
			bi = broadcastIndex(i, b.shape, outShape)
		}
		out.data[i] = fn(a.data[ai], b.data[bi])
	}

	return out, nil
}

// Unary applies fn element-wise, returning a new tensor of the same shape.
func Unary(a *Tensor, fn func(x float32) float32) *Tensor {
	out := Zeros(a.shape)
	for i, v := range a.data {
		out.data[i] = fn(v)
	}

	return out
}

// UnaryScalar applies fn(x, scalar) element-wise, returning a new tensor of
// the same shape as a.
func UnaryScalar(a *Tensor, scalar float32, fn func(x, s float32) float32) *Tensor {
	out := Zeros(a.shape)
	for i, v := range a.data {
		out.data[i] = fn(v, scalar)
	}

	return out
}
