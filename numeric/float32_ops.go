package numeric

import "math"

// Float32Ops implements Arithmetic for float32, the TDN core's only
// numeric type.
type Float32Ops struct{}

func (Float32Ops) Add(a, b float32) float32 { return a + b }
func (Float32Ops) Sub(a, b float32) float32 { return a - b }
func (Float32Ops) Mul(a, b float32) float32 { return a * b }

func (Float32Ops) Div(a, b float32) float32 {
	if b == 0 {
		return 0
	}

	return a / b
}

func (Float32Ops) Tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// TanhGrad takes the already-computed tanh(x) value y and returns 1 - y^2,
// matching the layer's forward-then-backward data flow: Tanh's Forward
// stores y, so Backward never needs to recompute tanh(x).
func (Float32Ops) TanhGrad(y float32) float32 {
	return 1 - y*y
}

func (Float32Ops) ReLU(x float32) float32 {
	if x > 0 {
		return x
	}

	return 0
}

func (Float32Ops) Exp(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

func (Float32Ops) Log(x float32) float32 {
	return float32(math.Log(float64(x)))
}

func (Float32Ops) Max(a, b float32) float32 {
	if a > b {
		return a
	}

	return b
}

func (Float32Ops) Min(a, b float32) float32 {
	if a < b {
		return a
	}

	return b
}

func (o Float32Ops) Clip(x, lo, hi float32) float32 {
	return o.Max(lo, o.Min(hi, x))
}

func (Float32Ops) GreaterThan(a, b float32) float32 {
	if a > b {
		return 1
	}

	return 0
}

func (Float32Ops) LessThan(a, b float32) float32 {
	if a < b {
		return 1
	}

	return 0
}

func (Float32Ops) LessOrEqual(a, b float32) float32 {
	if a <= b {
		return 1
	}

	return 0
}
