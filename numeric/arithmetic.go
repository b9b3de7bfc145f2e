// Package numeric provides the scalar operations the compute engine vectorizes
// over tensor data. Keeping scalar arithmetic separate from tensor storage
// and engine dispatch lets an Engine implementation vectorize these ops
// however it likes while layers stay agnostic to the concrete float type,
// here narrowed to the single float32 element type the TDN core requires.
package numeric

// Arithmetic collects the scalar operations the compute engine needs to
// vectorize across a tensor's backing slice.
type Arithmetic interface {
	Add(a, b float32) float32
	Sub(a, b float32) float32
	Mul(a, b float32) float32
	Div(a, b float32) float32

	Tanh(x float32) float32
	TanhGrad(y float32) float32 // derivative expressed in terms of tanh(x), not x
	ReLU(x float32) float32

	Exp(x float32) float32
	Log(x float32) float32

	Max(a, b float32) float32
	Min(a, b float32) float32
	Clip(x, lo, hi float32) float32

	GreaterThan(a, b float32) float32 // 1 if a > b else 0
	LessThan(a, b float32) float32    // 1 if a < b else 0
	LessOrEqual(a, b float32) float32 // 1 if a <= b else 0
}
