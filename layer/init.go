package layer

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// InitVariables zero-initializes a Dense layer's eligibility traces.
// Activation and combinator layers own no variables and are a no-op.
func (l *Layer) InitVariables(st *state.State) error {
	if l.kind != Dense {
		return nil
	}

	m, n := l.dense.InputSize, l.dense.OutputSize
	st.PutWeightsTrace(l.name, tensor.Zeros([]int{m, n}))
	st.PutBiasTrace(l.name, tensor.Zeros([]int{1, n}))

	return nil
}

// InitParameters zero-initializes a Dense layer's bias and samples its
// weights Xavier-as-implemented: N(0,1) divided by (in_size+out_size),
// not the textbook Xavier variance; this must reproduce bit-for-bit.
func (l *Layer) InitParameters(st *state.State) error {
	if l.kind != Dense {
		return nil
	}

	m, n := l.dense.InputSize, l.dense.OutputSize
	st.PutBias(l.name, tensor.Zeros([]int{1, n}))

	raw := tensor.FillGaussian([]int{m, n}, st.RNG())
	w := tensor.UnaryScalar(raw, float32(m+n), l.engine.Ops().Div)
	st.PutWeights(l.name, w)

	return nil
}

// Validate asserts that a Dense layer's parameters and traces are present
// with shapes matching its declared sizes.
func (l *Layer) Validate(st *state.State) error {
	if l.kind != Dense {
		return nil
	}

	m, n := l.dense.InputSize, l.dense.OutputSize

	w, ok := st.GetWeights(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing weights", l.name, errs.ErrSpecInvalid)
	}
	if !w.ShapeEqual(tensor.Zeros([]int{m, n})) {
		return fmt.Errorf("layer: %s: %w: weights shape %v, want (%d, %d)", l.name, errs.ErrShapeMismatch, w.Shape(), m, n)
	}

	b, ok := st.GetBias(l.name)
	if !ok {
		return fmt.Errorf("layer: %s: %w: missing bias", l.name, errs.ErrSpecInvalid)
	}
	if !b.ShapeEqual(tensor.Zeros([]int{1, n})) {
		return fmt.Errorf("layer: %s: %w: bias shape %v, want (1, %d)", l.name, errs.ErrShapeMismatch, b.Shape(), n)
	}

	ew, ok := st.GetWeightsTrace(l.name)
	if !ok || !ew.ShapeEqual(w) {
		return fmt.Errorf("layer: %s: %w: weights trace missing or shape mismatch", l.name, errs.ErrShapeMismatch)
	}
	eb, ok := st.GetBiasTrace(l.name)
	if !ok || !eb.ShapeEqual(b) {
		return fmt.Errorf("layer: %s: %w: bias trace missing or shape mismatch", l.name, errs.ErrShapeMismatch)
	}

	return nil
}
