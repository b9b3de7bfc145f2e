package layer_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState() *state.State {
	return state.New(1, compute.NewCPUEngine())
}

func row(t *testing.T, data ...float32) *tensor.Tensor {
	t.Helper()
	v, err := tensor.New([]int{1, len(data)}, data)
	require.NoError(t, err)

	return v
}

// S1: Linear identity.
func TestLinearIdentity(t *testing.T) {
	engine := compute.NewCPUEngine()
	l, err := layer.NewLinear("out", "in", engine, layer.LinearParams{B: 0, W: 1})
	require.NoError(t, err)

	st := newState()
	st.PutValues("in", row(t, 3.0))
	require.NoError(t, l.Forward(st, false))

	out, ok := st.GetValues("out")
	require.True(t, ok)
	assert.Equal(t, []float32{3.0}, out.Data())

	st.PutGrads("out", row(t, 2.0))
	delta := row(t, 0)
	require.NoError(t, l.Train(st, delta, 0, nil))

	inGrads, ok := st.GetGrads("in")
	require.True(t, ok)
	assert.Equal(t, []float32{2.0}, inGrads.Data())
}

// S2: Tanh activation.
func TestTanhActivation(t *testing.T) {
	engine := compute.NewCPUEngine()
	l, err := layer.NewTanh("y", "x", engine)
	require.NoError(t, err)

	st := newState()
	st.PutValues("x", row(t, 0, 1))
	require.NoError(t, l.Forward(st, false))

	y, ok := st.GetValues("y")
	require.True(t, ok)
	assert.InDelta(t, 0, y.Data()[0], 1e-4)
	assert.InDelta(t, math.Tanh(1), y.Data()[1], 1e-4)

	st.PutGrads("y", row(t, 1, 1))
	require.NoError(t, l.Train(st, row(t, 0), 0, nil))

	xGrads, ok := st.GetGrads("x")
	require.True(t, ok)
	assert.InDelta(t, 1, xGrads.Data()[0], 1e-4)
	assert.InDelta(t, 0.4200, xGrads.Data()[1], 1e-3)
}

// S3: ReLU mask.
func TestReLUMask(t *testing.T) {
	engine := compute.NewCPUEngine()
	l, err := layer.NewReLU("y", "x", engine)
	require.NoError(t, err)

	st := newState()
	st.PutValues("x", row(t, -1, 2, 0, 3))
	require.NoError(t, l.Forward(st, false))

	y, ok := st.GetValues("y")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 2, 0, 3}, y.Data())

	st.PutGrads("y", row(t, 1, 1, 1, 1))
	require.NoError(t, l.Train(st, row(t, 0), 0, nil))

	xGrads, ok := st.GetGrads("x")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1, 0, 1}, xGrads.Data())
}

// S4: Softmax row sum.
func TestSoftmaxRowSum(t *testing.T) {
	engine := compute.NewCPUEngine()
	l, err := layer.NewSoftmax("y", "x", engine, layer.SoftmaxParams{Temperature: 1})
	require.NoError(t, err)

	st := newState()
	st.PutValues("x", row(t, 1, 2, 3))
	require.NoError(t, l.Forward(st, false))

	y, ok := st.GetValues("y")
	require.True(t, ok)

	var sum float32
	maxIdx := 0
	for i, v := range y.Data() {
		sum += v
		if v > y.Data()[maxIdx] {
			maxIdx = i
		}
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
	assert.InDelta(t, 1, sum, 1e-5)
	assert.Equal(t, 2, maxIdx)
}

// S6: Concat/Sum composition.
func TestConcatSumComposition(t *testing.T) {
	engine := compute.NewCPUEngine()
	concat, err := layer.NewConcat("c", []string{"a", "b"}, engine)
	require.NoError(t, err)
	sum, err := layer.NewSum("s", []string{"a", "b"}, engine)
	require.NoError(t, err)

	st := newState()
	st = st.SetSizes(map[string]int{"a": 2, "b": 2, "c": 4, "s": 2})
	st.PutValues("a", row(t, 1, 2))
	st.PutValues("b", row(t, 3, 4))

	require.NoError(t, concat.Forward(st, false))
	require.NoError(t, sum.Forward(st, false))

	c, ok := st.GetValues("c")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3, 4}, c.Data())

	s, ok := st.GetValues("s")
	require.True(t, ok)
	assert.Equal(t, []float32{4, 6}, s.Data())

	st.PutGrads("c", row(t, 10, 20, 30, 40))
	st.PutGrads("s", row(t, 100, 200))

	delta := row(t, 0)
	require.NoError(t, concat.Train(st, delta, 0, nil))
	require.NoError(t, sum.Train(st, delta, 0, nil))

	aGrads, ok := st.GetGrads("a")
	require.True(t, ok)
	assert.Equal(t, []float32{110, 220}, aGrads.Data())

	bGrads, ok := st.GetGrads("b")
	require.True(t, ok)
	assert.Equal(t, []float32{130, 240}, bGrads.Data())
}

// S5: Dense Xavier-init determinism and one eligibility-trace step.
func TestDenseXavierAndTraceStep(t *testing.T) {
	engine := compute.NewCPUEngine()
	d, err := layer.NewDense("dense", "x", engine, layer.DenseParams{
		InputSize: 2, OutputSize: 2, MaxAbsWeights: 10, DropOut: 1,
	})
	require.NoError(t, err)

	st := state.New(42, engine)
	st = st.SetSizes(map[string]int{"x": 2, "dense": 2})
	require.NoError(t, d.InitVariables(st))
	require.NoError(t, d.InitParameters(st))

	want := rand.New(rand.NewSource(42))
	expected := make([]float32, 4)
	for i := range expected {
		expected[i] = float32(want.NormFloat64()) / 4
	}

	w, ok := st.GetWeights("dense")
	require.True(t, ok)
	for i, v := range w.Data() {
		assert.InDelta(t, expected[i], v, 1e-6)
	}

	st.PutValues("x", row(t, 1, 1))
	require.NoError(t, d.Forward(st, false))

	st.PutGrads("dense", row(t, 1, 0))
	delta := row(t, 1)
	require.NoError(t, d.Train(st, delta, 0, nil))

	eb, ok := st.GetBiasTrace("dense")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, eb.Data())

	ew, ok := st.GetWeightsTrace("dense")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0, 1, 0}, ew.Data())

	newW, ok := st.GetWeights("dense")
	require.True(t, ok)
	for _, v := range newW.Data() {
		assert.LessOrEqual(t, float32(math.Abs(float64(v))), float32(10))
	}
}

// Eligibility-trace decay: lambda=0 keeps only the latest gradient; lambda=1
// accumulates every step's gradient.
func TestEligibilityTraceDecayInvariant(t *testing.T) {
	engine := compute.NewCPUEngine()
	d, err := layer.NewDense("dense", "x", engine, layer.DenseParams{
		InputSize: 1, OutputSize: 1, MaxAbsWeights: 100, DropOut: 1,
	})
	require.NoError(t, err)

	st := state.New(7, engine)
	st = st.SetSizes(map[string]int{"x": 1, "dense": 1})
	require.NoError(t, d.InitVariables(st))
	require.NoError(t, d.InitParameters(st))

	st.PutValues("x", row(t, 2))
	require.NoError(t, d.Forward(st, false))
	st.PutGrads("dense", row(t, 5))
	require.NoError(t, d.Train(st, row(t, 0), 0, nil))

	eb, _ := st.GetBiasTrace("dense")
	assert.Equal(t, []float32{5}, eb.Data())

	st.PutValues("x", row(t, 3))
	require.NoError(t, d.Forward(st, false))
	st.PutGrads("dense", row(t, 7))
	require.NoError(t, d.Train(st, row(t, 0), 1, nil))

	eb2, _ := st.GetBiasTrace("dense")
	assert.Equal(t, []float32{12}, eb2.Data())
}
