package network_test

import (
	"bytes"
	"log"
	"math"
	"testing"

	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/network"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trunkDescriptors() []layer.Descriptor {
	return []layer.Descriptor{
		{Name: "h", Kind: layer.Dense, Inputs: []string{"state"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 2, MaxAbsWeights: 10, DropOut: 1}},
		{Name: "hTanh", Kind: layer.Tanh, Inputs: []string{"h"}},
		{Name: "critic", Kind: layer.Dense, Inputs: []string{"hTanh"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 1, MaxAbsWeights: 10, DropOut: 1}},
		{Name: "policy", Kind: layer.Dense, Inputs: []string{"hTanh"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 2, MaxAbsWeights: 10, DropOut: 1}},
		{Name: "action", Kind: layer.Softmax, Inputs: []string{"policy"}, Softmax: layer.SoftmaxParams{Temperature: 1}},
	}
}

func trunkSizes() map[string]int {
	return map[string]int{"state": 2, "h": 2, "hTanh": 2, "critic": 1, "policy": 2, "action": 2}
}

func TestNetworkBuildSourcesAndSinks(t *testing.T) {
	engine := compute.NewCPUEngine()
	n, err := network.New(trunkDescriptors(), trunkSizes(), engine, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"state"}, n.Sources())
	assert.ElementsMatch(t, []string{"critic", "action"}, n.Sinks())
}

func TestNetworkRejectsForwardReference(t *testing.T) {
	descs := []layer.Descriptor{
		{Name: "a", Kind: layer.Tanh, Inputs: []string{"b"}},
		{Name: "b", Kind: layer.Tanh, Inputs: []string{"x"}},
	}
	_, err := network.New(descs, map[string]int{"x": 1, "a": 1, "b": 1}, compute.NewCPUEngine(), 1)
	require.Error(t, err)
}

func TestNetworkRejectsUndeclaredSize(t *testing.T) {
	descs := []layer.Descriptor{
		{Name: "a", Kind: layer.Tanh, Inputs: []string{"x"}},
	}
	_, err := network.New(descs, map[string]int{"a": 1}, compute.NewCPUEngine(), 1)
	require.Error(t, err)
}

// A forward/backward round-trip leaves both sinks' values and the trunk
// weights at their declared shapes.
func TestForwardBackwardShapeInvariance(t *testing.T) {
	engine := compute.NewCPUEngine()
	n, err := network.New(trunkDescriptors(), trunkSizes(), engine, 1)
	require.NoError(t, err)

	s0, err := tensor.New([]int{1, 2}, []float32{0.1, -0.2})
	require.NoError(t, err)

	trained, err := n.Forward(map[string]*tensor.Tensor{"state": s0}, true)
	require.NoError(t, err)

	critic, ok := trained.Values("critic")
	require.True(t, ok)
	assert.Equal(t, []int{1, 1}, critic.Shape())

	action, ok := trained.Values("action")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, action.Shape())

	criticGrad, err := tensor.New([]int{1, 1}, []float32{0.3})
	require.NoError(t, err)
	policyGrad, err := tensor.New([]int{1, 2}, []float32{0.1, -0.1})
	require.NoError(t, err)
	delta, err := tensor.New([]int{1, 1}, []float32{0.3})
	require.NoError(t, err)

	afterTrain, err := trained.Train(map[string]*tensor.Tensor{
		"critic": criticGrad,
		"action": policyGrad,
	}, delta, 0.5, nil)
	require.NoError(t, err)

	w, ok := afterTrain.State().GetWeights("h")
	require.True(t, ok)
	assert.Equal(t, []int{2, 2}, w.Shape())
}

// Weights never exceed the declared clip bound, however large the
// accumulated update.
func TestWeightClippingInvariant(t *testing.T) {
	engine := compute.NewCPUEngine()
	descs := []layer.Descriptor{
		{Name: "d", Kind: layer.Dense, Inputs: []string{"x"}, Dense: layer.DenseParams{InputSize: 1, OutputSize: 1, MaxAbsWeights: 0.01, DropOut: 1}},
	}
	n, err := network.New(descs, map[string]int{"x": 1, "d": 1}, engine, 3)
	require.NoError(t, err)

	x, _ := tensor.New([]int{1, 1}, []float32{1})
	delta, _ := tensor.New([]int{1, 1}, []float32{1})
	grad, _ := tensor.New([]int{1, 1}, []float32{1000})

	for i := 0; i < 5; i++ {
		n, err = n.Forward(map[string]*tensor.Tensor{"x": x}, true)
		require.NoError(t, err)
		n, err = n.Train(map[string]*tensor.Tensor{"d": grad}, delta, 0, nil)
		require.NoError(t, err)
	}

	w, ok := n.State().GetWeights("d")
	require.True(t, ok)
	for _, v := range w.Data() {
		assert.LessOrEqual(t, v, float32(0.01))
		assert.GreaterOrEqual(t, v, float32(-0.01))
	}
}

func TestLoadParametersShapeMismatch(t *testing.T) {
	engine := compute.NewCPUEngine()
	n, err := network.New(trunkDescriptors(), trunkSizes(), engine, 1)
	require.NoError(t, err)

	bad, _ := tensor.New([]int{1, 1}, []float32{1})
	_, err = n.LoadParameters(map[state.Key]*tensor.Tensor{
		{Layer: "h", Slot: state.Weights}: bad,
	})
	require.Error(t, err)
}

// A dropout mask must only be sampled on a training forward: an inference
// forward with DropOut < 1 leaves the input untouched and writes no mask.
func TestDenseDropoutOnlyAppliesWhenTraining(t *testing.T) {
	engine := compute.NewCPUEngine()
	descs := []layer.Descriptor{
		{Name: "d", Kind: layer.Dense, Inputs: []string{"x"}, Dense: layer.DenseParams{InputSize: 1, OutputSize: 1, MaxAbsWeights: 10, DropOut: 0.5}},
	}
	n, err := network.New(descs, map[string]int{"x": 1, "d": 1}, engine, 1)
	require.NoError(t, err)

	x, _ := tensor.New([]int{1, 1}, []float32{1})

	inferred, err := n.Forward(map[string]*tensor.Tensor{"x": x}, false)
	require.NoError(t, err)

	_, hasMask := inferred.State().GetMask("d")
	assert.False(t, hasMask, "inference forward must not sample a dropout mask")
}

// A NaN produced by a layer is logged, not fatal: the step still returns
// successfully.
func TestForwardLogsNumericInstability(t *testing.T) {
	engine := compute.NewCPUEngine()
	descs := []layer.Descriptor{
		{Name: "y", Kind: layer.Linear, Inputs: []string{"x"}, Linear: layer.LinearParams{B: 0, W: 1}},
	}
	n, err := network.New(descs, map[string]int{"x": 1, "y": 1}, engine, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	n = n.SetLogger(log.New(&buf, "", 0))

	nan := float32(math.NaN())
	x, _ := tensor.New([]int{1, 1}, []float32{nan})

	out, err := n.Forward(map[string]*tensor.Tensor{"x": x}, false)
	require.NoError(t, err)

	y, ok := out.Values("y")
	require.True(t, ok)
	assert.True(t, math.IsNaN(float64(y.Data()[0])))
	assert.Contains(t, buf.String(), "numeric instability")
}

func TestParametersFilteredSnapshot(t *testing.T) {
	engine := compute.NewCPUEngine()
	n, err := network.New(trunkDescriptors(), trunkSizes(), engine, 1)
	require.NoError(t, err)

	params := n.Parameters()
	_, ok := params.GetWeights("h")
	assert.True(t, ok)
	_, ok = params.GetValues("h")
	assert.False(t, ok)
}
