package agent_test

import (
	"math/rand"
	"testing"

	"github.com/m-marini/wheellyj-sub014/agent"
	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/network"
	"github.com/m-marini/wheellyj-sub014/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallTrunk(t *testing.T) *network.Network {
	t.Helper()

	descs := []layer.Descriptor{
		{Name: "h", Kind: layer.Dense, Inputs: []string{"state"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 2, MaxAbsWeights: 10, DropOut: 1}},
		{Name: "hTanh", Kind: layer.Tanh, Inputs: []string{"h"}},
		{Name: "critic", Kind: layer.Dense, Inputs: []string{"hTanh"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 1, MaxAbsWeights: 10, DropOut: 1}},
		{Name: "policy", Kind: layer.Dense, Inputs: []string{"hTanh"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 2, MaxAbsWeights: 10, DropOut: 1}},
		{Name: "action", Kind: layer.Softmax, Inputs: []string{"policy"}, Softmax: layer.SoftmaxParams{Temperature: 1}},
	}
	sizes := map[string]int{"state": 2, "h": 2, "hTanh": 2, "critic": 1, "policy": 2, "action": 2}

	n, err := network.New(descs, sizes, compute.NewCPUEngine(), 11)
	require.NoError(t, err)

	return n
}

func smallConfig() agent.Config {
	return agent.Config{
		Critic:             "critic",
		Actors:             []agent.ActorSpec{{Layer: "action", Values: []float32{-1, 1}}},
		RewardDecay:        10,
		ValueDecay:         5,
		Alpha:              []float32{0.1},
		Lambda:             0.5,
		RewardRange:        [2]float32{-1, 1},
		SaveIntervalMillis: 1000,
	}
}

func TestAgentConfigValidation(t *testing.T) {
	net := smallTrunk(t)

	bad := smallConfig()
	bad.Alpha = nil
	_, err := agent.New(net, bad)
	require.Error(t, err)

	_, err = agent.New(net, smallConfig())
	require.NoError(t, err)
}

func TestAgentStepProducesKPIsAndEvolves(t *testing.T) {
	net := smallTrunk(t)
	a, err := agent.New(net, smallConfig())
	require.NoError(t, err)

	s0 := map[string]*tensor.Tensor{"state": mustRow(t, 0.1, -0.2)}
	s1 := map[string]*tensor.Tensor{"state": mustRow(t, 0.2, -0.1)}

	kpiNames := map[string]bool{}
	kpi := func(name string, v *tensor.Tensor) { kpiNames[name] = true }

	next, err := a.Step(s0, s1, []int{0}, 1.0, 0.1, kpi)
	require.NoError(t, err)

	for _, want := range []string{"score", "delta", "newAverage", "v0*", "J0", "J1", "h", "h*", "alpha*"} {
		assert.True(t, kpiNames[want], "missing kpi %q", want)
	}

	assert.NotEqual(t, a.Avg, next.Avg)
	assert.Len(t, next.Alpha, 1)
}

func TestAgentStepRejectsWrongActionCount(t *testing.T) {
	net := smallTrunk(t)
	a, err := agent.New(net, smallConfig())
	require.NoError(t, err)

	s0 := map[string]*tensor.Tensor{"state": mustRow(t, 0, 0)}
	_, err = a.Step(s0, s0, []int{0, 1}, 0, 0.1, nil)
	require.Error(t, err)
}

func TestSelectActionsWithinRange(t *testing.T) {
	net := smallTrunk(t)
	a, err := agent.New(net, smallConfig())
	require.NoError(t, err)

	forwarded, err := net.Forward(map[string]*tensor.Tensor{"state": mustRow(t, 0.1, 0.2)}, false)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	indices, err := a.SelectActions(forwarded, rng)
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.GreaterOrEqual(t, indices[0], 0)
	assert.LessOrEqual(t, indices[0], 1)

	values, err := a.DecodeActionValues(indices)
	require.NoError(t, err)
	assert.Contains(t, []float32{-1, 1}, values[0])
}

func mustRow(t *testing.T, data ...float32) *tensor.Tensor {
	t.Helper()
	v, err := tensor.New([]int{1, len(data)}, data)
	require.NoError(t, err)

	return v
}
