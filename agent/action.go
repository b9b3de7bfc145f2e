package agent

import (
	"fmt"
	"math/rand"

	"github.com/m-marini/wheellyj-sub014/network"
)

// SelectActions samples one discrete action index per configured actor
// dimension from net's current softmax outputs, via inverse-CDF sampling
// against rng, the only source of nondeterminism in action selection.
func (a *Agent) SelectActions(net *network.Network, rng *rand.Rand) ([]int, error) {
	indices := make([]int, len(a.Config.Actors))

	for k, actorSpec := range a.Config.Actors {
		probs, ok := net.Values(actorSpec.Layer)
		if !ok {
			return nil, fmt.Errorf("agent: select actions: actor %q produced no values", actorSpec.Layer)
		}

		n := probs.Dim(1)
		u := rng.Float64()
		cum := float32(0)
		idx := n - 1
		for j := 0; j < n; j++ {
			p, err := probs.At(0, j)
			if err != nil {
				return nil, fmt.Errorf("agent: select actions: %w", err)
			}
			cum += p
			if u < float64(cum) {
				idx = j
				break
			}
		}

		indices[k] = idx
	}

	return indices, nil
}

// DecodeActionValues maps sampled discrete indices back to the quantized
// action values an ActorSpec declares, the agent-boundary action surface,
// e.g. the 4-element Wheelly (halt, direction, speed, sensor) vector.
func (a *Agent) DecodeActionValues(indices []int) ([]float32, error) {
	if len(indices) != len(a.Config.Actors) {
		return nil, fmt.Errorf("agent: decode actions: %d indices, want %d", len(indices), len(a.Config.Actors))
	}

	out := make([]float32, len(indices))
	for k, idx := range indices {
		values := a.Config.Actors[k].Values
		if idx < 0 || idx >= len(values) {
			return nil, fmt.Errorf("agent: decode actions: index %d out of range for actor %d (%d values)", idx, k, len(values))
		}
		out[k] = values[idx]
	}

	return out, nil
}
