// Package agent implements the actor-critic training step that drives a
// TDNetwork: forward the trunk on s0 and s1, compute the TD error from
// reward and decay, train the trunk, and select the next discrete action.
package agent

import "fmt"

// ActorSpec names one action dimension's softmax sink layer. Values holds
// the quantized action values that sink's probability vector ranges over,
// used to decode a sampled index into the RLEngine action surface.
type ActorSpec struct {
	Layer  string
	Values []float32
}

// Config holds the actor-critic step's hyperparameters.
type Config struct {
	// Critic names the trunk's scalar value-output sink layer.
	Critic string
	// Actors names one softmax sink layer per discrete action dimension.
	Actors []ActorSpec

	// RewardDecay is τᵣ, the running-average-reward smoothing constant.
	RewardDecay float32
	// ValueDecay is τᵥ, the critic target smoothing constant.
	ValueDecay float32
	// Alpha holds the initial per-actor-dimension policy step factor.
	Alpha []float32
	// Lambda is the eligibility-trace decay passed to TDNetwork.Train.
	Lambda float32

	// RewardRange is the (lo, hi) affine range the critic's (-1, 1)
	// output denormalizes into and normalizes back from.
	RewardRange [2]float32

	// SaveIntervalMillis is how often, in simulated milliseconds, the
	// model should be persisted.
	SaveIntervalMillis int64
}

func (c Config) validate() error {
	if c.Critic == "" {
		return fmt.Errorf("agent: config: critic layer name required")
	}
	if len(c.Actors) == 0 {
		return fmt.Errorf("agent: config: at least one actor required")
	}
	if len(c.Alpha) != len(c.Actors) {
		return fmt.Errorf("agent: config: alpha has %d entries, want %d (one per actor)", len(c.Alpha), len(c.Actors))
	}
	if c.RewardDecay <= 0 || c.ValueDecay <= 0 {
		return fmt.Errorf("agent: config: rewardDecay and valueDecay must be positive")
	}
	if c.RewardRange[1] <= c.RewardRange[0] {
		return fmt.Errorf("agent: config: rewardRange must have hi > lo")
	}

	return nil
}
