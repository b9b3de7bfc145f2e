package agent

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/network"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// Agent is the persistent actor-critic state around a trunk network: the
// running average reward and the actor step-factor vector, both of which
// a training step evolves alongside the network's parameters.
type Agent struct {
	Net    *network.Network
	Config Config
	Avg    float32
	Alpha  []float32

	elapsedMillis int64
}

// New creates an agent around net, starting from a zero running-average
// reward and the configured initial alpha vector.
func New(net *network.Network, cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	alpha := append([]float32(nil), cfg.Alpha...)

	return &Agent{Net: net, Config: cfg, Avg: 0, Alpha: alpha}, nil
}

func decay(x float32) float32 {
	d := 1 - x
	if d < 0 {
		return 0
	}

	return d
}

func blend(from, to, x float32) float32 {
	d := decay(x)
	return from*d + to*(1-d)
}

func clip(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}

	return x
}

// denormalize maps the critic's (-1, 1) output to [lo, hi].
func denormalize(vhat, lo, hi float32) float32 {
	c := clip(vhat, -1, 1)
	return lo + (c+1)/2*(hi-lo)
}

// normalize is denormalize's inverse, mapping [lo, hi] back to (-1, 1),
// clipped at the boundary.
func normalize(v, lo, hi float32) float32 {
	x := 2*(v-lo)/(hi-lo) - 1
	return clip(x, -1, 1)
}

func scalarTensor(v float32) *tensor.Tensor {
	t, err := tensor.New([]int{1, 1}, []float32{v})
	if err != nil {
		panic(err)
	}

	return t
}

// Step runs one environment transition through the actor-critic update:
// forward s0 and s1 without dropout, compute the TD error and the running
// average reward, train the trunk from the assembled sink gradients, and
// return the evolved agent. action holds the discrete index taken in each
// configured actor dimension during the step that produced s1.
func (a *Agent) Step(s0, s1 map[string]*tensor.Tensor, action []int, reward, dt float32, kpi layer.KPI) (*Agent, error) {
	if len(action) != len(a.Config.Actors) {
		return nil, fmt.Errorf("agent: step: action has %d entries, want %d", len(action), len(a.Config.Actors))
	}

	net0, err := a.Net.Forward(s0, false)
	if err != nil {
		return nil, fmt.Errorf("agent: step: forward s0: %w", err)
	}
	net1, err := a.Net.Forward(s1, false)
	if err != nil {
		return nil, fmt.Errorf("agent: step: forward s1: %w", err)
	}

	v0hatT, ok := net0.Values(a.Config.Critic)
	if !ok {
		return nil, fmt.Errorf("agent: step: critic %q produced no values at s0", a.Config.Critic)
	}
	v1hatT, ok := net1.Values(a.Config.Critic)
	if !ok {
		return nil, fmt.Errorf("agent: step: critic %q produced no values at s1", a.Config.Critic)
	}
	v0hat, err := v0hatT.At(0, 0)
	if err != nil {
		return nil, fmt.Errorf("agent: step: %w", err)
	}
	v1hat, err := v1hatT.At(0, 0)
	if err != nil {
		return nil, fmt.Errorf("agent: step: %w", err)
	}

	lo, hi := a.Config.RewardRange[0], a.Config.RewardRange[1]
	v0 := denormalize(v0hat, lo, hi)
	v1 := denormalize(v1hat, lo, hi)

	target := v1 + reward - a.Avg
	v0Star := blend(a.Avg, target, dt/a.Config.ValueDecay)
	delta := v0Star - v0
	newAvg := blend(a.Avg, reward, dt/a.Config.RewardDecay)

	criticLabel := normalize(v0Star, lo, hi)
	criticGrad := scalarTensor(criticLabel - v0hat)

	gradients := map[string]*tensor.Tensor{a.Config.Critic: criticGrad}

	alphaStar := append([]float32(nil), a.Alpha...)
	hs := make([]*tensor.Tensor, len(a.Config.Actors))
	hStars := make([]*tensor.Tensor, len(a.Config.Actors))

	for k, actorSpec := range a.Config.Actors {
		probs, ok := net0.Values(actorSpec.Layer)
		if !ok {
			return nil, fmt.Errorf("agent: step: actor %q produced no values at s0", actorSpec.Layer)
		}

		h, hStar, err := computeActorLabels(probs, action[k], delta, a.Alpha[k])
		if err != nil {
			return nil, fmt.Errorf("agent: step: actor %q: %w", actorSpec.Layer, err)
		}

		hs[k] = h
		hStars[k] = hStar
		gradients[actorSpec.Layer] = hStar
	}

	deltaTensor := scalarTensor(delta)
	trained, err := net0.Train(gradients, deltaTensor, a.Config.Lambda, kpi)
	if err != nil {
		return nil, fmt.Errorf("agent: step: %w", err)
	}

	if kpi != nil {
		kpi("score", scalarTensor(reward))
		kpi("delta", scalarTensor(delta))
		kpi("newAverage", scalarTensor(newAvg))
		kpi("v0*", scalarTensor(v0Star))
		kpi("J0", scalarTensor(v0))
		kpi("J1", scalarTensor(v1))
		if hAll, err := tensor.HStack(hs); err == nil {
			kpi("h", hAll)
		}
		if hStarAll, err := tensor.HStack(hStars); err == nil {
			kpi("h*", hStarAll)
		}
		if alphaT, err := tensor.New([]int{1, len(alphaStar)}, append([]float32(nil), alphaStar...)); err == nil {
			kpi("alpha*", alphaT)
		}
	}

	next := &Agent{
		Net:           trained,
		Config:        a.Config,
		Avg:           newAvg,
		Alpha:         alphaStar,
		elapsedMillis: a.elapsedMillis + int64(dt*1000),
	}

	return next, nil
}

// DueForSave reports whether SaveIntervalMillis simulated milliseconds
// have elapsed since the last save, and resets the counter if so.
func (a *Agent) DueForSave() bool {
	if a.elapsedMillis < a.Config.SaveIntervalMillis {
		return false
	}

	a.elapsedMillis = 0

	return true
}

// computeActorLabels returns the raw preference gradient h (onehot(a) -
// probs, the softmax policy-gradient direction) and the trained label h*
// (h scaled by this dimension's step factor and the TD error), for the
// discrete action taken. It does not update alpha: Step carries each
// dimension's alpha forward unchanged as alpha* (see DESIGN.md).
func computeActorLabels(probs *tensor.Tensor, actionIdx int, delta, alphaK float32) (h, hStar *tensor.Tensor, err error) {
	n := probs.Dim(1)
	if actionIdx < 0 || actionIdx >= n {
		return nil, nil, fmt.Errorf("action index %d out of range for %d outcomes", actionIdx, n)
	}

	h = tensor.Zeros([]int{1, n})
	for j := 0; j < n; j++ {
		p, err := probs.At(0, j)
		if err != nil {
			return nil, nil, err
		}

		onehot := float32(0)
		if j == actionIdx {
			onehot = 1
		}
		if err := h.Set(onehot-p, 0, j); err != nil {
			return nil, nil, err
		}
	}

	scale := alphaK * delta
	hStar = tensor.UnaryScalar(h, scale, func(x, s float32) float32 { return x * s })

	return h, hStar, nil
}
