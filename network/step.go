package network

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

func (n *Network) withState(st *state.State) *Network {
	return &Network{
		layers:  n.layers,
		byName:  n.byName,
		sources: n.sources,
		sinks:   n.sinks,
		sizes:   n.sizes,
		engine:  n.engine,
		state:   st,
		logger:  n.logger,
	}
}

// Forward clones the current state (deeply if training, shallowly
// otherwise; Train deep-clones again before it mutates anything, so
// neither path changes the parent's tensors), writes the supplied source
// values, and runs every layer in
// declaration order. training also selects whether Dense samples a
// dropout mask.
func (n *Network) Forward(inputs map[string]*tensor.Tensor, training bool) (*Network, error) {
	var st *state.State
	if training {
		st = n.state.DeepDup()
	} else {
		st = n.state.Dup()
	}

	for name, t := range inputs {
		if _, ok := n.sizes[name]; !ok {
			return nil, fmt.Errorf("network: %w: input %q has no declared size", errs.ErrSpecInvalid, name)
		}
		st.PutValues(name, t)
	}

	for _, l := range n.layers {
		if err := l.Forward(st, training); err != nil {
			return nil, fmt.Errorf("network: forward: %w", err)
		}
		if v, ok := st.GetValues(l.Name()); ok && !v.IsFinite() {
			n.logf("%s: %s.values: %v", errs.ErrNumericInstability, l.Name(), v)
		}
	}

	return n.withState(st), nil
}

// Train deep-clones the current state, drops every existing gradient,
// seeds the supplied sink gradients, and runs every layer's Train in
// reverse declaration order. A sink absent from gradients is treated as
// zero: its layer's own Train call becomes a no-op, so a caller can train
// some sinks while leaving others untouched for a given step.
func (n *Network) Train(gradients map[string]*tensor.Tensor, delta *tensor.Tensor, lambda float32, kpi layer.KPI) (*Network, error) {
	st := n.state.DeepDup()
	st.Remove(func(k state.Key) bool { return k.Slot == state.Grads })

	for name, g := range gradients {
		st.PutGrads(name, g)
	}

	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		if err := l.Train(st, delta, lambda, kpi); err != nil {
			return nil, fmt.Errorf("network: train: %w", err)
		}
		if w, ok := st.GetWeights(l.Name()); ok && !w.IsFinite() {
			n.logf("%s: %s.weights: %v", errs.ErrNumericInstability, l.Name(), w)
		}
		if b, ok := st.GetBias(l.Name()); ok && !b.IsFinite() {
			n.logf("%s: %s.bias: %v", errs.ErrNumericInstability, l.Name(), b)
		}
	}

	return n.withState(st), nil
}

// LoadParameters returns a new Network with every entry of params (keyed
// by the same weights/bias names Parameters produces) overlaid onto the
// current state; shapes must match the declared layers exactly.
func (n *Network) LoadParameters(params map[state.Key]*tensor.Tensor) (*Network, error) {
	st := n.state.DeepDup()

	for k, t := range params {
		existing, ok := st.Get(k)
		if !ok {
			return nil, fmt.Errorf("network: %w: unknown parameter %s", errs.ErrCheckpointIncompatible, k)
		}
		if !existing.ShapeEqual(t) {
			return nil, fmt.Errorf("network: %w: %s shape %v, want %v", errs.ErrCheckpointIncompatible, k, t.Shape(), existing.Shape())
		}
		st.Put(k, t)
	}

	return n.withState(st), nil
}
