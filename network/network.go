// Package network assembles a declared, ordered list of layers into a
// TDNetwork: a computation graph with a forward pass, a reverse-order
// backward/train pass, and a size table shared by every layer.
package network

import (
	"fmt"
	"log"
	"os"

	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// Network is a TDNetwork: layers in forward declaration order, indexed by
// name, plus the current state. Every operation returns a new Network;
// the previous one (and its state) may be retained or discarded by the
// caller, but is never mutated in place.
type Network struct {
	layers  []*layer.Layer
	byName  map[string]*layer.Layer
	sources []string
	sinks   []string
	sizes   map[string]int
	engine  compute.Engine
	state   *state.State
	logger  *log.Logger
}

// defaultLogger is the fallback numeric-instability logger: a NaN or Inf
// observed in values or parameters is non-fatal, logged and training
// continues, unless the host installs its own logger via SetLogger.
var defaultLogger = log.New(os.Stderr, "network: ", log.LstdFlags)

// SetLogger returns a Network that reports numeric instability (NaN/Inf in
// values or parameters) to logger instead of the default stderr logger.
func (n *Network) SetLogger(logger *log.Logger) *Network {
	cp := *n
	cp.logger = logger

	return &cp
}

func (n *Network) logf(format string, args ...interface{}) {
	logger := n.logger
	if logger == nil {
		logger = defaultLogger
	}
	logger.Printf(format, args...)
}

// New validates descs against sizes and constructs a Network with freshly
// initialized parameters and traces, seeded for reproducible Xavier init
// and dropout sampling.
func New(descs []layer.Descriptor, sizes map[string]int, engine compute.Engine, seed int64) (*Network, error) {
	byName := make(map[string]*layer.Layer, len(descs))
	layers := make([]*layer.Layer, 0, len(descs))
	index := make(map[string]int, len(descs))

	for i, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("network: %w: layer %d has no name", errs.ErrSpecInvalid, i)
		}
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("network: %w: duplicate layer name %q", errs.ErrSpecInvalid, d.Name)
		}

		l, err := layer.FromDescriptor(d, engine)
		if err != nil {
			return nil, fmt.Errorf("network: %w", err)
		}

		byName[d.Name] = l
		layers = append(layers, l)
		index[d.Name] = i
	}

	sourceSeen := make(map[string]bool)
	sources := []string{}
	consumed := make(map[string]bool)

	for i, l := range layers {
		for _, input := range l.Inputs() {
			consumed[input] = true

			if srcIdx, isLayer := index[input]; isLayer {
				if srcIdx >= i {
					return nil, fmt.Errorf("network: %w: layer %q references %q before it is declared", errs.ErrSpecInvalid, l.Name(), input)
				}
				continue
			}

			if !sourceSeen[input] {
				if _, ok := sizes[input]; !ok {
					return nil, fmt.Errorf("network: %w: source %q has no declared size", errs.ErrSpecInvalid, input)
				}
				sourceSeen[input] = true
				sources = append(sources, input)
			}
		}
	}

	sinks := []string{}
	for _, l := range layers {
		if !consumed[l.Name()] {
			sinks = append(sinks, l.Name())
		}
		if _, ok := sizes[l.Name()]; !ok {
			return nil, fmt.Errorf("network: %w: layer %q has no declared size", errs.ErrSpecInvalid, l.Name())
		}
	}

	st := state.New(seed, engine).SetSizes(sizes)
	for _, l := range layers {
		if err := l.InitVariables(st); err != nil {
			return nil, fmt.Errorf("network: %w", err)
		}
		if err := l.InitParameters(st); err != nil {
			return nil, fmt.Errorf("network: %w", err)
		}
	}
	for _, l := range layers {
		if err := l.Validate(st); err != nil {
			return nil, fmt.Errorf("network: %w", err)
		}
	}

	return &Network{
		layers:  layers,
		byName:  byName,
		sources: sources,
		sinks:   sinks,
		sizes:   sizes,
		engine:  engine,
		state:   st,
	}, nil
}

// Sources returns the names referenced as layer inputs but not themselves
// declared layers, the network's externally-supplied inputs.
func (n *Network) Sources() []string { return append([]string(nil), n.sources...) }

// Sinks returns the declared layers not consumed as input by any other
// layer, the network's outputs.
func (n *Network) Sinks() []string { return append([]string(nil), n.sinks...) }

// Sizes returns the size table (source and layer names to output width).
func (n *Network) Sizes() map[string]int { return n.sizes }

// State returns the network's current state, for persistence or
// inspection. Callers must not mutate tensors obtained from it without
// cloning first.
func (n *Network) State() *state.State { return n.state }

// Values returns the current values of a declared layer or, if present as
// a source, whatever was last written to it.
func (n *Network) Values(name string) (*tensor.Tensor, bool) {
	return n.state.GetValues(name)
}

// Spec returns the ordered layer descriptors and size table, the
// serializable form of the network.
func (n *Network) Spec() ([]layer.Descriptor, map[string]int) {
	descs := make([]layer.Descriptor, len(n.layers))
	for i, l := range n.layers {
		descs[i] = l.Spec()
	}

	return descs, n.sizes
}

// Parameters returns a filtered, deep-cloned snapshot of every weights and
// bias entry, for persistence.
func (n *Network) Parameters() *state.State {
	return n.state.FilterKeysAndDup(func(k state.Key) bool {
		return k.Slot == state.Weights || k.Slot == state.Bias
	})
}
