// Package state holds NetworkState, the single owner of every tensor a
// TDNetwork touches: per-layer values, gradients, masks, parameters, and
// eligibility traces, plus the seeded generator layers draw from for
// weight init and dropout sampling.
package state

import (
	"fmt"
	"math/rand"

	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// Slot names the seven tensor kinds a layer variable can be.
type Slot int

const (
	Values Slot = iota
	Grads
	Mask
	Weights
	Bias
	WeightsTrace
	BiasTrace
)

func (s Slot) suffix() string {
	switch s {
	case Values:
		return "values"
	case Grads:
		return "grads"
	case Mask:
		return "mask"
	case Weights:
		return "weights"
	case Bias:
		return "bias"
	case WeightsTrace:
		return "weights.trace"
	case BiasTrace:
		return "bias.trace"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Key is a NetworkState variable name, "<layer>.<kind>" in the external
// persistence/spec surfaces.
type Key struct {
	Layer string
	Slot  Slot
}

func (k Key) String() string {
	return k.Layer + "." + k.Slot.suffix()
}

// slotSuffixes maps a slot's serialized suffix back to the Slot value,
// the inverse of Slot.suffix, used when parsing persisted parameter names.
var slotSuffixes = map[string]Slot{
	"values":       Values,
	"grads":        Grads,
	"mask":         Mask,
	"weights":      Weights,
	"bias":         Bias,
	"weights.trace": WeightsTrace,
	"bias.trace":   BiasTrace,
}

// ParseKey parses a "<layer>.<kind>" name back into a Key. Only the
// "weights" and "bias" suffixes are expected from persisted parameter
// blobs, but every known suffix is recognized.
func ParseKey(name string) (Key, error) {
	for suffix, slot := range slotSuffixes {
		if dot := len(name) - len(suffix) - 1; dot >= 0 && name[dot] == '.' && name[dot+1:] == suffix {
			return Key{Layer: name[:dot], Slot: slot}, nil
		}
	}

	return Key{}, fmt.Errorf("state: %q is not a valid variable name", name)
}

// State is the name-keyed tensor store plus the scoped RNG and size table
// a TDNetwork forward/train pass reads and writes.
type State struct {
	values map[Key]*tensor.Tensor
	sizes  map[string]int
	rng    *rand.Rand
	engine compute.Engine
}

// New creates an empty state seeded from seed, ready for initVariables and
// initParameters.
func New(seed int64, engine compute.Engine) *State {
	return &State{
		values: make(map[Key]*tensor.Tensor),
		sizes:  nil,
		rng:    rand.New(rand.NewSource(seed)),
		engine: engine,
	}
}

// RNG returns the generator scoped to this state, used by layer init and
// dropout mask sampling.
func (s *State) RNG() *rand.Rand {
	return s.rng
}

// Engine returns the compute engine this state's layers should use.
func (s *State) Engine() compute.Engine {
	return s.engine
}

// Get returns the tensor stored under key, if any.
func (s *State) Get(key Key) (*tensor.Tensor, bool) {
	t, ok := s.values[key]
	return t, ok
}

// Put stores t under key, replacing any existing value.
func (s *State) Put(key Key, t *tensor.Tensor) {
	s.values[key] = t
}

// Add accumulates delta into key: present becomes old+delta, absent becomes
// delta. This is how a Dense layer's backward pass accumulates grad_in into
// an input layer's .grads entry when more than one consumer feeds it.
func (s *State) Add(key Key, delta *tensor.Tensor) error {
	existing, ok := s.values[key]
	if !ok {
		s.values[key] = delta
		return nil
	}

	sum, err := s.engine.Add(existing, delta)
	if err != nil {
		return fmt.Errorf("state: accumulate %s: %w", key, err)
	}
	s.values[key] = sum

	return nil
}

// Remove deletes every key matching predicate.
func (s *State) Remove(predicate func(Key) bool) {
	for k := range s.values {
		if predicate(k) {
			delete(s.values, k)
		}
	}
}

// FilterKeys returns the subset of entries matching predicate, sharing
// tensor references with this state.
func (s *State) FilterKeys(predicate func(Key) bool) map[Key]*tensor.Tensor {
	out := make(map[Key]*tensor.Tensor)
	for k, v := range s.values {
		if predicate(k) {
			out[k] = v
		}
	}

	return out
}

// FilterKeysAndDup returns a new state containing only the entries matching
// predicate, with every tensor deep-cloned so it is independent of this
// state. Used to extract a parameter snapshot for persistence.
func (s *State) FilterKeysAndDup(predicate func(Key) bool) *State {
	out := &State{
		values: make(map[Key]*tensor.Tensor),
		sizes:  s.sizes,
		rng:    s.rng,
		engine: s.engine,
	}
	for k, v := range s.values {
		if predicate(k) {
			out.values[k] = v.Clone()
		}
	}

	return out
}

// Dup returns a new state with a shallow copy of the tensor map (tensors
// are shared with the parent until a writer replaces their entry) and an
// independent RNG. The child RNG is seeded by drawing one value off the
// parent's stream, so a fixed initial seed plus a fixed sequence of dup
// calls reproduces the same chain of child generators every time. Used for
// inference steps, which never mutate parameters.
func (s *State) Dup() *State {
	values := make(map[Key]*tensor.Tensor, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}

	return &State{
		values: values,
		sizes:  s.sizes,
		rng:    rand.New(rand.NewSource(s.rng.Int63())),
		engine: s.engine,
	}
}

// DeepDup behaves like Dup but additionally clones every tensor, so the
// child can be mutated in place without affecting the parent. Used for
// training steps, which overwrite values, grads, masks and parameters.
func (s *State) DeepDup() *State {
	values := make(map[Key]*tensor.Tensor, len(s.values))
	for k, v := range s.values {
		values[k] = v.Clone()
	}

	return &State{
		values: values,
		sizes:  s.sizes,
		rng:    rand.New(rand.NewSource(s.rng.Int63())),
		engine: s.engine,
	}
}

// SetSizes returns a new state with sizes installed. Sizes are immutable
// once set: calling SetSizes on a state that already has one is a
// programming error.
func (s *State) SetSizes(sizes map[string]int) *State {
	if s.sizes != nil {
		panic("state: sizes already set")
	}

	cp := make(map[string]int, len(sizes))
	for k, v := range sizes {
		cp[k] = v
	}

	return &State{
		values: s.values,
		sizes:  cp,
		rng:    s.rng,
		engine: s.engine,
	}
}

// Size returns the declared width of layer (or source) name.
func (s *State) Size(name string) (int, bool) {
	n, ok := s.sizes[name]
	return n, ok
}

// Sizes returns the full size table.
func (s *State) Sizes() map[string]int {
	return s.sizes
}

func (s *State) GetValues(layer string) (*tensor.Tensor, bool) { return s.Get(Key{layer, Values}) }
func (s *State) PutValues(layer string, t *tensor.Tensor)      { s.Put(Key{layer, Values}, t) }

func (s *State) GetGrads(layer string) (*tensor.Tensor, bool) { return s.Get(Key{layer, Grads}) }
func (s *State) PutGrads(layer string, t *tensor.Tensor)      { s.Put(Key{layer, Grads}, t) }
func (s *State) AddGrads(layer string, t *tensor.Tensor) error {
	return s.Add(Key{layer, Grads}, t)
}

func (s *State) GetMask(layer string) (*tensor.Tensor, bool) { return s.Get(Key{layer, Mask}) }
func (s *State) PutMask(layer string, t *tensor.Tensor)      { s.Put(Key{layer, Mask}, t) }

func (s *State) GetWeights(layer string) (*tensor.Tensor, bool) { return s.Get(Key{layer, Weights}) }
func (s *State) PutWeights(layer string, t *tensor.Tensor)      { s.Put(Key{layer, Weights}, t) }

func (s *State) GetBias(layer string) (*tensor.Tensor, bool) { return s.Get(Key{layer, Bias}) }
func (s *State) PutBias(layer string, t *tensor.Tensor)      { s.Put(Key{layer, Bias}, t) }

func (s *State) GetWeightsTrace(layer string) (*tensor.Tensor, bool) {
	return s.Get(Key{layer, WeightsTrace})
}
func (s *State) PutWeightsTrace(layer string, t *tensor.Tensor) {
	s.Put(Key{layer, WeightsTrace}, t)
}

func (s *State) GetBiasTrace(layer string) (*tensor.Tensor, bool) {
	return s.Get(Key{layer, BiasTrace})
}
func (s *State) PutBiasTrace(layer string, t *tensor.Tensor) {
	s.Put(Key{layer, BiasTrace}, t)
}
