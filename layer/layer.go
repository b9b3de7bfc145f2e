// Package layer implements the eight layer kinds a network graph is built
// from. Rather than one Go type per kind satisfying a shared interface with
// virtual dispatch, a layer here is a single tagged-variant struct: one
// concrete type, one Kind field, and a kind switch inside each of
// Forward/Train/InitVariables/InitParameters/Validate. Layers are stateless
// beyond their immutable descriptor and scalar hyperparameters; all mutable
// state lives in a state.State.
package layer

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/tensor"
)

// Kind identifies which of the eight layer operators a Layer is.
type Kind int

const (
	Dense Kind = iota
	Linear
	Tanh
	ReLU
	Softmax
	Sum
	Concat
	Dropout
)

func (k Kind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Linear:
		return "linear"
	case Tanh:
		return "tanh"
	case ReLU:
		return "relu"
	case Softmax:
		return "softmax"
	case Sum:
		return "sum"
	case Concat:
		return "concat"
	case Dropout:
		return "dropout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DenseParams holds Dense's hyperparameters.
type DenseParams struct {
	InputSize     int
	OutputSize    int
	MaxAbsWeights float32
	DropOut       float32
}

// LinearParams holds Linear's scalar affine coefficients.
type LinearParams struct {
	B float32
	W float32
}

// SoftmaxParams holds the softmax temperature.
type SoftmaxParams struct {
	Temperature float32
}

// DropoutParams carries the meta-parameter a standalone Dropout marker
// records for serialization; the layer itself is a forward/backward no-op,
// since the real dropout is implemented inside Dense.
type DropoutParams struct {
	DropOut float32
}

// Layer is one node of a TDNetwork graph.
type Layer struct {
	name   string
	kind   Kind
	inputs []string

	dense   DenseParams
	linear  LinearParams
	softmax SoftmaxParams
	dropout DropoutParams

	engine compute.Engine
}

// Name returns the layer's declared name.
func (l *Layer) Name() string { return l.name }

// Kind returns the layer's operator kind.
func (l *Layer) Kind() Kind { return l.kind }

// Inputs returns the names of the layers (or sources) this layer reads.
func (l *Layer) Inputs() []string { return l.inputs }

// Dense returns the layer's Dense hyperparameters; valid only when Kind()
// is Dense.
func (l *Layer) Dense() DenseParams { return l.dense }

// Linear returns the layer's Linear hyperparameters; valid only when
// Kind() is Linear.
func (l *Layer) Linear() LinearParams { return l.linear }

// Softmax returns the layer's Softmax hyperparameters; valid only when
// Kind() is Softmax.
func (l *Layer) Softmax() SoftmaxParams { return l.softmax }

// Dropout returns the layer's Dropout hyperparameters; valid only when
// Kind() is Dropout.
func (l *Layer) Dropout() DropoutParams { return l.dropout }

func newLayer(name string, kind Kind, inputs []string, engine compute.Engine) (*Layer, error) {
	if name == "" {
		return nil, fmt.Errorf("layer: name must not be empty")
	}
	if engine == nil {
		return nil, fmt.Errorf("layer: %s: engine must not be nil", name)
	}

	return &Layer{name: name, kind: kind, inputs: append([]string(nil), inputs...), engine: engine}, nil
}

// NewDense creates a Dense layer. Dense takes exactly one input.
func NewDense(name, input string, engine compute.Engine, params DenseParams) (*Layer, error) {
	l, err := newLayer(name, Dense, []string{input}, engine)
	if err != nil {
		return nil, err
	}
	if params.InputSize <= 0 || params.OutputSize <= 0 {
		return nil, fmt.Errorf("layer: %s: dense input/output size must be positive", name)
	}
	if params.MaxAbsWeights <= 0 {
		return nil, fmt.Errorf("layer: %s: maxAbsWeights must be positive", name)
	}
	if params.DropOut <= 0 || params.DropOut > 1 {
		return nil, fmt.Errorf("layer: %s: dropOut must be in (0, 1]", name)
	}
	l.dense = params

	return l, nil
}

// NewLinear creates a Linear (scalar affine) layer. Linear takes exactly
// one input.
func NewLinear(name, input string, engine compute.Engine, params LinearParams) (*Layer, error) {
	l, err := newLayer(name, Linear, []string{input}, engine)
	if err != nil {
		return nil, err
	}
	l.linear = params

	return l, nil
}

// NewTanh creates a Tanh activation layer. It takes exactly one input.
func NewTanh(name, input string, engine compute.Engine) (*Layer, error) {
	return newLayer(name, Tanh, []string{input}, engine)
}

// NewReLU creates a ReLU activation layer. It takes exactly one input.
func NewReLU(name, input string, engine compute.Engine) (*Layer, error) {
	return newLayer(name, ReLU, []string{input}, engine)
}

// NewSoftmax creates a Softmax activation layer. It takes exactly one
// input.
func NewSoftmax(name, input string, engine compute.Engine, params SoftmaxParams) (*Layer, error) {
	l, err := newLayer(name, Softmax, []string{input}, engine)
	if err != nil {
		return nil, err
	}
	if params.Temperature <= 0 {
		return nil, fmt.Errorf("layer: %s: softmax temperature must be positive", name)
	}
	l.softmax = params

	return l, nil
}

// NewSum creates a Sum layer over one or more same-shaped inputs.
func NewSum(name string, inputs []string, engine compute.Engine) (*Layer, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("layer: %s: sum requires at least one input", name)
	}

	return newLayer(name, Sum, inputs, engine)
}

// NewConcat creates a Concat layer over one or more inputs, stacked along
// the last axis.
func NewConcat(name string, inputs []string, engine compute.Engine) (*Layer, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("layer: %s: concat requires at least one input", name)
	}

	return newLayer(name, Concat, inputs, engine)
}

// NewDropout creates a standalone Dropout marker layer (forward/backward
// identity; dropOut is recorded for the serialized spec only).
func NewDropout(name, input string, engine compute.Engine, params DropoutParams) (*Layer, error) {
	l, err := newLayer(name, Dropout, []string{input}, engine)
	if err != nil {
		return nil, err
	}
	if params.DropOut <= 0 || params.DropOut > 1 {
		return nil, fmt.Errorf("layer: %s: dropOut must be in (0, 1]", name)
	}
	l.dropout = params

	return l, nil
}

// KPI is the observability sink a train step may supply; it receives named
// scalars/tensors such as "<layer>_db" and "<layer>_dw".
type KPI func(name string, t *tensor.Tensor)
