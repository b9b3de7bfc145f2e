package layer

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/compute"
	"github.com/m-marini/wheellyj-sub014/errs"
)

// Descriptor is the serializable form of a Layer: its declared name, kind,
// inputs, and kind-specific hyperparameters. netspec marshals a slice of
// these to and from the network specification document.
type Descriptor struct {
	Name    string
	Kind    Kind
	Inputs  []string
	Dense   DenseParams
	Linear  LinearParams
	Softmax SoftmaxParams
	Dropout DropoutParams
}

// Spec returns the layer's serializable descriptor.
func (l *Layer) Spec() Descriptor {
	return Descriptor{
		Name:    l.name,
		Kind:    l.kind,
		Inputs:  append([]string(nil), l.inputs...),
		Dense:   l.dense,
		Linear:  l.linear,
		Softmax: l.softmax,
		Dropout: l.dropout,
	}
}

// FromDescriptor reconstructs a Layer from its descriptor, the inverse of
// Spec, used when loading a parsed network specification.
func FromDescriptor(d Descriptor, engine compute.Engine) (*Layer, error) {
	switch d.Kind {
	case Dense:
		return NewDense(d.Name, soleInput(d.Inputs), engine, d.Dense)
	case Linear:
		return NewLinear(d.Name, soleInput(d.Inputs), engine, d.Linear)
	case Tanh:
		return NewTanh(d.Name, soleInput(d.Inputs), engine)
	case ReLU:
		return NewReLU(d.Name, soleInput(d.Inputs), engine)
	case Softmax:
		return NewSoftmax(d.Name, soleInput(d.Inputs), engine, d.Softmax)
	case Sum:
		return NewSum(d.Name, d.Inputs, engine)
	case Concat:
		return NewConcat(d.Name, d.Inputs, engine)
	case Dropout:
		return NewDropout(d.Name, soleInput(d.Inputs), engine, d.Dropout)
	default:
		return nil, fmt.Errorf("layer: %s: %w: unknown kind %v", d.Name, errs.ErrSpecInvalid, d.Kind)
	}
}

func soleInput(inputs []string) string {
	if len(inputs) == 0 {
		return ""
	}

	return inputs[0]
}
