// Package netspec implements the two external interfaces a TDNetwork is
// built from and persisted through: the declarative network specification
// document and the opaque parameter blob.
package netspec

import (
	"fmt"

	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/layer"
	"gopkg.in/yaml.v3"
)

// Document is the YAML network specification: an ordered layer list, a
// size table for every source and declared layer, and an optional schema
// identifier. Field names match the spec's external format exactly.
type Document struct {
	Schema string         `yaml:"schema,omitempty"`
	Layers []LayerDoc     `yaml:"layers"`
	Sizes  map[string]int `yaml:"sizes"`
}

// LayerDoc is one entry of Document.Layers. At most one of the
// kind-specific fields is populated, matching Type; tanh, relu, sum and
// concat entries carry none.
type LayerDoc struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Inputs  []string    `yaml:"inputs,omitempty"`
	Dense   *DenseDoc   `yaml:"dense,omitempty"`
	Linear  *LinearDoc  `yaml:"linear,omitempty"`
	Softmax *SoftmaxDoc `yaml:"softmax,omitempty"`
	Dropout *DropoutDoc `yaml:"dropout,omitempty"`
}

type DenseDoc struct {
	InputSize     int     `yaml:"inputSize"`
	OutputSize    int     `yaml:"outputSize"`
	MaxAbsWeights float32 `yaml:"maxAbsWeights"`
	DropOut       float32 `yaml:"dropOut"`
}

type LinearDoc struct {
	B float32 `yaml:"b"`
	W float32 `yaml:"w"`
}

type SoftmaxDoc struct {
	Temperature float32 `yaml:"temperature"`
}

type DropoutDoc struct {
	DropOut float32 `yaml:"dropOut"`
}

var kindNames = map[layer.Kind]string{
	layer.Dense:   "dense",
	layer.Linear:  "linear",
	layer.Tanh:    "tanh",
	layer.ReLU:    "relu",
	layer.Softmax: "softmax",
	layer.Sum:     "sum",
	layer.Concat:  "concat",
	layer.Dropout: "dropout",
}

var namesToKind = func() map[string]layer.Kind {
	out := make(map[string]layer.Kind, len(kindNames))
	for k, v := range kindNames {
		out[v] = k
	}

	return out
}()

// ParseSpec parses a YAML network specification into layer descriptors
// and a size table.
func ParseSpec(data []byte) ([]layer.Descriptor, map[string]int, string, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, "", fmt.Errorf("netspec: %w: %v", errs.ErrSpecInvalid, err)
	}

	descs := make([]layer.Descriptor, len(doc.Layers))
	for i, ld := range doc.Layers {
		kind, ok := namesToKind[ld.Type]
		if !ok {
			return nil, nil, "", fmt.Errorf("netspec: %w: layer %q has unknown type %q", errs.ErrSpecInvalid, ld.Name, ld.Type)
		}

		d := layer.Descriptor{Name: ld.Name, Kind: kind, Inputs: ld.Inputs}
		switch kind {
		case layer.Dense:
			if ld.Dense == nil {
				return nil, nil, "", fmt.Errorf("netspec: %w: layer %q missing dense fields", errs.ErrSpecInvalid, ld.Name)
			}
			d.Dense = layer.DenseParams{
				InputSize:     ld.Dense.InputSize,
				OutputSize:    ld.Dense.OutputSize,
				MaxAbsWeights: ld.Dense.MaxAbsWeights,
				DropOut:       ld.Dense.DropOut,
			}
		case layer.Linear:
			if ld.Linear == nil {
				return nil, nil, "", fmt.Errorf("netspec: %w: layer %q missing linear fields", errs.ErrSpecInvalid, ld.Name)
			}
			d.Linear = layer.LinearParams{B: ld.Linear.B, W: ld.Linear.W}
		case layer.Softmax:
			if ld.Softmax == nil {
				return nil, nil, "", fmt.Errorf("netspec: %w: layer %q missing softmax fields", errs.ErrSpecInvalid, ld.Name)
			}
			d.Softmax = layer.SoftmaxParams{Temperature: ld.Softmax.Temperature}
		case layer.Dropout:
			if ld.Dropout == nil {
				return nil, nil, "", fmt.Errorf("netspec: %w: layer %q missing dropout fields", errs.ErrSpecInvalid, ld.Name)
			}
			d.Dropout = layer.DropoutParams{DropOut: ld.Dropout.DropOut}
		}

		descs[i] = d
	}

	return descs, doc.Sizes, doc.Schema, nil
}

// Serialize renders layer descriptors and a size table back into the YAML
// network specification document.
func Serialize(descs []layer.Descriptor, sizes map[string]int, schema string) ([]byte, error) {
	doc := Document{Schema: schema, Sizes: sizes, Layers: make([]LayerDoc, len(descs))}

	for i, d := range descs {
		name, ok := kindNames[d.Kind]
		if !ok {
			return nil, fmt.Errorf("netspec: %w: layer %q has unknown kind %v", errs.ErrSpecInvalid, d.Name, d.Kind)
		}

		ld := LayerDoc{Name: d.Name, Type: name, Inputs: d.Inputs}
		switch d.Kind {
		case layer.Dense:
			ld.Dense = &DenseDoc{
				InputSize:     d.Dense.InputSize,
				OutputSize:    d.Dense.OutputSize,
				MaxAbsWeights: d.Dense.MaxAbsWeights,
				DropOut:       d.Dense.DropOut,
			}
		case layer.Linear:
			ld.Linear = &LinearDoc{B: d.Linear.B, W: d.Linear.W}
		case layer.Softmax:
			ld.Softmax = &SoftmaxDoc{Temperature: d.Softmax.Temperature}
		case layer.Dropout:
			ld.Dropout = &DropoutDoc{DropOut: d.Dropout.DropOut}
		}

		doc.Layers[i] = ld
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("netspec: %w", err)
	}

	return out, nil
}
