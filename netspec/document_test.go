package netspec_test

import (
	"testing"

	"github.com/m-marini/wheellyj-sub014/layer"
	"github.com/m-marini/wheellyj-sub014/netspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescriptors() []layer.Descriptor {
	return []layer.Descriptor{
		{Name: "h", Kind: layer.Dense, Inputs: []string{"state"}, Dense: layer.DenseParams{InputSize: 2, OutputSize: 2, MaxAbsWeights: 10, DropOut: 0.8}},
		{Name: "y", Kind: layer.Softmax, Inputs: []string{"h"}, Softmax: layer.SoftmaxParams{Temperature: 0.5}},
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	sizes := map[string]int{"state": 2, "h": 2, "y": 2}
	data, err := netspec.Serialize(sampleDescriptors(), sizes, "wheelly-v1")
	require.NoError(t, err)

	descs, gotSizes, schema, err := netspec.ParseSpec(data)
	require.NoError(t, err)

	assert.Equal(t, "wheelly-v1", schema)
	assert.Equal(t, sizes, gotSizes)
	require.Len(t, descs, 2)
	assert.Equal(t, "h", descs[0].Name)
	assert.Equal(t, layer.Dense, descs[0].Kind)
	assert.Equal(t, []string{"state"}, descs[0].Inputs)
	assert.InDelta(t, float32(0.8), descs[0].Dense.DropOut, 1e-6)
	assert.Equal(t, layer.Softmax, descs[1].Kind)
	assert.InDelta(t, float32(0.5), descs[1].Softmax.Temperature, 1e-6)
}

func TestParseSpecUnknownType(t *testing.T) {
	_, _, _, err := netspec.ParseSpec([]byte("layers:\n  - name: a\n    type: bogus\nsizes:\n  a: 1\n"))
	require.Error(t, err)
}

func TestParseSpecMissingDenseFields(t *testing.T) {
	_, _, _, err := netspec.ParseSpec([]byte("layers:\n  - name: a\n    type: dense\nsizes:\n  a: 1\n"))
	require.Error(t, err)
}
