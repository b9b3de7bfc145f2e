package netspec_test

import (
	"path/filepath"
	"testing"

	"github.com/m-marini/wheellyj-sub014/netspec"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadParametersRoundTrip(t *testing.T) {
	w, err := tensor.New([]int{2, 2}, []float32{0.1, -0.2, 0.30000001, -0.4})
	require.NoError(t, err)
	b, err := tensor.New([]int{1, 2}, []float32{0.5, -0.5})
	require.NoError(t, err)

	params := map[state.Key]*tensor.Tensor{
		{Layer: "h", Slot: state.Weights}: w,
		{Layer: "h", Slot: state.Bias}:    b,
	}

	path := filepath.Join(t.TempDir(), "params.zmf")
	require.NoError(t, netspec.SaveParameters(params, path))

	loaded, err := netspec.LoadParameters(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	gotW, ok := loaded[state.Key{Layer: "h", Slot: state.Weights}]
	require.True(t, ok)
	assert.Equal(t, w.Shape(), gotW.Shape())
	assert.Equal(t, w.Data(), gotW.Data())

	gotB, ok := loaded[state.Key{Layer: "h", Slot: state.Bias}]
	require.True(t, ok)
	assert.Equal(t, b.Data(), gotB.Data())
}

func TestLoadParametersMissingFile(t *testing.T) {
	_, err := netspec.LoadParameters(filepath.Join(t.TempDir(), "missing.zmf"))
	require.Error(t, err)
}
