package tensor_test

import (
	"testing"

	"github.com/m-marini/wheellyj-sub014/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShapeMismatch(t *testing.T) {
	_, err := tensor.New([]int{2, 2}, []float32{1, 2, 3})
	require.Error(t, err)
}

func TestRowSetRow(t *testing.T) {
	x, err := tensor.New([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	row, err := x.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, row.Shape())
	assert.Equal(t, []float32{4, 5, 6}, row.Data())

	replacement, err := tensor.New([]int{1, 3}, []float32{9, 9, 9})
	require.NoError(t, err)
	require.NoError(t, x.SetRow(0, replacement))

	v, err := x.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(9), v)
}

func TestSliceAlongAxis(t *testing.T) {
	x, err := tensor.New([]int{2, 4}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)

	s, err := x.Slice(1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, s.Shape())
	assert.Equal(t, []float32{2, 3, 6, 7}, s.Data())
}

func TestIdentity(t *testing.T) {
	id := tensor.Identity(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v, err := id.At(i, j)
			require.NoError(t, err)
			if i == j {
				assert.Equal(t, float32(1), v)
			} else {
				assert.Equal(t, float32(0), v)
			}
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	x, err := tensor.New([]int{1, 2}, []float32{1, 2})
	require.NoError(t, err)
	y := x.Clone()
	require.NoError(t, y.Set(99, 0, 0))

	v, err := x.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(1), v)
}

func TestHStackVStack(t *testing.T) {
	a, _ := tensor.New([]int{1, 2}, []float32{1, 2})
	b, _ := tensor.New([]int{1, 2}, []float32{3, 4})

	h, err := tensor.HStack([]*tensor.Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, h.Data())

	v, err := tensor.VStack([]*tensor.Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, v.Shape())
}

func TestStackSums(t *testing.T) {
	a, _ := tensor.New([]int{1, 2}, []float32{1, 2})
	b, _ := tensor.New([]int{1, 2}, []float32{3, 4})

	s, err := tensor.Stack([]*tensor.Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 6}, s.Data())
}

func TestMatMul(t *testing.T) {
	a, _ := tensor.New([]int{1, 2}, []float32{1, 2})
	b, _ := tensor.New([]int{2, 2}, []float32{1, 0, 0, 1})

	out, err := tensor.MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, out.Data())
}
