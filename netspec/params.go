package netspec

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/m-marini/wheellyj-sub014/errs"
	"github.com/m-marini/wheellyj-sub014/state"
	"github.com/m-marini/wheellyj-sub014/tensor"
	"github.com/zerfoo/zmf"
	"google.golang.org/protobuf/proto"
)

// SaveParameters writes every weights/bias entry of params to path as a
// protobuf-encoded zmf.Model blob, named by its "<layer>.<kind>" key. Only
// the Parameters map of the model's graph is populated; the core never
// constructs a full ZMF computation graph. A write failure is reported as
// ErrPersistenceFailure so the caller can log and retry; persistence
// failures never abort training.
func SaveParameters(params map[state.Key]*tensor.Tensor, path string) error {
	zmfParams := make(map[string]*zmf.Tensor, len(params))
	for key, t := range params {
		zt, err := encodeTensor(t)
		if err != nil {
			return fmt.Errorf("netspec: %w: %v", errs.ErrPersistenceFailure, err)
		}
		zmfParams[key.String()] = zt
	}

	model := &zmf.Model{
		ZmfVersion: "1.0.0",
		Graph:      &zmf.Graph{Parameters: zmfParams},
	}

	data, err := proto.Marshal(model)
	if err != nil {
		return fmt.Errorf("netspec: %w: %v", errs.ErrPersistenceFailure, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("netspec: %w: %v", errs.ErrPersistenceFailure, err)
	}

	return nil
}

// LoadParameters reads a blob written by SaveParameters and returns its
// entries keyed by the parsed "<layer>.<kind>" name. The caller (network
// construction) is responsible for checking shapes against the declared
// spec and reporting ErrCheckpointIncompatible on mismatch.
func LoadParameters(path string) (map[state.Key]*tensor.Tensor, error) {
	//nolint:gosec // path is supplied by the host application, not untrusted input.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netspec: %w: %v", errs.ErrPersistenceFailure, err)
	}

	model := &zmf.Model{}
	if err := proto.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("netspec: %w: %v", errs.ErrCheckpointIncompatible, err)
	}
	if model.Graph == nil {
		return nil, fmt.Errorf("netspec: %w: blob has no parameters", errs.ErrCheckpointIncompatible)
	}

	out := make(map[state.Key]*tensor.Tensor, len(model.Graph.Parameters))
	for name, zt := range model.Graph.Parameters {
		key, err := state.ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("netspec: %w: %v", errs.ErrCheckpointIncompatible, err)
		}

		t, err := decodeTensor(zt)
		if err != nil {
			return nil, fmt.Errorf("netspec: %w: %v", errs.ErrCheckpointIncompatible, err)
		}
		out[key] = t
	}

	return out, nil
}

// encodeTensor narrows to the core's single float32 element type: raw
// little-endian bytes, so a round trip preserves every value to bit
// identity.
func encodeTensor(t *tensor.Tensor) (*zmf.Tensor, error) {
	shape := t.Shape()
	shape64 := make([]int64, len(shape))
	for i, d := range shape {
		shape64[i] = int64(d)
	}

	data := t.Data()
	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	return &zmf.Tensor{
		Shape: shape64,
		Dtype: zmf.Tensor_FLOAT32,
		Data:  raw,
	}, nil
}

// decodeTensor is encodeTensor's inverse, narrowed to float32.
func decodeTensor(zt *zmf.Tensor) (*tensor.Tensor, error) {
	if zt.Dtype != zmf.Tensor_FLOAT32 {
		return nil, fmt.Errorf("netspec: unsupported tensor dtype %v", zt.Dtype)
	}
	if len(zt.Data)%4 != 0 {
		return nil, fmt.Errorf("netspec: invalid float32 data length %d", len(zt.Data))
	}

	shape := make([]int, len(zt.Shape))
	size := 1
	for i, d := range zt.Shape {
		shape[i] = int(d)
		size *= int(d)
	}
	if size != len(zt.Data)/4 {
		return nil, fmt.Errorf("netspec: shape %v does not match data length %d", shape, len(zt.Data))
	}

	data := make([]float32, size)
	for i := range data {
		bits := binary.LittleEndian.Uint32(zt.Data[i*4 : i*4+4])
		data[i] = math.Float32frombits(bits)
	}

	return tensor.New(shape, data)
}
