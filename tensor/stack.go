package tensor

import "fmt"

// HStack concatenates rank-2 tensors along the last axis (columns). All
// inputs must share the same leading dimension. This backs the Concat
// layer's forward pass.
func HStack(inputs []*Tensor) (*Tensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("tensor: HStack requires at least one input")
	}

	rows := inputs[0].shape[0]
	cols := 0
	for i, in := range inputs {
		if len(in.shape) != 2 {
			return nil, fmt.Errorf("tensor: HStack input %d is rank %d, want 2", i, len(in.shape))
		}
		if in.shape[0] != rows {
			return nil, fmt.Errorf("tensor: HStack input %d has %d rows, want %d", i, in.shape[0], rows)
		}
		cols += in.shape[1]
	}

	out := Zeros([]int{rows, cols})
	for r := 0; r < rows; r++ {
		offset := 0
		for _, in := range inputs {
			w := in.shape[1]
			copy(out.data[r*cols+offset:r*cols+offset+w], in.data[r*w:(r+1)*w])
			offset += w
		}
	}

	return out, nil
}

// VStack concatenates rank-2 tensors along the leading axis (rows).
func VStack(inputs []*Tensor) (*Tensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("tensor: VStack requires at least one input")
	}

	cols := inputs[0].shape[1]
	rows := 0
	for i, in := range inputs {
		if len(in.shape) != 2 {
			return nil, fmt.Errorf("tensor: VStack input %d is rank %d, want 2", i, len(in.shape))
		}
		if in.shape[1] != cols {
			return nil, fmt.Errorf("tensor: VStack input %d has %d cols, want %d", i, in.shape[1], cols)
		}
		rows += in.shape[0]
	}

	out := Zeros([]int{rows, cols})
	offset := 0
	for _, in := range inputs {
		copy(out.data[offset*cols:], in.data)
		offset += in.shape[0]
	}

	return out, nil
}

// Stack sums same-shaped tensors element-wise into one tensor of that
// shape; it backs the Sum layer's forward pass (not to be confused with
// HStack).
func Stack(inputs []*Tensor) (*Tensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("tensor: Stack requires at least one input")
	}

	shape := inputs[0].shape
	for i, in := range inputs {
		if !SameShape(in.shape, shape) {
			return nil, fmt.Errorf("tensor: Stack input %d has shape %v, want %v", i, in.shape, shape)
		}
	}

	out := Zeros(shape)
	for _, in := range inputs {
		for i, v := range in.data {
			out.data[i] += v
		}
	}

	return out, nil
}
