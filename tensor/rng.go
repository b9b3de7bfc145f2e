package tensor

import "math/rand"

// FillGaussian fills a new tensor of the given shape with i.i.d. samples
// from the standard normal distribution, drawn from r. This is the only
// place the core calls into math/rand for weight initialization, seeding
// straight off *rand.Rand rather than reaching for a distribution-sampling
// library.
func FillGaussian(shape []int, r *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = float32(r.NormFloat64())
	}

	return t
}

// FillUniform fills a new tensor with i.i.d. samples drawn uniformly from
// [lo, hi).
func FillUniform(shape []int, lo, hi float32, r *rand.Rand) *Tensor {
	t := Zeros(shape)
	span := hi - lo
	for i := range t.data {
		t.data[i] = lo + float32(r.Float64())*span
	}

	return t
}

// Bernoulli fills a new {0,1} tensor where each element is 1 with
// probability p, used to sample a Dense layer's dropout mask.
func Bernoulli(shape []int, p float32, r *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		if r.Float64() < float64(p) {
			t.data[i] = 1
		}
	}

	return t
}
