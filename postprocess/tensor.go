package postprocess

import (
	"github.com/pkg/errors"
)

// Tensor is a model output tensor in NCHW layout copied out of the runtime.
// Either Int8 holds affine quantized data, or Float holds float32 data.
type Tensor struct {
	// Dims are the tensor dimensions, eg: [1, 64, 80, 80]
	Dims []int
	// ZP is the quantization zero point
	ZP int32
	// Scale is the quantization scale
	Scale float32
	Int8  []int8
	Float []float32
}

func (t Tensor) dim(i int) int {
	if i < len(t.Dims) {
		return t.Dims[i]
	}

	return 1
}

// Channels returns the C dimension
func (t Tensor) Channels() int {
	return t.dim(1)
}

// Height returns the H dimension
func (t Tensor) Height() int {
	return t.dim(2)
}

// Width returns the W dimension
func (t Tensor) Width() int {
	return t.dim(3)
}

// Len returns the number of elements held
func (t Tensor) Len() int {
	if t.Float != nil {
		return len(t.Float)
	}

	return len(t.Int8)
}

// At returns element i as a float32, dequantizing int8 data
func (t Tensor) At(i int) float32 {
	if t.Float != nil {
		return t.Float[i]
	}

	return deqntAffineToF32(t.Int8[i], t.ZP, t.Scale)
}

// validate checks the tensor has positive NCHW dimensions and holds at least
// as many elements as they describe
func (t Tensor) validate(name string) error {

	if len(t.Dims) != 4 {
		return errors.Errorf("%s tensor has %d dims, expected NCHW", name, len(t.Dims))
	}

	want := 1

	for i, d := range t.Dims {
		if d <= 0 {
			return errors.Errorf("%s tensor dim %d is %d, expected positive", name, i, d)
		}

		want *= d
	}

	if t.Len() < want {
		return errors.Errorf("%s tensor has %d elements, expected %d", name, t.Len(), want)
	}

	return nil
}
