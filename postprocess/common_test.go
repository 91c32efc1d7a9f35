package postprocess

import (
	"testing"

	"go.viam.com/test"
)

func TestDeqntAffine(t *testing.T) {
	test.That(t, deqntAffineToF32(10, -128, 0.5), test.ShouldEqual, float32(69))
	test.That(t, deqntAffineToF32(-128, -128, 0.5), test.ShouldEqual, float32(0))

	tensor := Tensor{Dims: []int{1, 1, 1, 2}, ZP: 2, Scale: 0.25, Int8: []int8{6, 2}}
	test.That(t, tensor.At(0), test.ShouldEqual, float32(1))
	test.That(t, tensor.At(1), test.ShouldEqual, float32(0))
}

func TestQuickSortIndiceInverse(t *testing.T) {
	probs := []float32{0.2, 0.9, 0.5, 0.7}
	idx := []int{0, 1, 2, 3}

	quickSortIndiceInverse(probs, 0, len(probs)-1, idx)

	test.That(t, probs, test.ShouldResemble, []float32{0.9, 0.7, 0.5, 0.2})
	test.That(t, idx, test.ShouldResemble, []int{1, 3, 2, 0})
}

func TestNMS(t *testing.T) {
	// x, y, w, h
	boxes := []float32{
		0, 0, 10, 10,
		1, 1, 10, 10,
		1, 1, 10, 10,
		50, 50, 10, 10,
	}
	classIDs := []int{0, 0, 1, 0}
	order := []int{0, 1, 2, 3}

	nms(4, boxes, classIDs, order, 0, 0.45)
	nms(4, boxes, classIDs, order, 1, 0.45)

	// box 1 overlaps box 0 of the same class, box 2 is another class
	test.That(t, order, test.ShouldResemble, []int{0, -1, 2, 3})
}

func TestCalculateOverlap(t *testing.T) {
	test.That(t, calculateOverlap(0, 0, 9, 9, 0, 0, 9, 9), test.ShouldEqual, float32(1))
	test.That(t, calculateOverlap(0, 0, 9, 9, 20, 20, 29, 29), test.ShouldEqual, float32(0))
}

func TestComputeDFL(t *testing.T) {
	// each side peaks on a different bin
	tensor := []float32{
		50, 0, 0, 0,
		0, 50, 0, 0,
		0, 0, 50, 0,
		0, 0, 0, 50,
	}

	box := computeDFL(tensor, 4)

	for i, want := range []float64{0, 1, 2, 3} {
		test.That(t, box[i], test.ShouldAlmostEqual, want, 1e-6)
	}
}

func TestTensorValidate(t *testing.T) {
	good := Tensor{Dims: []int{1, 2, 2, 2}, Float: make([]float32, 8)}
	test.That(t, good.validate("good"), test.ShouldBeNil)

	short := Tensor{Dims: []int{1, 2, 2, 2}, Float: make([]float32, 7)}
	test.That(t, short.validate("short"), test.ShouldNotBeNil)

	flat := Tensor{Dims: []int{8}, Float: make([]float32, 8)}
	test.That(t, flat.validate("flat"), test.ShouldNotBeNil)

	zero := Tensor{Dims: []int{1, 2, 0, 2}, Float: make([]float32, 8)}
	test.That(t, zero.validate("zero"), test.ShouldNotBeNil)

	negative := Tensor{Dims: []int{1, -2, -2, 2}, Float: make([]float32, 8)}
	test.That(t, negative.validate("negative"), test.ShouldNotBeNil)
}
