//go:build integration
// +build integration

package rknnseg

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/segmask/go-segmask"
	"github.com/segmask/go-segmask/config"
	"github.com/segmask/go-segmask/postprocess"
	"github.com/segmask/go-segmask/rknn"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
)

func TestToTensors(t *testing.T) {
	out := rknn.Output{
		Attr: rknn.TensorAttr{
			NDims: 4,
			Fmt:   rknn.TensorNCHW,
			ZP:    -17,
			Scale: 0.02,
		},
		Int8: []int8{1, 2, 3},
	}
	copy(out.Attr.Dims[:], []uint32{1, 32, 160, 160})

	tensors, err := toTensors([]rknn.Output{out})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tensors[0].Dims, test.ShouldResemble, []int{1, 32, 160, 160})
	test.That(t, tensors[0].ZP, test.ShouldEqual, int32(-17))
	test.That(t, tensors[0].Int8, test.ShouldResemble, []int8{1, 2, 3})
	test.That(t, tensors[0].Float, test.ShouldBeNil)
	// int8 outputs dequantize with the tensor zero point and scale
	test.That(t, tensors[0].At(0), test.ShouldAlmostEqual, 0.36, 1e-6)

	// runtime dequantized outputs pass through
	floatOut := out
	floatOut.Int8 = nil
	floatOut.Float = []float32{0.5, 0.25}

	tensors, err = toTensors([]rknn.Output{floatOut})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tensors[0].At(1), test.ShouldEqual, float32(0.25))

	out.Attr.Fmt = rknn.TensorNHWC
	_, err = toTensors([]rknn.Output{out})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestToResult(t *testing.T) {
	seg := postprocess.SegmentResult{
		DetectResults: []postprocess.DetectResult{
			{Class: 0, Probability: 0.8, Box: postprocess.BoxRect{Left: 0, Top: 0, Right: 1, Bottom: 1}},
			{Class: 5, Probability: 0.6},
		},
		Masks: [][]uint8{{255, 0, 0, 0}, {0, 0, 0, 255}},
	}

	res, err := toResult(seg, []string{"person"}, segmask.Shape{Width: 2, Height: 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Labels, test.ShouldResemble, []string{"person", "class5"})
	test.That(t, res.Boxes[0], test.ShouldResemble, segmask.Box{Left: 0, Top: 0, Right: 1, Bottom: 1})
	test.That(t, res.Validate(segmask.Shape{Width: 2, Height: 2}), test.ShouldBeNil)
}

func TestSegmenterOnDevice(t *testing.T) {

	modelFile := os.Getenv("RKNN_MODEL")

	if modelFile == "" {
		t.Fatalf("No Model file provided in RKNN_MODEL")
	}

	imgFile := os.Getenv("RKNN_IMAGE")

	if imgFile == "" {
		t.Fatalf("No Image file provided in RKNN_IMAGE")
	}

	cfg := config.Default().Model
	cfg.File = modelFile
	cfg.Labels = os.Getenv("RKNN_LABELS")

	if p := os.Getenv("RKNN_PLATFORM"); p != "" {
		cfg.Platform = p
	}

	seg, err := New(cfg, zaptest.NewLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer seg.Close()

	var buf bytes.Buffer
	test.That(t, seg.Query(&buf), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "Output tensors")

	img, err := segmask.LoadImage(imgFile, segmask.RGB)
	test.That(t, err, test.ShouldBeNil)

	res, err := segmask.Segment(context.Background(), seg, img)
	test.That(t, err, test.ShouldBeNil)

	for _, m := range res.Masks {
		test.That(t, m.Shape(), test.ShouldResemble, img.Shape())
	}
}

func TestNewMissingModel(t *testing.T) {
	cfg := config.Default().Model
	cfg.File = "missing.rknn"

	_, err := New(cfg, nil)
	test.That(t, err, test.ShouldWrap, segmask.ErrFileNotFound)
}
