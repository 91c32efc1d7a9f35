package pipeline

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"github.com/segmask/go-segmask/config"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
)

// writeInput saves a 2x2 RGB image with distinct pixels and returns its path
func writeInput(t *testing.T, dir string) (string, *segmask.Image) {
	t.Helper()

	img := segmask.NewImage(2, 2, segmask.RGB)
	img.SetPixel(0, 0, [3]uint8{10, 20, 30})
	img.SetPixel(1, 0, [3]uint8{40, 50, 60})
	img.SetPixel(0, 1, [3]uint8{70, 80, 90})
	img.SetPixel(1, 1, [3]uint8{100, 110, 120})

	path := filepath.Join(dir, "input.png")
	test.That(t, segmask.SaveImage(path, img), test.ShouldBeNil)

	return path, img
}

func mustMask(t *testing.T, rows [][]bool) segmask.Mask {
	t.Helper()

	m, err := segmask.MaskFromBools(rows)
	test.That(t, err, test.ShouldBeNil)

	return m
}

// diagonalSegmenter returns the two single pixel masks of the 2x2 scenario
func diagonalSegmenter(t *testing.T) segmask.Segmenter {
	return segmask.SegmenterFunc(func(ctx context.Context, img *segmask.Image) (*segmask.Result, error) {
		return &segmask.Result{
			Masks: []segmask.Mask{
				mustMask(t, [][]bool{{true, false}, {false, false}}),
				mustMask(t, [][]bool{{false, false}, {false, true}}),
			},
			Labels: []string{"a", "b"},
			Scores: []float32{0.9, 0.8},
			Boxes: []segmask.Box{
				{Left: 0, Top: 0, Right: 1, Bottom: 1},
				{Left: 1, Top: 1, Right: 2, Bottom: 2},
			},
		}, nil
	})
}

func newPipeline(t *testing.T, seg segmask.Segmenter, r config.Render) *Pipeline {
	t.Helper()

	cfg := config.Default()
	cfg.Output.Render = string(r)

	p, err := New(seg, cfg, zaptest.NewLogger(t))
	test.That(t, err, test.ShouldBeNil)

	return p
}

func TestRunMasked(t *testing.T) {
	dir := t.TempDir()
	input, src := writeInput(t, dir)
	output := filepath.Join(dir, "out.png")

	p := newPipeline(t, diagonalSegmenter(t), config.RenderMasked)

	rep, err := p.Run(context.Background(), input, output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rep.Foreground, test.ShouldEqual, 2)
	test.That(t, rep.Coverage, test.ShouldEqual, 0.5)
	test.That(t, len(rep.Detections), test.ShouldEqual, 2)
	test.That(t, rep.Detections[0].Label, test.ShouldEqual, "a")

	out, err := segmask.LoadImage(output, segmask.RGB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Pixel(0, 0), test.ShouldResemble, src.Pixel(0, 0))
	test.That(t, out.Pixel(1, 1), test.ShouldResemble, src.Pixel(1, 1))
	test.That(t, out.Pixel(1, 0), test.ShouldResemble, [3]uint8{0, 0, 0})
	test.That(t, out.Pixel(0, 1), test.ShouldResemble, [3]uint8{0, 0, 0})

	var buf bytes.Buffer
	rep.Print(&buf)
	test.That(t, buf.String(), test.ShouldContainSubstring, "a @ (0 0 1 1) 0.900000")
	test.That(t, buf.String(), test.ShouldContainSubstring, "2 objects")
}

func TestRunBGROrder(t *testing.T) {
	dir := t.TempDir()
	input, src := writeInput(t, dir)
	output := filepath.Join(dir, "out.png")

	cfg := config.Default()
	cfg.Input.ColorOrder = "bgr"

	var seen [3]uint8

	seg := segmask.SegmenterFunc(func(ctx context.Context, img *segmask.Image) (*segmask.Result, error) {
		test.That(t, img.Order, test.ShouldEqual, segmask.BGR)
		seen = img.Pixel(0, 0)

		return nil, nil
	})

	p, err := New(seg, cfg, nil)
	test.That(t, err, test.ShouldBeNil)

	rep, err := p.Run(context.Background(), input, output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rep.Foreground, test.ShouldEqual, 0)
	test.That(t, seen, test.ShouldResemble, [3]uint8{30, 20, 10})

	// nothing detected writes an all black image in the source order
	out, err := segmask.LoadImage(output, segmask.RGB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Shape(), test.ShouldResemble, src.Shape())
	test.That(t, out.Pixel(1, 1), test.ShouldResemble, [3]uint8{0, 0, 0})
}

func TestRunShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	output := filepath.Join(dir, "out.png")

	seg := segmask.SegmenterFunc(func(ctx context.Context, img *segmask.Image) (*segmask.Result, error) {
		return &segmask.Result{
			Masks:  []segmask.Mask{segmask.NewMask(3, 3)},
			Labels: []string{"a"},
			Scores: []float32{1},
		}, nil
	})

	_, err := newPipeline(t, seg, config.RenderMasked).Run(context.Background(), input, output)
	test.That(t, err, test.ShouldWrap, segmask.ErrShapeMismatch)

	_, statErr := os.Stat(output)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
}

func TestRunModelError(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	output := filepath.Join(dir, "out.png")

	cause := errors.New("npu busy")
	seg := segmask.SegmenterFunc(func(ctx context.Context, img *segmask.Image) (*segmask.Result, error) {
		return nil, cause
	})

	_, err := newPipeline(t, seg, config.RenderMasked).Run(context.Background(), input, output)
	test.That(t, err, test.ShouldWrap, segmask.ErrModel)
	test.That(t, err, test.ShouldWrap, cause)

	_, statErr := os.Stat(output)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := newPipeline(t, diagonalSegmenter(t), config.RenderMasked).
		Run(context.Background(), filepath.Join(dir, "nope.png"), filepath.Join(dir, "out.png"))
	test.That(t, err, test.ShouldWrap, segmask.ErrFileNotFound)
}

func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	output := filepath.Join(dir, "out.png")

	ctx, cancel := context.WithCancel(context.Background())

	seg := segmask.SegmenterFunc(func(ctx context.Context, img *segmask.Image) (*segmask.Result, error) {
		cancel()
		return nil, nil
	})

	_, err := newPipeline(t, seg, config.RenderMasked).Run(ctx, input, output)
	test.That(t, err, test.ShouldWrap, context.Canceled)

	_, statErr := os.Stat(output)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
}

func TestRunMaskRender(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	output := filepath.Join(dir, "mask.png")

	_, err := newPipeline(t, diagonalSegmenter(t), config.RenderMask).Run(context.Background(), input, output)
	test.That(t, err, test.ShouldBeNil)

	mask, err := segmask.LoadMask(output, segmask.DefaultMaskThreshold)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Data, test.ShouldResemble, []uint8{255, 0, 0, 255})
}

func TestRunCutoutRender(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	output := filepath.Join(dir, "cutout.png")

	_, err := newPipeline(t, diagonalSegmenter(t), config.RenderCutout).Run(context.Background(), input, output)
	test.That(t, err, test.ShouldBeNil)

	img, err := imaging.Open(output)
	test.That(t, err, test.ShouldBeNil)

	opaque := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	test.That(t, opaque, test.ShouldResemble, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	transparent := color.NRGBAModel.Convert(img.At(1, 0)).(color.NRGBA)
	test.That(t, transparent.A, test.ShouldEqual, uint8(0))
}

func TestRunOverlayAndOutline(t *testing.T) {
	for _, r := range []config.Render{config.RenderOverlay, config.RenderOutline} {
		t.Run(string(r), func(t *testing.T) {
			dir := t.TempDir()
			input, src := writeInput(t, dir)
			output := filepath.Join(dir, "out.bmp")

			_, err := newPipeline(t, diagonalSegmenter(t), r).Run(context.Background(), input, output)
			test.That(t, err, test.ShouldBeNil)

			out, err := segmask.LoadImage(output, segmask.RGB)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, out.Shape(), test.ShouldResemble, src.Shape())
		})
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Render = "sepia"

	_, err := New(diagonalSegmenter(t), cfg, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = New(nil, config.Default(), nil)
	test.That(t, err, test.ShouldNotBeNil)
}
