// Package rknnseg implements segmask.Segmenter with a YOLOv8-seg model
// running on the Rockchip NPU.
package rknnseg

import (
	"context"
	"image/color"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"github.com/segmask/go-segmask/config"
	"github.com/segmask/go-segmask/postprocess"
	"github.com/segmask/go-segmask/preprocess"
	"github.com/segmask/go-segmask/rknn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// letterboxColor is the padding color YOLOv8 models are trained with
var letterboxColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Segmenter runs YOLOv8-seg instance segmentation through the RKNN runtime
type Segmenter struct {
	rt     *rknn.Runtime
	yolo   *postprocess.YOLOv8Seg
	labels []string
	log    *zap.Logger
	// model input dimensions
	width  int
	height int
	// resized holds the letterboxed model input between runs
	resized gocv.Mat
}

// New loads the model and labels named by cfg.  The caller must Close the
// Segmenter to release the runtime.
func New(cfg config.ModelConfig, log *zap.Logger) (*Segmenter, error) {

	if log == nil {
		log = zap.NewNop()
	}

	if err := segmask.CheckReadable(cfg.File); err != nil {
		return nil, errors.Wrap(err, "model file")
	}

	var labels []string

	if cfg.Labels != "" {
		var err error

		if labels, err = segmask.LoadLabels(cfg.Labels); err != nil {
			return nil, err
		}
	}

	if cfg.CPUAffinity != "none" {
		ct, err := rknn.ParseCoreType(cfg.CPUAffinity)

		if err == nil {
			err = rknn.SetCPUAffinityByPlatform(cfg.Platform, ct)
		}

		if err != nil {
			log.Warn("failed to set CPU affinity", zap.Error(err))
		}
	}

	rt, err := rknn.NewRuntimeByPlatform(cfg.Platform, cfg.File)

	if err != nil {
		return nil, segmask.NewModelError(errors.Wrap(err, "error initializing RKNN runtime"))
	}

	// quantized models output int8, post processing dequantizes them unless
	// the runtime is asked for float32
	rt.SetWantFloat(cfg.WantFloat)

	params := postprocess.YOLOv8SegCOCOParams()
	params.BoxThreshold = cfg.BoxThreshold
	params.NMSThreshold = cfg.NMSThreshold
	params.MaxObjectNumber = cfg.MaxObjects
	params.ObjectClassNum = cfg.ClassNum

	width, height, _ := rt.InputSize()

	log.Info("model loaded",
		zap.String("model", cfg.File),
		zap.String("platform", cfg.Platform),
		zap.Bool("want_float", cfg.WantFloat),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("labels", len(labels)),
	)

	return &Segmenter{
		rt:      rt,
		yolo:    postprocess.NewYOLOv8Seg(params),
		labels:  labels,
		log:     log,
		width:   width,
		height:  height,
		resized: gocv.NewMat(),
	}, nil
}

// Segment runs the model on img and returns one mask per detected object at
// img's resolution
func (s *Segmenter) Segment(ctx context.Context, img *segmask.Image) (*segmask.Result, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	// the model is trained on RGB input
	mat, err := img.ToMat(segmask.RGB)

	if err != nil {
		return nil, errors.Wrap(err, "error converting image to Mat")
	}

	defer mat.Close()

	resizer := preprocess.NewResizer(img.Width, img.Height, s.width, s.height)
	defer resizer.Close()

	resizer.LetterBoxResize(mat, &s.resized, letterboxColor)

	outputs, err := s.rt.Inference(s.resized)

	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	inferEnd := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tensors, err := toTensors(outputs)

	if err != nil {
		return nil, err
	}

	seg, err := s.yolo.Segment(tensors, resizer)

	if err != nil {
		return nil, errors.Wrap(err, "post processing failed")
	}

	res, err := toResult(seg, s.labels, img.Shape())

	if err != nil {
		return nil, err
	}

	s.log.Info("segmentation complete",
		zap.Int("objects", res.Len()),
		zap.Duration("inference", inferEnd.Sub(start)),
		zap.Duration("postprocess", time.Since(inferEnd)),
	)

	return res, nil
}

// Query writes the SDK version and model tensor attributes to w
func (s *Segmenter) Query(w io.Writer) error {
	return s.rt.Query(w)
}

// Close releases the runtime and buffers
func (s *Segmenter) Close() error {
	return multierr.Combine(
		s.resized.Close(),
		s.rt.Close(),
	)
}

// toTensors converts runtime outputs to post processing tensors.  YOLOv8-seg
// outputs are NCHW.
func toTensors(outputs []rknn.Output) ([]postprocess.Tensor, error) {

	tensors := make([]postprocess.Tensor, len(outputs))

	for i, out := range outputs {

		if out.Attr.NDims == 4 && out.Attr.Fmt == rknn.TensorNHWC {
			return nil, errors.Errorf("output %d (%s) is NHWC, expected NCHW", i, out.Attr.Name)
		}

		dims := make([]int, out.Attr.NDims)

		for d := range dims {
			dims[d] = int(out.Attr.Dims[d])
		}

		tensors[i] = postprocess.Tensor{
			Dims:  dims,
			ZP:    out.Attr.ZP,
			Scale: out.Attr.Scale,
			Int8:  out.Int8,
			Float: out.Float,
		}
	}

	return tensors, nil
}

// toResult converts the post processing result to a segmask.Result
func toResult(seg postprocess.SegmentResult, labels []string,
	shape segmask.Shape) (*segmask.Result, error) {

	n := len(seg.DetectResults)

	res := &segmask.Result{
		Masks:  make([]segmask.Mask, 0, n),
		Labels: make([]string, 0, n),
		Scores: make([]float32, 0, n),
		Boxes:  make([]segmask.Box, 0, n),
	}

	for i, det := range seg.DetectResults {

		mask, err := segmask.MaskFromValues(shape.Width, shape.Height, seg.Masks[i])

		if err != nil {
			return nil, errors.Wrapf(err, "mask of object %d", i)
		}

		res.Masks = append(res.Masks, mask)
		res.Labels = append(res.Labels, segmask.LabelFor(labels, det.Class))
		res.Scores = append(res.Scores, det.Probability)
		res.Boxes = append(res.Boxes, segmask.Box{
			Left:   det.Box.Left,
			Top:    det.Box.Top,
			Right:  det.Box.Right,
			Bottom: det.Box.Bottom,
		})
	}

	return res, nil
}
