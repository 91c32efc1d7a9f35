// Package pipeline runs one image through a segmenter and writes the
// rendered result.  Stages run in order: load, segment, aggregate, render,
// write.  Any failure aborts before the write so no output file is created.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"github.com/segmask/go-segmask/config"
	"github.com/segmask/go-segmask/render"
	"go.uber.org/zap"
)

// Pipeline segments an image and writes the masked result
type Pipeline struct {
	seg    segmask.Segmenter
	order  segmask.ColorOrder
	render config.Render
	alpha  float32
	style  render.OutlineStyle
	log    *zap.Logger
}

// New returns a Pipeline using seg as the model and cfg for the input color
// order and output rendering
func New(seg segmask.Segmenter, cfg *config.Config, log *zap.Logger) (*Pipeline, error) {

	if seg == nil {
		return nil, errors.New("no segmenter given")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		seg:    seg,
		order:  cfg.ColorOrder(),
		render: cfg.Render(),
		alpha:  cfg.Output.Alpha,
		style:  render.DefaultOutlineStyle(),
		log:    log,
	}, nil
}

// Timings are the durations of each pipeline stage
type Timings struct {
	Load    time.Duration
	Segment time.Duration
	Render  time.Duration
	Write   time.Duration
	Total   time.Duration
}

// Report describes a completed run
type Report struct {
	Input      string
	Output     string
	Render     config.Render
	Shape      segmask.Shape
	Detections []segmask.Detection
	// Foreground is the pixel count of the aggregated mask
	Foreground int
	// Coverage is Foreground as a fraction of the image
	Coverage float64
	Timings  Timings
}

// Print writes one line per detection followed by a summary
func (r *Report) Print(w io.Writer) {
	for _, d := range r.Detections {
		fmt.Fprintf(w, "%s @ %s %f\n", d.Label, d.Box, d.Score)
	}

	fmt.Fprintf(w, "%d objects, %d foreground pixels (%.2f%%) of %s, written to %s\n",
		len(r.Detections), r.Foreground, r.Coverage*100, r.Shape, r.Output)

	fmt.Fprintf(w, "Load=%s, Segment=%s, Render=%s, Write=%s, Total=%s\n",
		r.Timings.Load, r.Timings.Segment, r.Timings.Render, r.Timings.Write,
		r.Timings.Total)
}

// Run loads the image at inputPath, segments it, renders the result and
// writes it to outputPath, overwriting any existing file
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*Report, error) {

	start := time.Now()
	rep := &Report{
		Input:  inputPath,
		Output: outputPath,
		Render: p.render,
	}

	img, err := segmask.LoadImage(inputPath, p.order)

	if err != nil {
		return nil, err
	}

	rep.Shape = img.Shape()
	loaded := time.Now()
	rep.Timings.Load = loaded.Sub(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := segmask.Segment(ctx, p.seg, img)

	if err != nil {
		return nil, err
	}

	segmented := time.Now()
	rep.Timings.Segment = segmented.Sub(loaded)
	rep.Detections = res.Detections()

	agg, err := segmask.AggregateMasks(img.Shape(), res.Masks...)

	if err != nil {
		return nil, err
	}

	rep.Foreground = agg.Count()
	rep.Coverage = agg.Coverage()

	write, err := p.renderOutput(img, res, agg)

	if err != nil {
		return nil, err
	}

	rendered := time.Now()
	rep.Timings.Render = rendered.Sub(segmented)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := write(outputPath); err != nil {
		return nil, err
	}

	rep.Timings.Write = time.Since(rendered)
	rep.Timings.Total = time.Since(start)

	p.log.Info("pipeline complete",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("render", string(p.render)),
		zap.Int("objects", len(rep.Detections)),
		zap.Float64("coverage", rep.Coverage),
		zap.Duration("load", rep.Timings.Load),
		zap.Duration("segment", rep.Timings.Segment),
		zap.Duration("render", rep.Timings.Render),
		zap.Duration("write", rep.Timings.Write),
		zap.Duration("total", rep.Timings.Total),
	)

	return rep, nil
}

// renderOutput produces the output in memory and returns the function that
// writes it
func (p *Pipeline) renderOutput(img *segmask.Image, res *segmask.Result,
	agg segmask.Mask) (func(path string) error, error) {

	switch p.render {
	case config.RenderCutout:
		cut, err := segmask.Cutout(img, agg)

		if err != nil {
			return nil, err
		}

		return func(path string) error { return segmask.SaveCutout(path, cut) }, nil

	case config.RenderMask:
		return func(path string) error { return segmask.SaveMask(path, agg) }, nil

	case config.RenderOverlay:
		out, err := render.Overlay(img, res, p.alpha)

		if err != nil {
			return nil, errors.Wrap(err, "error rendering overlay")
		}

		return imageWriter(out), nil

	case config.RenderOutline:
		out, err := render.Outline(img, res, p.style)

		if err != nil {
			return nil, errors.Wrap(err, "error rendering outline")
		}

		return imageWriter(out), nil

	default:
		out, err := segmask.ApplyMask(img, agg)

		if err != nil {
			return nil, err
		}

		return imageWriter(out), nil
	}
}

func imageWriter(img *segmask.Image) func(path string) error {
	return func(path string) error { return segmask.SaveImage(path, img) }
}
