// Package cli implements the segmask command line app.  The model runtime is
// passed in so the commands build without cgo.
package cli

import (
	"io"

	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"github.com/segmask/go-segmask/config"
	"github.com/segmask/go-segmask/logging"
	"github.com/segmask/go-segmask/pipeline"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	// Flags.
	flagConfig       = "config"
	flagDebug        = "debug"
	flagModel        = "model"
	flagInput        = "input"
	flagOutput       = "output"
	flagLabels       = "labels"
	flagRender       = "render"
	flagPlatform     = "platform"
	flagOrder        = "order"
	flagBoxThreshold = "box-threshold"
	flagNMSThreshold = "nms-threshold"
	flagMask         = "mask"
	flagThreshold    = "threshold"
	flagWantFloat    = "want-float"
)

// Model is a loaded segmentation model the segment and query commands run
type Model interface {
	segmask.Segmenter
	// Query writes the runtime version and model tensor attributes to w
	Query(w io.Writer) error
	Close() error
}

// ModelLoader loads the model described by cfg
type ModelLoader func(cfg config.ModelConfig, log *zap.Logger) (Model, error)

// state is shared by the commands once Before has run
type state struct {
	cfg  *config.Config
	log  *zap.Logger
	load ModelLoader
}

// NewApp returns the segmask command line app with Writer set to out and
// ErrWriter set to errOut.  load opens the model for the segment and query
// commands.
func NewApp(out, errOut io.Writer, load ModelLoader) *cli.App {
	st := &state{load: load}

	modelFlag := &cli.StringFlag{
		Name:    flagModel,
		Aliases: []string{"m"},
		Usage:   "RKNN compiled YOLOv8-seg model `FILE`",
	}

	platformFlag := &cli.StringFlag{
		Name:    flagPlatform,
		Aliases: []string{"p"},
		Usage:   "rockchip platform rk3562|rk3566|rk3568|rk3576|rk3582|rk3588",
	}

	inputFlag := &cli.StringFlag{
		Name:    flagInput,
		Aliases: []string{"i"},
		Usage:   "image `FILE` to segment",
	}

	outputFlag := &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "output image `FILE`, the format is chosen by extension",
	}

	renderFlag := &cli.StringFlag{
		Name:    flagRender,
		Aliases: []string{"r"},
		Usage:   "output render masked|cutout|mask|overlay|outline",
	}

	orderFlag := &cli.StringFlag{
		Name:  flagOrder,
		Usage: "color order handed to the model rgb|bgr",
	}

	return &cli.App{
		Name:      "segmask",
		Usage:     "mask out everything but the objects found in an image",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String(flagConfig))

			if err != nil {
				return err
			}

			if c.Bool(flagDebug) {
				cfg.Log.Mode = "debug"
			}

			log, err := logging.New(cfg.Log.Mode)

			if err != nil {
				return errors.Wrap(err, "error creating logger")
			}

			st.cfg = cfg
			st.log = log

			return nil
		},
		After: func(c *cli.Context) error {
			logging.Sync(st.log)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "segment",
				Usage: "run the YOLOv8-seg model on an image and write the result",
				Flags: []cli.Flag{
					modelFlag, platformFlag, inputFlag, outputFlag, renderFlag, orderFlag,
					&cli.StringFlag{
						Name:    flagLabels,
						Aliases: []string{"l"},
						Usage:   "labels `FILE`, one class name per line",
					},
					&cli.Float64Flag{
						Name:  flagBoxThreshold,
						Usage: "minimum object confidence",
					},
					&cli.Float64Flag{
						Name:  flagNMSThreshold,
						Usage: "non maximum suppression IoU threshold",
					},
					&cli.BoolFlag{
						Name:  flagWantFloat,
						Usage: "have the runtime dequantize outputs to float32",
					},
				},
				Action: st.segment,
			},
			{
				Name:  "apply",
				Usage: "apply pre-computed mask files to an image",
				Flags: []cli.Flag{
					inputFlag, outputFlag, renderFlag, orderFlag,
					&cli.StringSliceFlag{
						Name:  flagMask,
						Usage: "mask image `FILE`, repeat for each object",
					},
					&cli.IntFlag{
						Name:  flagThreshold,
						Usage: "value a mask pixel's red channel must exceed to be foreground",
					},
				},
				Action: st.apply,
			},
			{
				Name:   "query",
				Usage:  "print the RKNN SDK version and model tensor attributes",
				Flags:  []cli.Flag{modelFlag, platformFlag},
				Action: st.query,
			},
		},
	}
}

// applyFlags copies the flags that were set over the loaded configuration
func (st *state) applyFlags(c *cli.Context) error {

	cfg := st.cfg

	strs := map[string]*string{
		flagModel:    &cfg.Model.File,
		flagLabels:   &cfg.Model.Labels,
		flagPlatform: &cfg.Model.Platform,
		flagInput:    &cfg.Input.Path,
		flagOrder:    &cfg.Input.ColorOrder,
		flagOutput:   &cfg.Output.Path,
		flagRender:   &cfg.Output.Render,
	}

	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	if c.IsSet(flagBoxThreshold) {
		cfg.Model.BoxThreshold = float32(c.Float64(flagBoxThreshold))
	}

	if c.IsSet(flagNMSThreshold) {
		cfg.Model.NMSThreshold = float32(c.Float64(flagNMSThreshold))
	}

	if c.IsSet(flagWantFloat) {
		cfg.Model.WantFloat = c.Bool(flagWantFloat)
	}

	if c.IsSet(flagMask) {
		cfg.Input.Masks = c.StringSlice(flagMask)
	}

	if c.IsSet(flagThreshold) {
		cfg.Output.MaskThreshold = c.Int(flagThreshold)
	}

	return cfg.Validate()
}

// run executes the pipeline with seg and prints the report
func (st *state) run(c *cli.Context, seg segmask.Segmenter) error {

	if st.cfg.Input.Path == "" {
		return errors.New("no input image given, use --input")
	}

	p, err := pipeline.New(seg, st.cfg, st.log)

	if err != nil {
		return err
	}

	rep, err := p.Run(c.Context, st.cfg.Input.Path, st.cfg.Output.Path)

	if err != nil {
		return err
	}

	rep.Print(c.App.Writer)

	return nil
}

// newSegmenter loads the model
func (st *state) newSegmenter() (Model, error) {

	if st.cfg.Model.File == "" {
		return nil, errors.New("no model file given, use --model")
	}

	if st.load == nil {
		return nil, errors.New("no model runtime available")
	}

	return st.load(st.cfg.Model, st.log)
}

func (st *state) segment(c *cli.Context) error {

	if err := st.applyFlags(c); err != nil {
		return err
	}

	seg, err := st.newSegmenter()

	if err != nil {
		return err
	}

	defer func() {
		if err := seg.Close(); err != nil {
			st.log.Warn("error closing model", zap.Error(err))
		}
	}()

	return st.run(c, seg)
}

func (st *state) apply(c *cli.Context) error {

	if err := st.applyFlags(c); err != nil {
		return err
	}

	if len(st.cfg.Input.Masks) == 0 {
		return errors.New("no mask files given, use --mask")
	}

	seg := segmask.NewMaskFileSegmenter(st.cfg.Input.Masks...)
	seg.Threshold = uint8(st.cfg.Output.MaskThreshold)

	return st.run(c, seg)
}

func (st *state) query(c *cli.Context) error {

	if err := st.applyFlags(c); err != nil {
		return err
	}

	seg, err := st.newSegmenter()

	if err != nil {
		return err
	}

	defer func() {
		if err := seg.Close(); err != nil {
			st.log.Warn("error closing model", zap.Error(err))
		}
	}()

	return seg.Query(c.App.Writer)
}
