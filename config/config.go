package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/segmask/go-segmask"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// eg: SEGMASK_MODEL_FILE
const EnvPrefix = "SEGMASK"

// Render selects what the pipeline writes to the output file
type Render string

const (
	// RenderMasked writes the image with background pixels zeroed
	RenderMasked Render = "masked"
	// RenderCutout writes the image with background pixels transparent
	RenderCutout Render = "cutout"
	// RenderMask writes the aggregated mask only
	RenderMask Render = "mask"
	// RenderOverlay writes the image with colored instance masks and boxes
	RenderOverlay Render = "overlay"
	// RenderOutline writes the image with instance outlines and labels
	RenderOutline Render = "outline"
)

var renders = []Render{RenderMasked, RenderCutout, RenderMask, RenderOverlay, RenderOutline}

// ParseRender converts a render name to a Render
func ParseRender(s string) (Render, error) {
	r := Render(strings.ToLower(strings.TrimSpace(s)))

	for _, v := range renders {
		if r == v {
			return r, nil
		}
	}

	return "", errors.Errorf("unknown render %q, expected one of %v", s, renders)
}

type Config struct {
	Model  ModelConfig  `mapstructure:"model"`
	Input  InputConfig  `mapstructure:"input"`
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

type ModelConfig struct {
	File         string  `mapstructure:"file"`
	Labels       string  `mapstructure:"labels"`
	Platform     string  `mapstructure:"platform"`
	CPUAffinity  string  `mapstructure:"cpu_affinity"`
	BoxThreshold float32 `mapstructure:"box_threshold"`
	NMSThreshold float32 `mapstructure:"nms_threshold"`
	MaxObjects   int     `mapstructure:"max_objects"`
	ClassNum     int     `mapstructure:"class_num"`
	// WantFloat has the runtime dequantize outputs to float32, otherwise the
	// int8 outputs are dequantized during post processing
	WantFloat bool `mapstructure:"want_float"`
}

type InputConfig struct {
	Path       string `mapstructure:"path"`
	ColorOrder string `mapstructure:"color_order"`
	// Masks are pre-computed mask files used instead of a model
	Masks []string `mapstructure:"masks"`
}

type OutputConfig struct {
	Path          string  `mapstructure:"path"`
	Render        string  `mapstructure:"render"`
	Alpha         float32 `mapstructure:"alpha"`
	MaskThreshold int     `mapstructure:"mask_threshold"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Platform:     "rk3588",
			CPUAffinity:  "fast",
			WantFloat:    false,
			BoxThreshold: 0.25,
			NMSThreshold: 0.45,
			MaxObjects:   64,
			ClassNum:     80,
		},
		Input: InputConfig{
			ColorOrder: "rgb",
			Masks:      []string{},
		},
		Output: OutputConfig{
			Path:          "segmented.png",
			Render:        string(RenderMasked),
			Alpha:         0.5,
			MaskThreshold: int(segmask.DefaultMaskThreshold),
		},
		Log: LogConfig{
			Mode: "debug",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("model.file", d.Model.File)
	v.SetDefault("model.labels", d.Model.Labels)
	v.SetDefault("model.platform", d.Model.Platform)
	v.SetDefault("model.cpu_affinity", d.Model.CPUAffinity)
	v.SetDefault("model.want_float", d.Model.WantFloat)
	v.SetDefault("model.box_threshold", d.Model.BoxThreshold)
	v.SetDefault("model.nms_threshold", d.Model.NMSThreshold)
	v.SetDefault("model.max_objects", d.Model.MaxObjects)
	v.SetDefault("model.class_num", d.Model.ClassNum)

	v.SetDefault("input.path", d.Input.Path)
	v.SetDefault("input.color_order", d.Input.ColorOrder)
	v.SetDefault("input.masks", d.Input.Masks)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.render", d.Output.Render)
	v.SetDefault("output.alpha", d.Output.Alpha)
	v.SetDefault("output.mask_threshold", d.Output.MaskThreshold)

	v.SetDefault("log.mode", d.Log.Mode)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return v
}

// Load reads the YAML configuration file at path over the defaults.  An
// empty path loads the defaults and environment only.
func Load(path string) (*Config, error) {

	v := newViper()

	if path != "" {
		if err := segmask.CheckReadable(path); err != nil {
			return nil, err
		}

		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(segmask.ErrIO, "failed to read config file %s: %v", path, err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return &cfg, nil
}

// Validate checks every value is within range
func (c *Config) Validate() error {

	if c.Model.BoxThreshold <= 0 || c.Model.BoxThreshold > 1 {
		return errors.Errorf("model.box_threshold %v must be in (0, 1]", c.Model.BoxThreshold)
	}

	if c.Model.NMSThreshold <= 0 || c.Model.NMSThreshold > 1 {
		return errors.Errorf("model.nms_threshold %v must be in (0, 1]", c.Model.NMSThreshold)
	}

	if c.Model.MaxObjects <= 0 {
		return errors.Errorf("model.max_objects %d must be positive", c.Model.MaxObjects)
	}

	if c.Model.ClassNum <= 0 {
		return errors.Errorf("model.class_num %d must be positive", c.Model.ClassNum)
	}

	switch strings.ToLower(c.Model.CPUAffinity) {
	case "fast", "slow", "all", "none", "":
	default:
		return errors.Errorf("model.cpu_affinity %q must be fast, slow, all or none", c.Model.CPUAffinity)
	}

	if _, err := segmask.ParseColorOrder(c.Input.ColorOrder); err != nil {
		return errors.Wrap(err, "input.color_order")
	}

	if _, err := ParseRender(c.Output.Render); err != nil {
		return errors.Wrap(err, "output.render")
	}

	if c.Output.Alpha < 0 || c.Output.Alpha > 1 {
		return errors.Errorf("output.alpha %v must be in [0, 1]", c.Output.Alpha)
	}

	if c.Output.MaskThreshold < 0 || c.Output.MaskThreshold > 255 {
		return errors.Errorf("output.mask_threshold %d must be in [0, 255]", c.Output.MaskThreshold)
	}

	return nil
}

// ColorOrder returns the parsed input color order
func (c *Config) ColorOrder() segmask.ColorOrder {
	order, _ := segmask.ParseColorOrder(c.Input.ColorOrder)
	return order
}

// Render returns the parsed output render
func (c *Config) Render() Render {
	r, err := ParseRender(c.Output.Render)

	if err != nil {
		return RenderMasked
	}

	return r
}
