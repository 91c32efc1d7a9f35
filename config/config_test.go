package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/segmask/go-segmask"
	"go.viam.com/test"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	test.That(t, cfg.Model.Platform, test.ShouldEqual, "rk3588")
	test.That(t, cfg.Model.BoxThreshold, test.ShouldAlmostEqual, 0.25, 1e-6)
	test.That(t, cfg.Model.NMSThreshold, test.ShouldAlmostEqual, 0.45, 1e-6)
	test.That(t, cfg.Model.MaxObjects, test.ShouldEqual, 64)
	test.That(t, cfg.Model.ClassNum, test.ShouldEqual, 80)
	test.That(t, cfg.Model.WantFloat, test.ShouldBeFalse)
	test.That(t, cfg.Output.Render, test.ShouldEqual, "masked")
	test.That(t, cfg.Output.MaskThreshold, test.ShouldEqual, 128)
	test.That(t, cfg.ColorOrder(), test.ShouldEqual, segmask.RGB)
	test.That(t, cfg.Render(), test.ShouldEqual, RenderMasked)
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segmask.yaml")

	data := []byte(`model:
  file: model.rknn
  box_threshold: 0.5
input:
  color_order: bgr
  masks:
    - a.png
    - b.png
output:
  render: cutout
log:
  mode: release
`)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Model.File, test.ShouldEqual, "model.rknn")
	test.That(t, cfg.Model.BoxThreshold, test.ShouldAlmostEqual, 0.5, 1e-6)
	// unset keys keep their defaults
	test.That(t, cfg.Model.NMSThreshold, test.ShouldAlmostEqual, 0.45, 1e-6)
	test.That(t, cfg.Input.Masks, test.ShouldResemble, []string{"a.png", "b.png"})
	test.That(t, cfg.ColorOrder(), test.ShouldEqual, segmask.BGR)
	test.That(t, cfg.Render(), test.ShouldEqual, RenderCutout)
	test.That(t, cfg.Log.Mode, test.ShouldEqual, "release")
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SEGMASK_MODEL_PLATFORM", "rk3566")
	t.Setenv("SEGMASK_OUTPUT_RENDER", "outline")
	t.Setenv("SEGMASK_MODEL_WANT_FLOAT", "true")

	cfg, err := Load("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Model.Platform, test.ShouldEqual, "rk3566")
	test.That(t, cfg.Model.WantFloat, test.ShouldBeTrue)
	test.That(t, cfg.Render(), test.ShouldEqual, RenderOutline)
}

func TestDefaultMatchesLoad(t *testing.T) {
	// a malformed environment value fails Load but never Default
	t.Setenv("SEGMASK_MODEL_MAX_OBJECTS", "many")

	_, err := Load("")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, Default().Model.MaxObjects, test.ShouldEqual, 64)

	os.Unsetenv("SEGMASK_MODEL_MAX_OBJECTS")

	cfg, err := Load("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Model, test.ShouldResemble, Default().Model)
	test.That(t, cfg.Output, test.ShouldResemble, Default().Output)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldWrap, segmask.ErrFileNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"box threshold", func(c *Config) { c.Model.BoxThreshold = 0 }},
		{"nms threshold", func(c *Config) { c.Model.NMSThreshold = 1.5 }},
		{"max objects", func(c *Config) { c.Model.MaxObjects = 0 }},
		{"class num", func(c *Config) { c.Model.ClassNum = -1 }},
		{"cpu affinity", func(c *Config) { c.Model.CPUAffinity = "big" }},
		{"color order", func(c *Config) { c.Input.ColorOrder = "hsv" }},
		{"render", func(c *Config) { c.Output.Render = "sepia" }},
		{"alpha", func(c *Config) { c.Output.Alpha = 2 }},
		{"mask threshold", func(c *Config) { c.Output.MaskThreshold = 300 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			test.That(t, cfg.Validate(), test.ShouldNotBeNil)
		})
	}
}

func TestParseRender(t *testing.T) {
	r, err := ParseRender(" Overlay ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r, test.ShouldEqual, RenderOverlay)

	_, err = ParseRender("x")
	test.That(t, err, test.ShouldNotBeNil)
}
