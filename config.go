// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fieldview

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/fieldview/gpu"
	"github.com/gogpu/fieldview/mesh"
)

// Strategy selects how ShowField renders a field.
type Strategy int

const (
	// StrategyDirect evaluates the field in every fragment.
	StrategyDirect Strategy = iota
	// StrategyDeferred rasterizes a g-buffer first and evaluates once per
	// covered pixel.
	StrategyDeferred
	// StrategyIndexed draws shared vertices with per-vertex values.
	StrategyIndexed
)

var strategyNames = [...]string{"direct", "deferred", "indexed"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return "Strategy(" + strconv.Itoa(int(s)) + ")"
	}
	return strategyNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	for i, name := range strategyNames {
		if strings.EqualFold(string(b), name) {
			*s = Strategy(i)
			return nil
		}
	}
	return fmt.Errorf("fieldview: unknown strategy %q", b)
}

// EvalMode selects how multi-component fields become a scalar.
type EvalMode gpu.EvalMode

var evalModeNames = [...]string{"component", "norm", "complex-real"}

func (m EvalMode) String() string {
	if int(m) >= len(evalModeNames) {
		return "EvalMode(" + strconv.Itoa(int(m)) + ")"
	}
	return evalModeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m EvalMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *EvalMode) UnmarshalText(b []byte) error {
	for i, name := range evalModeNames {
		if strings.EqualFold(string(b), name) {
			*m = EvalMode(i)
			return nil
		}
	}
	return fmt.Errorf("fieldview: unknown eval mode %q", b)
}

// Config holds everything a Scene needs besides its device.
type Config struct {
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`

	// ColorFormat is the format of the views passed to Frame.
	ColorFormat gputypes.TextureFormat `toml:"-" yaml:"-"`
	// DepthFormat is the format of the depth texture the scene owns.
	DepthFormat gputypes.TextureFormat `toml:"-" yaml:"-"`

	// Background is the clear color as "#rrggbb" or "#rrggbbaa".
	Background string `toml:"background" yaml:"background"`

	// DragZoom scales pointer drags into clip-space translation.
	DragZoom float64 `toml:"drag_zoom" yaml:"drag_zoom"`

	Strategy Strategy `toml:"strategy" yaml:"strategy"`

	// ColormapMin and ColormapMax map to the first and last colormap stop.
	// Equal values select the range from the field coefficients.
	ColormapMin float32 `toml:"colormap_min" yaml:"colormap_min"`
	ColormapMax float32 `toml:"colormap_max" yaml:"colormap_max"`
	// Colormap lists "#rrggbb" stops. Empty uses gpu.DefaultColormap.
	Colormap []string `toml:"colormap" yaml:"colormap"`

	EvalMode  EvalMode `toml:"eval_mode" yaml:"eval_mode"`
	ScalingRe float32  `toml:"scaling_re" yaml:"scaling_re"`
	ScalingIm float32  `toml:"scaling_im" yaml:"scaling_im"`

	// MaxOrder is the highest polynomial order accepted by ShowField.
	MaxOrder int `toml:"max_order" yaml:"max_order"`
	// WorkgroupSize is the @workgroup_size of the grid compute shader.
	WorkgroupSize int `toml:"workgroup_size" yaml:"workgroup_size"`

	Wireframe bool `toml:"wireframe" yaml:"wireframe"`

	// Legend adds a colorbar below snapshots.
	Legend     bool   `toml:"legend" yaml:"legend"`
	LegendLang string `toml:"legend_lang" yaml:"legend_lang"`

	// Supersample is the snapshot oversampling factor per axis.
	Supersample int `toml:"supersample" yaml:"supersample"`

	// Headless opens the noop backend when the scene opens its own device.
	Headless bool `toml:"headless" yaml:"headless"`
}

// DefaultDragZoom is the clip-space distance of a drag across the whole
// viewport.
const DefaultDragZoom = 1.8

// MaxWorkgroupSize bounds Config.WorkgroupSize. It is the invocation limit
// every WebGPU device supports.
const MaxWorkgroupSize = 256

// DefaultConfig returns the defaults: 800×600, white background, zoom 1.8,
// direct strategy, colormap range [0, 1], orders up to 6.
func DefaultConfig() Config {
	return Config{
		Width:         800,
		Height:        600,
		ColorFormat:   gputypes.TextureFormatBGRA8Unorm,
		DepthFormat:   gpu.DepthFormat,
		Background:    "#ffffff",
		DragZoom:      DefaultDragZoom,
		Strategy:      StrategyDirect,
		ColormapMax:   1,
		ScalingRe:     1,
		MaxOrder:      mesh.MaxOrder,
		WorkgroupSize: gpu.GridWorkgroupSize,
		Wireframe:     true,
		LegendLang:    "en",
		Supersample:   2,
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d", c.Width, c.Height))
	}
	if c.DragZoom <= 0 {
		errs = append(errs, fmt.Errorf("drag_zoom %g", c.DragZoom))
	}
	if c.Strategy < StrategyDirect || c.Strategy > StrategyIndexed {
		errs = append(errs, fmt.Errorf("strategy %d", int(c.Strategy)))
	}
	if int(c.EvalMode) >= len(evalModeNames) {
		errs = append(errs, fmt.Errorf("eval_mode %d", int(c.EvalMode)))
	}
	if c.ColormapMin > c.ColormapMax {
		errs = append(errs, fmt.Errorf("colormap range [%g, %g]", c.ColormapMin, c.ColormapMax))
	}
	if len(c.Colormap) == 1 {
		errs = append(errs, errors.New("colormap needs at least two stops"))
	}
	if _, err := c.stops(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.clearColor(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxOrder < 1 || c.MaxOrder > mesh.MaxOrder {
		errs = append(errs, fmt.Errorf("max_order %d outside 1..%d", c.MaxOrder, mesh.MaxOrder))
	}
	if c.WorkgroupSize < 1 || c.WorkgroupSize > MaxWorkgroupSize {
		errs = append(errs, fmt.Errorf("workgroup_size %d outside 1..%d", c.WorkgroupSize, MaxWorkgroupSize))
	}
	if c.Supersample < 1 || c.Supersample > 8 {
		errs = append(errs, fmt.Errorf("supersample %d outside 1..8", c.Supersample))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("fieldview: invalid config: %w", errors.Join(errs...))
}

func (c *Config) stops() ([]color.RGBA, error) {
	if len(c.Colormap) == 0 {
		return nil, nil
	}
	out := make([]color.RGBA, len(c.Colormap))
	for i, s := range c.Colormap {
		col, err := parseHexColor(s)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

func (c *Config) clearColor() (gputypes.Color, error) {
	col, err := parseHexColor(c.Background)
	if err != nil {
		return gputypes.Color{}, err
	}
	return gputypes.Color{
		R: float64(col.R) / 255,
		G: float64(col.G) / 255,
		B: float64(col.B) / 255,
		A: float64(col.A) / 255,
	}, nil
}

// parseHexColor parses "#rrggbb" or "#rrggbbaa".
func parseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over
// DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("fieldview: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	default:
		return cfg, fmt.Errorf("fieldview: config %s: unsupported format", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("fieldview: config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	Logger().Info("fieldview: config loaded", "path", path)
	return cfg, nil
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FIELDVIEW_"

// ApplyEnv overrides fields from FIELDVIEW_WIDTH, FIELDVIEW_HEIGHT,
// FIELDVIEW_BACKGROUND, FIELDVIEW_STRATEGY, FIELDVIEW_EVAL_MODE,
// FIELDVIEW_WIREFRAME, FIELDVIEW_LEGEND, FIELDVIEW_LEGEND_LANG,
// FIELDVIEW_SUPERSAMPLE and FIELDVIEW_HEADLESS.
func (c *Config) ApplyEnv() error {
	var errs []error
	lookup := func(name string) (string, bool) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		return v, ok && v != ""
	}
	setInt := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	setInt("WIDTH", &c.Width)
	setInt("HEIGHT", &c.Height)
	setInt("SUPERSAMPLE", &c.Supersample)
	setBool("WIREFRAME", &c.Wireframe)
	setBool("LEGEND", &c.Legend)
	setBool("HEADLESS", &c.Headless)
	if v, ok := lookup("BACKGROUND"); ok {
		c.Background = v
	}
	if v, ok := lookup("LEGEND_LANG"); ok {
		c.LegendLang = v
	}
	if v, ok := lookup("STRATEGY"); ok {
		if err := c.Strategy.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, err)
		}
	}
	if v, ok := lookup("EVAL_MODE"); ok {
		if err := c.EvalMode.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
