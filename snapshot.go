// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fieldview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/text/language"

	"github.com/gogpu/fieldview/gpu"
	"github.com/gogpu/fieldview/internal/legend"
	"github.com/gogpu/fieldview/internal/softraster"
	"github.com/gogpu/fieldview/mesh"
)

// LegendSize is the label font size of snapshot legends, in pixels.
const LegendSize = 12

const legendMargin = 8

// ErrNothingShown is returned by Snapshot before anything was shown.
var ErrNothingShown = errors.New("fieldview: nothing shown")

// Snapshot renders what is shown on the CPU with the scene's view,
// colormap and strategy, at the configured size. Config.Supersample > 1
// renders larger and scales down. Config.Legend adds a colorbar strip
// below a field.
func (s *Scene) Snapshot() (*image.RGBA, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	job := snapshotJob{
		cfg:      s.cfg,
		view:     s.uniforms.Uniforms,
		lookup:   s.colormap.Lookup,
		mesh:     s.mesh,
		field:    s.field,
		strategy: s.strategy,
	}
	s.mu.Unlock()
	return job.render()
}

// SaveSnapshot writes Snapshot to path as PNG or TIFF, chosen by extension.
func (s *Scene) SaveSnapshot(path string) error {
	img, err := s.Snapshot()
	if err != nil {
		return err
	}
	return SaveImage(path, img)
}

type snapshotJob struct {
	cfg      Config
	view     gpu.Uniforms
	lookup   func(float32) color.RGBA
	mesh     *mesh.Mesh
	field    *mesh.Field
	strategy Strategy
}

func (j *snapshotJob) render() (*image.RGBA, error) {
	if j.mesh == nil {
		return nil, ErrNothingShown
	}
	bg, err := parseHexColor(j.cfg.Background)
	if err != nil {
		return nil, fmt.Errorf("fieldview: %w", err)
	}
	ss := max(j.cfg.Supersample, 1)
	r := &softraster.Renderer{
		W:          j.cfg.Width * ss,
		H:          j.cfg.Height * ss,
		View:       &j.view,
		Lookup:     j.lookup,
		Min:        j.view.ColormapMin,
		Max:        j.view.ColormapMax,
		Background: bg,
	}

	var img *image.RGBA
	switch {
	case j.field == nil:
		img = r.Mesh(j.mesh)
	case j.strategy == StrategyIndexed:
		values, err := mesh.VertexValues(j.mesh, j.field, 0)
		if err != nil {
			return nil, err
		}
		img = r.Direct(j.mesh, vertexEvaluator(j.mesh, values))
	default:
		eval := softraster.Scalar(j.field, softraster.Mode(j.view.EvalMode), j.view.ScalingRe, j.view.ScalingIm)
		if j.strategy == StrategyDeferred {
			img = r.Deferred(j.mesh, eval)
		} else {
			img = r.Direct(j.mesh, eval)
		}
	}
	if j.field != nil && j.cfg.Wireframe {
		r.Wireframe(img, j.mesh)
	}

	if ss > 1 {
		small := image.NewRGBA(image.Rect(0, 0, j.cfg.Width, j.cfg.Height))
		xdraw.CatmullRom.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = small
	}
	if j.cfg.Legend && j.field != nil {
		return j.withLegend(img, bg)
	}
	return img, nil
}

// vertexEvaluator interpolates per-vertex values linearly, as the indexed
// pipeline does.
func vertexEvaluator(m *mesh.Mesh, values []float32) softraster.Evaluator {
	return func(t int, lam [2]float32) float32 {
		tri := m.Triangles[t]
		return lam[0]*values[tri[0]] + lam[1]*values[tri[1]] + (1-lam[0]-lam[1])*values[tri[2]]
	}
}

func (j *snapshotJob) withLegend(img *image.RGBA, bg color.RGBA) (*image.RGBA, error) {
	tag, err := language.Parse(j.cfg.LegendLang)
	if err != nil {
		return nil, fmt.Errorf("fieldview: legend language %q: %w", j.cfg.LegendLang, err)
	}
	b := img.Bounds()
	strip := legend.Height(LegendSize)
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+strip+2*legendMargin))
	xdraw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
	xdraw.Draw(out, b, img, b.Min, xdraw.Src)

	l := &legend.Legend{
		Lookup: j.lookup,
		Min:    j.view.ColormapMin,
		Max:    j.view.ColormapMax,
		Lang:   tag,
		Size:   LegendSize,
	}
	area := image.Rect(legendMargin, b.Dy()+legendMargin, b.Dx()-legendMargin, b.Dy()+legendMargin+strip)
	if err := l.Draw(out, area); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteImage encodes img as "png" or "tiff".
func WriteImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("fieldview: unsupported image format %q", format)
	}
}

// SaveImage writes img to path; .png is PNG, .tif and .tiff are TIFF.
func SaveImage(path string, img image.Image) error {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".tif", ".tiff":
		format = "tiff"
	default:
		return fmt.Errorf("fieldview: %s: unsupported image format", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fieldview: %w", err)
	}
	if err := WriteImage(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("fieldview: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fieldview: %w", err)
	}
	Logger().Info("fieldview: image saved", "path", path, "size", img.Bounds().Size())
	return nil
}
