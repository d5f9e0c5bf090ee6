// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fieldview

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldview/gpu"
	"github.com/gogpu/fieldview/mesh"
)

// ErrClosed is returned by Scene methods after Close.
var ErrClosed = errors.New("fieldview: scene closed")

// Scene owns the shared GPU state of one viewport: uniforms, colormap,
// depth texture and the render objects of what is shown. It is safe to call
// its methods from the UI thread and the frame driver concurrently.
type Scene struct {
	mu sync.Mutex

	cfg   Config
	clear gputypes.Color

	dev        *gpu.Device
	ownsDevice bool

	uniforms  *gpu.UniformBlock
	colormap  *gpu.Colormap
	depthTex  hal.Texture
	depthView hal.TextureView

	input *InputHandler

	// objects render in order; the first one clears the target.
	objects []gpu.RenderObject
	buffers *gpu.NamedBuffers
	grid    *gpu.GridBuffers
	gridGen *gpu.GridGenerator

	// CPU copies of what is shown, for snapshots.
	mesh     *mesh.Mesh
	field    *mesh.Field
	strategy Strategy

	dirty  bool
	closed bool
}

// NewScene creates a scene. Without WithDevice it opens a device and owns
// it.
func NewScene(opts ...Option) (*Scene, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}
	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clear, _ := cfg.clearColor()
	stops, _ := cfg.stops()

	s := &Scene{cfg: cfg, clear: clear, dev: o.device}
	if s.dev == nil {
		dev, err := gpu.OpenDevice(gpu.DeviceConfig{Headless: cfg.Headless})
		if err != nil {
			return nil, err
		}
		s.dev, s.ownsDevice = dev, true
	}

	var err error
	if s.uniforms, err = gpu.NewUniformBlock(s.dev); err != nil {
		s.Close()
		return nil, err
	}
	s.uniforms.FitUnitSquare()
	s.uniforms.SetColormapRange(cfg.ColormapMin, cfg.ColormapMax)
	s.uniforms.EvalMode = gpu.EvalMode(cfg.EvalMode)
	s.uniforms.ScalingRe, s.uniforms.ScalingIm = cfg.ScalingRe, cfg.ScalingIm
	s.uniforms.Aspect = float32(cfg.Width) / float32(cfg.Height)

	if s.colormap, err = gpu.NewColormap(s.dev, stops); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.createDepth(uint32(cfg.Width), uint32(cfg.Height)); err != nil {
		s.Close()
		return nil, err
	}
	s.input = NewInputHandler(cfg.Width, cfg.Height, cfg.DragZoom, s.moveView, o.redraw)
	s.dirty = true

	Logger().Info("fieldview: scene created", "width", cfg.Width, "height", cfg.Height,
		"strategy", cfg.Strategy, "owns_device", s.ownsDevice)
	return s, nil
}

// Device returns the device the scene renders with.
func (s *Scene) Device() *gpu.Device { return s.dev }

// Input returns the pointer handler. Attach it to the host's event source.
func (s *Scene) Input() *InputHandler { return s.input }

// Config returns the configuration, with the current size.
func (s *Scene) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// View returns a copy of the current uniforms.
func (s *Scene) View() gpu.Uniforms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniforms.Uniforms
}

func (s *Scene) moveView(dx, dy float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.uniforms.Translate(dx, dy)
	s.dirty = true
}

// SetColormapRange sets the values mapped to the ends of the colormap.
func (s *Scene) SetColormapRange(lo, hi float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if lo > hi {
		return fmt.Errorf("fieldview: colormap range [%g, %g]", lo, hi)
	}
	s.uniforms.SetColormapRange(lo, hi)
	s.dirty = true
	return nil
}

// SetClipPlane discards fill fragments with dot(p, normal) > dist when
// enabled.
func (s *Scene) SetClipPlane(normal [3]float32, dist float32, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.uniforms.SetClipPlane(normal, dist, enabled)
	s.dirty = true
	return nil
}

// SetEvalMode selects how multi-component fields become a scalar.
func (s *Scene) SetEvalMode(mode EvalMode, re, im float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if int(mode) >= len(evalModeNames) {
		return fmt.Errorf("fieldview: eval mode %d", mode)
	}
	s.uniforms.EvalMode = gpu.EvalMode(mode)
	s.uniforms.ScalingRe, s.uniforms.ScalingIm = re, im
	s.dirty = true
	return nil
}

func (s *Scene) resources() gpu.Resources {
	return gpu.Resources{Uniforms: s.uniforms, Colormap: s.colormap, ColorFormat: s.cfg.ColorFormat}
}

// ShowMesh replaces what is shown with m as shaded fills and edges.
func (s *Scene) ShowMesh(m *mesh.Mesh) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := m.Validate(); err != nil {
		return err
	}
	nb, err := gpu.UploadMesh(s.dev, m, nil)
	if err != nil {
		return err
	}
	obj, err := gpu.NewMeshObject(s.dev, s.resources(), gpu.Source{Buffers: nb})
	if err != nil {
		nb.Destroy()
		return err
	}
	s.replace([]gpu.RenderObject{obj}, nb, nil)
	s.mesh, s.field = m, nil
	return nil
}

// ShowField replaces what is shown with f on m, rendered by strategy, plus
// a wireframe overlay if configured. Equal colormap bounds in the config
// select the range from the field.
func (s *Scene) ShowField(m *mesh.Mesh, f *mesh.Field, strategy Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if f == nil {
		return fmt.Errorf("fieldview: %w: nil field", mesh.ErrStructuralMismatch)
	}
	if f.Order > s.cfg.MaxOrder {
		return fmt.Errorf("fieldview: order %d above max_order %d: %w", f.Order, s.cfg.MaxOrder, gpu.ErrShaderLink)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := f.Check(m.NumTriangles()); err != nil {
		return err
	}
	nb, err := gpu.UploadMesh(s.dev, m, f)
	if err != nil {
		return err
	}
	objs, err := s.fieldObjects(gpu.Source{Buffers: nb}, strategy, func() (*mesh.Mesh, *mesh.Field) { return m, f })
	if err != nil {
		nb.Destroy()
		return err
	}
	s.replace(objs, nb, nil)
	s.mesh, s.field, s.strategy = m, f, strategy
	s.autoRange(f)
	return nil
}

// ShowGrid generates an n×n grid with the order-k field sin(πx)·sin(πy) on
// the GPU and shows it. The compute pass is submitted before any frame reads
// the buffers.
func (s *Scene) ShowGrid(n, order int, strategy Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if order > s.cfg.MaxOrder {
		return fmt.Errorf("fieldview: order %d above max_order %d: %w", order, s.cfg.MaxOrder, gpu.ErrShaderLink)
	}
	if s.gridGen == nil {
		gen, err := gpu.NewGridGeneratorSize(s.dev, s.cfg.WorkgroupSize)
		if err != nil {
			return err
		}
		s.gridGen = gen
	}
	enc, err := s.dev.NewEncoder("grid", gpu.RenderTarget{})
	if err != nil {
		return err
	}
	gb, err := s.gridGen.Generate(enc, n, order)
	if err != nil {
		enc.Discard()
		return err
	}
	cmd, err := enc.Finish()
	if err == nil {
		err = s.dev.Submit(cmd)
	}
	if err != nil {
		gb.Destroy()
		return err
	}

	var cpuMesh *mesh.Mesh
	var cpuField *mesh.Field
	twin := func() (*mesh.Mesh, *mesh.Field) {
		if cpuMesh == nil {
			cpuMesh = mesh.Grid(n)
			cpuField, _ = mesh.SampleNodes(cpuMesh, order, 1, mesh.GridField)
		}
		return cpuMesh, cpuField
	}
	objs, err := s.fieldObjects(gpu.Source{Buffers: gb.NamedBuffers}, strategy, twin)
	if err != nil {
		gb.Destroy()
		return err
	}
	s.replace(objs, nil, gb)
	s.mesh, s.field = twin()
	s.strategy = strategy
	s.autoRange(s.field)
	return nil
}

// fieldObjects builds the field object for strategy and the optional
// wireframe over src. cpu supplies the mesh data the indexed strategy
// uploads.
func (s *Scene) fieldObjects(src gpu.Source, strategy Strategy, cpu func() (*mesh.Mesh, *mesh.Field)) ([]gpu.RenderObject, error) {
	var obj gpu.RenderObject
	var err error
	switch strategy {
	case StrategyDirect:
		obj, err = gpu.NewFieldObject(s.dev, s.resources(), src)
	case StrategyDeferred:
		obj, err = gpu.NewDeferredObject(s.dev, s.resources(), src, uint32(s.cfg.Width), uint32(s.cfg.Height))
	case StrategyIndexed:
		m, f := cpu()
		var values []float32
		if values, err = mesh.VertexValues(m, f, 0); err == nil {
			obj, err = gpu.NewIndexedObject(s.dev, s.resources(), m, values)
		}
	default:
		err = fmt.Errorf("fieldview: unknown strategy %v", strategy)
	}
	if err != nil {
		return nil, err
	}
	objs := []gpu.RenderObject{obj}
	if s.cfg.Wireframe {
		wire, err := gpu.NewWireframeObject(s.dev, s.resources(), src)
		if err != nil {
			obj.Destroy()
			return nil, err
		}
		objs = append(objs, wire)
	}
	return objs, nil
}

// autoRange fits the colormap to the coefficients of component 0 when the
// configured range is empty. Bernstein coefficients bound the polynomial.
func (s *Scene) autoRange(f *mesh.Field) {
	if s.cfg.ColormapMin != s.cfg.ColormapMax || f == nil {
		return
	}
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for i := 0; i < len(f.Values); i += f.Components {
		v := f.Values[i]
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo > hi {
		return
	}
	s.uniforms.SetColormapRange(lo, hi)
	s.dirty = true
}

// replace destroys what is shown and installs the new objects and buffers.
func (s *Scene) replace(objs []gpu.RenderObject, nb *gpu.NamedBuffers, gb *gpu.GridBuffers) {
	s.destroyShown()
	s.objects, s.buffers, s.grid = objs, nb, gb
	s.dirty = true
}

func (s *Scene) destroyShown() {
	for i := len(s.objects) - 1; i >= 0; i-- {
		s.objects[i].Destroy()
	}
	s.objects = nil
	if s.buffers != nil {
		s.buffers.Destroy()
		s.buffers = nil
	}
	if s.grid != nil {
		s.grid.Destroy()
		s.grid = nil
	}
}

// Frame renders what is shown into color, a view of the configured color
// format and the scene's size. The first object clears the target; the
// rest draw over it.
func (s *Scene) Frame(color hal.TextureView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.dirty {
		if err := s.uniforms.UpdateBuffer(); err != nil {
			return err
		}
		s.dirty = false
	}
	enc, err := s.dev.NewEncoder("frame", gpu.RenderTarget{
		Color:  color,
		Depth:  s.depthView,
		Width:  uint32(s.cfg.Width),
		Height: uint32(s.cfg.Height),
		Format: s.cfg.ColorFormat,
	})
	if err != nil {
		return err
	}
	enc.ClearColor = s.clear
	if len(s.objects) == 0 {
		err = enc.Clear()
	}
	for i, obj := range s.objects {
		loadOp := gputypes.LoadOpLoad
		if i == 0 {
			loadOp = gputypes.LoadOpClear
		}
		if err = obj.Render(enc, loadOp); err != nil {
			break
		}
	}
	if err != nil {
		enc.Discard()
		return err
	}
	cmd, err := enc.Finish()
	if err != nil {
		return err
	}
	return s.dev.Submit(cmd)
}

// Resize recreates the depth texture and every size-dependent resource. On
// error the scene keeps its previous size.
func (s *Scene) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("fieldview: resize to %dx%d", width, height)
	}
	if width == s.cfg.Width && height == s.cfg.Height {
		return nil
	}
	tex, view, err := s.newDepth(uint32(width), uint32(height))
	if err != nil {
		return err
	}
	var resized []*gpu.DeferredObject
	for _, obj := range s.objects {
		d, ok := obj.(*gpu.DeferredObject)
		if !ok {
			continue
		}
		if err := d.Resize(uint32(width), uint32(height)); err != nil {
			for _, r := range resized {
				if rerr := r.Resize(uint32(s.cfg.Width), uint32(s.cfg.Height)); rerr != nil {
					Logger().Warn("fieldview: restore g-buffer size", "err", rerr)
				}
			}
			s.dev.HAL().DestroyTextureView(view)
			s.dev.HAL().DestroyTexture(tex)
			return err
		}
		resized = append(resized, d)
	}
	s.destroyDepth()
	s.depthTex, s.depthView = tex, view
	s.cfg.Width, s.cfg.Height = width, height
	s.uniforms.Aspect = float32(width) / float32(height)
	s.input.SetSize(width, height)
	s.dirty = true
	Logger().Debug("fieldview: resized", "width", width, "height", height)
	return nil
}

func (s *Scene) createDepth(width, height uint32) error {
	tex, view, err := s.newDepth(width, height)
	if err != nil {
		return err
	}
	s.destroyDepth()
	s.depthTex, s.depthView = tex, view
	return nil
}

func (s *Scene) newDepth(width, height uint32) (hal.Texture, hal.TextureView, error) {
	return s.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "depth",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        s.cfg.DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	}, gputypes.TextureViewDimension2D)
}

func (s *Scene) destroyDepth() {
	dev := s.dev.HAL()
	if dev == nil {
		return
	}
	if s.depthView != nil {
		dev.DestroyTextureView(s.depthView)
		s.depthView = nil
	}
	if s.depthTex != nil {
		dev.DestroyTexture(s.depthTex)
		s.depthTex = nil
	}
}

// Close detaches the input handler, then destroys the render objects, the
// shared resources and, if the scene opened it, the device. Safe to call
// twice.
func (s *Scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.input != nil {
		s.input.Close()
	}
	s.destroyShown()
	if s.gridGen != nil {
		s.gridGen.Destroy()
		s.gridGen = nil
	}
	if s.uniforms != nil {
		s.uniforms.Destroy()
	}
	if s.colormap != nil {
		s.colormap.Destroy()
	}
	s.destroyDepth()
	if s.ownsDevice {
		s.dev.Destroy()
	}
	Logger().Debug("fieldview: scene closed")
}
