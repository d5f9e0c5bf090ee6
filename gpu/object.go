// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldview/mesh"
)

// RenderObject records its passes into a frame.
type RenderObject interface {
	// Render records the object's passes. loadOp decides whether the first
	// pass clears the target or draws over it.
	Render(enc *Encoder, loadOp gputypes.LoadOp) error

	// Destroy releases everything the object owns. Safe to call twice.
	Destroy()
}

// objectBase holds the resources every render object owns and releases them
// in reverse creation order.
type objectBase struct {
	dev        *Device
	ntrig      int
	group      *BindGroup
	pipeLayout hal.PipelineLayout
	pipelines  []hal.RenderPipeline

	// buffers is set when the object uploaded its own data.
	buffers *NamedBuffers

	destroyed bool
}

// build creates the bind group, the pipeline layout and one pipeline per
// config. Every config is validated against its shader before anything is
// created. On error everything built so far is released.
func (o *objectBase) build(label string, ds []Descriptor, cfgs ...*RenderPipelineConfig) error {
	for _, cfg := range cfgs {
		cfg.Bindings = ds
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	group, err := o.dev.CreateBindGroup(ds, label)
	if err != nil {
		return err
	}
	o.group = group
	o.pipeLayout, err = o.dev.CreatePipelineLayout(label+"_pipe_layout", group.Layout)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		cfg.Layout = o.pipeLayout
		p, err := o.dev.CreateRenderPipeline(cfg)
		if err != nil {
			return err
		}
		o.pipelines = append(o.pipelines, p)
	}
	return nil
}

func (o *objectBase) release() {
	dev := o.dev.dev
	if dev == nil {
		return
	}
	for i := len(o.pipelines) - 1; i >= 0; i-- {
		dev.DestroyRenderPipeline(o.pipelines[i])
	}
	o.pipelines = nil
	if o.pipeLayout != nil {
		dev.DestroyPipelineLayout(o.pipeLayout)
		o.pipeLayout = nil
	}
	o.group.Destroy(dev)
	o.group = nil
	if o.buffers != nil {
		o.buffers.Destroy()
		o.buffers = nil
	}
}

// Destroy releases the object's resources.
func (o *objectBase) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.release()
}

func (o *objectBase) check() error {
	if o.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Resources are the shared objects a render object binds alongside its own
// buffers.
type Resources struct {
	Uniforms *UniformBlock
	Colormap *Colormap

	// ColorFormat is the format of the render target. Zero means BGRA8.
	ColorFormat gputypes.TextureFormat
}

func (r Resources) check(label string, needColormap bool) error {
	if r.Uniforms == nil {
		return fmt.Errorf("gpu: %s: no uniform block", label)
	}
	if needColormap && r.Colormap == nil {
		return fmt.Errorf("gpu: %s: no colormap", label)
	}
	return nil
}

// Source supplies mesh data to a render object: either buffers already on
// the GPU, or CPU data the object uploads and owns.
type Source struct {
	Buffers *NamedBuffers
	Mesh    *mesh.Mesh
	Field   *mesh.Field
}

// triangles returns the triangle count of the source.
func (s Source) triangles() int {
	if s.Buffers != nil {
		return s.Buffers.NumTriangles
	}
	if s.Mesh != nil {
		return s.Mesh.NumTriangles()
	}
	return 0
}

// checkField validates the field against the triangle count without
// touching the GPU, and returns its order.
func (s Source) checkField() (int, error) {
	if s.Buffers != nil {
		if err := s.Buffers.checkField(); err != nil {
			return 0, err
		}
		return s.Buffers.FieldOrder, nil
	}
	if s.Field == nil {
		return 0, fmt.Errorf("%w: no field", mesh.ErrStructuralMismatch)
	}
	if err := s.Field.Check(s.triangles()); err != nil {
		return 0, err
	}
	return s.Field.Order, nil
}

// resolve returns the source buffers, uploading CPU data if needed. Uploaded
// buffers are owned by o.
func (s Source) resolve(o *objectBase, needField bool) (*NamedBuffers, error) {
	if s.triangles() == 0 {
		return nil, fmt.Errorf("%w: mesh has no triangles", mesh.ErrStructuralMismatch)
	}
	if s.Buffers != nil {
		return s.Buffers, nil
	}
	var f *mesh.Field
	if needField {
		f = s.Field
	}
	nb, err := UploadMesh(o.dev, s.Mesh, f)
	if err != nil {
		return nil, err
	}
	o.buffers = nb
	return nb, nil
}

// defaultColorFormat is the color target format objects render into when the
// caller does not set one.
const defaultColorFormat = gputypes.TextureFormatBGRA8Unorm

func colorFormat(f gputypes.TextureFormat) gputypes.TextureFormat {
	if f == gputypes.TextureFormatUndefined {
		return defaultColorFormat
	}
	return f
}
