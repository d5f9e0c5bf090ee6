// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// MaxDeferredTriangles is the largest triangle count whose ids survive the
// round trip through a float32 g-buffer channel.
const MaxDeferredTriangles = 1 << 24

// GBufferFormat holds (triangle id, λ0, λ1, 1) per pixel.
const GBufferFormat = gputypes.TextureFormatRGBA32Float

// GBufferSentinel marks pixels no triangle covers.
var GBufferSentinel = gputypes.Color{R: -1}

// DeferredObject renders a field in two passes. The first writes the
// nearest triangle id and barycentric coordinates of every pixel into the
// g-buffer; the second evaluates the field once per covered pixel.
type DeferredObject struct {
	geom  objectBase
	shade objectBase

	res         Resources
	buffers     *NamedBuffers
	shadeShader *Shader
	order       int

	gbuffer       hal.Texture
	gview         hal.TextureView
	width, height uint32

	destroyed bool
}

// NewDeferredObject builds both passes and a g-buffer of width×height,
// which must match the render target.
func NewDeferredObject(dev *Device, res Resources, src Source, width, height uint32) (*DeferredObject, error) {
	if err := res.check("deferred object", true); err != nil {
		return nil, err
	}
	if t := src.triangles(); t > MaxDeferredTriangles {
		return nil, fmt.Errorf("gpu: deferred: %d triangles exceed the %d triangle ids a float32 g-buffer holds: %w",
			t, MaxDeferredTriangles, ErrResourceExhaustion)
	}
	order, err := src.checkField()
	if err != nil {
		return nil, err
	}
	geomShader, err := dev.Compile("deferred_gbuffer", commonWGSL, trianglesWGSL, gbufferWGSL)
	if err != nil {
		return nil, err
	}
	shadeShader, err := fieldShader(dev, "deferred_shade", order,
		commonWGSL, colormapWGSL, fieldValuesWGSL, basisSource(), deferredWGSL)
	if err != nil {
		return nil, err
	}

	o := &DeferredObject{
		geom:        objectBase{dev: dev},
		shade:       objectBase{dev: dev},
		res:         res,
		shadeShader: shadeShader,
		order:       order,
	}
	o.buffers, err = src.resolve(&o.geom, true)
	if err != nil {
		return nil, err
	}
	o.geom.ntrig = o.buffers.NumTriangles
	o.shade.ntrig = o.buffers.NumTriangles

	ds, err := o.buffers.Descriptors(SlotTriangles)
	if err != nil {
		o.Destroy()
		return nil, err
	}
	ds = append(ds, res.Uniforms.Descriptor())
	cfg := &RenderPipelineConfig{
		Label:         "deferred_gbuffer",
		Shader:        geomShader,
		VertexEntry:   "vs_trig",
		FragmentEntry: "fs_gbuffer",
		Topology:      gputypes.PrimitiveTopologyTriangleList,
		ColorFormat:   GBufferFormat,
		Depth:         FillDepth(),
	}
	if err := o.geom.build("deferred_gbuffer", ds, cfg); err != nil {
		o.Destroy()
		return nil, err
	}
	if err := o.Resize(width, height); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

// Size returns the g-buffer size.
func (o *DeferredObject) Size() (width, height uint32) { return o.width, o.height }

// Resize recreates the g-buffer at the new size and rebuilds the shading
// pass that reads it. On error the object keeps its previous size and
// resources.
func (o *DeferredObject) Resize(width, height uint32) error {
	if o.destroyed {
		return ErrDestroyed
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gpu: deferred: g-buffer size %dx%d", width, height)
	}

	dev := o.geom.dev
	tex, view, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "gbuffer",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        GBufferFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	}, gputypes.TextureViewDimension2D)
	if err != nil {
		return err
	}
	shade := objectBase{dev: dev, ntrig: o.buffers.NumTriangles}
	if err := o.buildShade(&shade, view); err != nil {
		shade.release()
		dev.dev.DestroyTextureView(view)
		dev.dev.DestroyTexture(tex)
		return err
	}

	o.shade.release()
	o.releaseGBuffer()
	o.shade = shade
	o.gbuffer, o.gview = tex, view
	o.width, o.height = width, height
	slogger().Debug("gpu: g-buffer resized", "width", width, "height", height)
	return nil
}

// buildShade builds the shading pass reading the g-buffer through view.
func (o *DeferredObject) buildShade(shade *objectBase, view hal.TextureView) error {
	ds, err := o.buffers.Descriptors(SlotFieldValues)
	if err != nil {
		return err
	}
	ds = append(ds, o.res.Uniforms.Descriptor(), TextureBinding{
		At:         SlotGBuffer,
		Visibility: gputypes.ShaderStageFragment,
		View:       view,
		SampleType: gputypes.TextureSampleTypeUnfilterableFloat,
		Dimension:  gputypes.TextureViewDimension2D,
	})
	ds = append(ds, o.res.Colormap.Descriptors()...)
	cfg := &RenderPipelineConfig{
		Label:         "deferred_shade",
		Shader:        o.shadeShader,
		VertexEntry:   "vs_quad",
		FragmentEntry: "fs_deferred",
		Topology:      gputypes.PrimitiveTopologyTriangleStrip,
		ColorFormat:   colorFormat(o.res.ColorFormat),
	}
	return shade.build("deferred_shade", ds, cfg)
}

// Render records the g-buffer pass followed by the shading pass. The
// g-buffer always starts from the sentinel; loadOp applies to the target
// color and depth.
func (o *DeferredObject) Render(enc *Encoder, loadOp gputypes.LoadOp) error {
	if o.destroyed {
		return ErrDestroyed
	}
	if o.gview == nil || len(o.geom.pipelines) == 0 || len(o.shade.pipelines) == 0 {
		return fmt.Errorf("gpu: deferred: g-buffer or shading pass missing")
	}
	if t := enc.Target(); t.Width != o.width || t.Height != o.height {
		return fmt.Errorf("gpu: deferred: target is %dx%d, g-buffer is %dx%d", t.Width, t.Height, o.width, o.height)
	}
	sentinel := GBufferSentinel
	depthLoad := gputypes.LoadOpLoad
	if loadOp == gputypes.LoadOpClear {
		depthLoad = gputypes.LoadOpClear
	}
	pass, err := enc.beginPass(passSpec{
		label:     "deferred_gbuffer",
		view:      o.gview,
		loadOp:    gputypes.LoadOpClear,
		clear:     &sentinel,
		depth:     true,
		depthLoad: depthLoad,
	})
	if err != nil {
		return err
	}
	pass.SetPipeline(o.geom.pipelines[0])
	pass.SetBindGroup(0, o.geom.group.Group, nil)
	pass.Draw(3, uint32(o.geom.ntrig), 0, 0)
	pass.End()

	pass, err = enc.beginPass(passSpec{label: "deferred_shade", loadOp: loadOp})
	if err != nil {
		return err
	}
	pass.SetPipeline(o.shade.pipelines[0])
	pass.SetBindGroup(0, o.shade.group.Group, nil)
	pass.Draw(4, 1, 0, 0)
	pass.End()
	return nil
}

func (o *DeferredObject) releaseGBuffer() {
	dev := o.geom.dev.dev
	if dev != nil {
		if o.gview != nil {
			dev.DestroyTextureView(o.gview)
		}
		if o.gbuffer != nil {
			dev.DestroyTexture(o.gbuffer)
		}
	}
	o.gview, o.gbuffer = nil, nil
}

// Destroy releases the shading pass, the g-buffer and the g-buffer pass, in
// that order. Safe to call twice.
func (o *DeferredObject) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.shade.Destroy()
	o.releaseGBuffer()
	o.geom.Destroy()
}
