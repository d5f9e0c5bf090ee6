// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldview/mesh"
)

// indexedVertexLayout matches mesh.EncodeIndexed: position at 0, value at 12.
var indexedVertexLayout = gputypes.VertexBufferLayout{
	ArrayStride: mesh.IndexedVertexStride,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32, Offset: 12, ShaderLocation: 1},
	},
}

// IndexedObject draws a mesh with one value per shared vertex through a
// vertex and index buffer. Values are interpolated linearly, so only
// order-1 fields render exactly.
type IndexedObject struct {
	objectBase

	vertices hal.Buffer
	indices  hal.Buffer
}

// NewIndexedObject uploads m with values (one per point) and builds the
// pipeline. Use mesh.VertexValues to sample a field at the vertices.
func NewIndexedObject(dev *Device, res Resources, m *mesh.Mesh, values []float32) (*IndexedObject, error) {
	if err := res.check("indexed object", true); err != nil {
		return nil, err
	}
	vdata, idata, err := mesh.EncodeIndexed(m, values)
	if err != nil {
		return nil, err
	}
	shader, err := dev.Compile("indexed", commonWGSL, colormapWGSL, indexedWGSL)
	if err != nil {
		return nil, err
	}

	o := &IndexedObject{objectBase: objectBase{dev: dev, ntrig: m.NumTriangles()}}
	o.vertices, err = dev.CreateBufferInit("indexed_vertices", vdata, gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	o.indices, err = dev.CreateBufferInit("indexed_indices", idata, gputypes.BufferUsageIndex)
	if err != nil {
		o.Destroy()
		return nil, err
	}

	ds := append([]Descriptor{res.Uniforms.Descriptor()}, res.Colormap.Descriptors()...)
	cfg := &RenderPipelineConfig{
		Label:         "indexed",
		Shader:        shader,
		VertexEntry:   "vs_indexed",
		FragmentEntry: "fs_indexed",
		VertexBuffers: []gputypes.VertexBufferLayout{indexedVertexLayout},
		Topology:      gputypes.PrimitiveTopologyTriangleList,
		ColorFormat:   colorFormat(res.ColorFormat),
		Depth:         FillDepth(),
	}
	if err := o.build("indexed", ds, cfg); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

// Render draws 3T indices as one instance.
func (o *IndexedObject) Render(enc *Encoder, loadOp gputypes.LoadOp) error {
	if err := o.check(); err != nil {
		return err
	}
	pass, err := enc.beginPass(passSpec{label: "indexed", loadOp: loadOp, depth: true})
	if err != nil {
		return err
	}
	pass.SetPipeline(o.pipelines[0])
	pass.SetBindGroup(0, o.group.Group, nil)
	pass.SetVertexBuffer(0, o.vertices, 0)
	pass.SetIndexBuffer(o.indices, gputypes.IndexFormatUint32, 0)
	pass.DrawIndexed(3*uint32(o.ntrig), 1, 0, 0, 0)
	pass.End()
	return nil
}

// Destroy releases the pipeline and both buffers. Safe to call twice.
func (o *IndexedObject) Destroy() {
	if o.destroyed {
		return
	}
	o.objectBase.Destroy()
	if dev := o.dev.dev; dev != nil {
		if o.indices != nil {
			dev.DestroyBuffer(o.indices)
		}
		if o.vertices != nil {
			dev.DestroyBuffer(o.vertices)
		}
	}
	o.indices, o.vertices = nil, nil
}
