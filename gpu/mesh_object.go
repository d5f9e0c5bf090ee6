// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"
)

// MeshObject draws a mesh without a field: a flat fill shaded by region and
// the triangle edges on top, in one pass.
type MeshObject struct {
	objectBase
}

// NewMeshObject builds the fill and edge pipelines for src. res.Colormap is
// not used.
func NewMeshObject(dev *Device, res Resources, src Source) (*MeshObject, error) {
	if err := res.check("mesh object", false); err != nil {
		return nil, err
	}
	shader, err := dev.Compile("mesh", commonWGSL, trianglesWGSL, edgesWGSL, meshWGSL)
	if err != nil {
		return nil, err
	}

	o := &MeshObject{objectBase: objectBase{dev: dev}}
	nb, err := src.resolve(&o.objectBase, false)
	if err != nil {
		return nil, err
	}
	o.ntrig = nb.NumTriangles

	ds, err := nb.Descriptors(SlotVertices, SlotEdges, SlotTriangles)
	if err != nil {
		o.Destroy()
		return nil, err
	}
	ds = append(ds, res.Uniforms.Descriptor())

	format := colorFormat(res.ColorFormat)
	fill := &RenderPipelineConfig{
		Label:         "mesh_fill",
		Shader:        shader,
		VertexEntry:   "vs_trig",
		FragmentEntry: "fs_trig",
		Topology:      gputypes.PrimitiveTopologyTriangleList,
		ColorFormat:   format,
		Depth:         FillDepth(),
	}
	edges := &RenderPipelineConfig{
		Label:         "mesh_edges",
		Shader:        shader,
		VertexEntry:   "vs_edge",
		FragmentEntry: "fs_edge",
		Topology:      gputypes.PrimitiveTopologyLineList,
		ColorFormat:   format,
		Depth:         EdgeDepth(),
	}
	if err := o.build("mesh", ds, fill, edges); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

// Render draws T fill instances of 3 vertices, then 3T edge instances of 2.
func (o *MeshObject) Render(enc *Encoder, loadOp gputypes.LoadOp) error {
	if err := o.check(); err != nil {
		return err
	}
	pass, err := enc.beginPass(passSpec{label: "mesh", loadOp: loadOp, depth: true})
	if err != nil {
		return err
	}
	t := uint32(o.ntrig)
	pass.SetBindGroup(0, o.group.Group, nil)
	pass.SetPipeline(o.pipelines[0])
	pass.Draw(3, t, 0, 0)
	pass.SetPipeline(o.pipelines[1])
	pass.Draw(2, 3*t, 0, 0)
	pass.End()
	return nil
}
