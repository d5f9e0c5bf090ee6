// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"
)

// WireframeObject overlays triangle edges on whatever the frame already
// holds. It tests against the existing depth buffer and never writes it.
type WireframeObject struct {
	objectBase
}

// NewWireframeObject builds the edge overlay pipeline for src.
func NewWireframeObject(dev *Device, res Resources, src Source) (*WireframeObject, error) {
	if err := res.check("wireframe", false); err != nil {
		return nil, err
	}
	shader, err := dev.Compile("wireframe", commonWGSL, edgesWGSL)
	if err != nil {
		return nil, err
	}

	o := &WireframeObject{objectBase: objectBase{dev: dev}}
	nb, err := src.resolve(&o.objectBase, false)
	if err != nil {
		return nil, err
	}
	o.ntrig = nb.NumTriangles

	ds, err := nb.Descriptors(SlotVertices, SlotEdges)
	if err != nil {
		o.Destroy()
		return nil, err
	}
	ds = append(ds, res.Uniforms.Descriptor())

	cfg := &RenderPipelineConfig{
		Label:         "wireframe",
		Shader:        shader,
		VertexEntry:   "vs_edge",
		FragmentEntry: "fs_edge",
		Topology:      gputypes.PrimitiveTopologyLineList,
		ColorFormat:   colorFormat(res.ColorFormat),
		Depth:         OverlayDepth(),
	}
	if err := o.build("wireframe", ds, cfg); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

// Render draws 3T edge instances. A wireframe is an overlay, so loadOp
// should be LoadOpLoad; clearing first leaves only the edges.
func (o *WireframeObject) Render(enc *Encoder, loadOp gputypes.LoadOp) error {
	if err := o.check(); err != nil {
		return err
	}
	pass, err := enc.beginPass(passSpec{label: "wireframe", loadOp: loadOp, depth: true})
	if err != nil {
		return err
	}
	pass.SetPipeline(o.pipelines[0])
	pass.SetBindGroup(0, o.group.Group, nil)
	pass.Draw(2, 3*uint32(o.ntrig), 0, 0)
	pass.End()
	return nil
}
