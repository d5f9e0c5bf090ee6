// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/fieldview/internal/basisgen"
)

// FieldObject draws a high-order field on the mesh: every fragment evaluates
// the Bernstein polynomial of its triangle and maps it through the colormap.
type FieldObject struct {
	objectBase

	order int
}

// fieldShader compiles the shader shared by the direct field path and
// checks that it can evaluate fields of the given order.
func fieldShader(dev *Device, label string, order int, fragments ...string) (*Shader, error) {
	shader, err := dev.Compile(label, fragments...)
	if err != nil {
		return nil, err
	}
	if !shader.HasFunction(basisgen.EvalFunc(order)) {
		return nil, &ShaderLinkError{Shader: label, Entry: basisgen.EvalFunc(order), Order: order}
	}
	return shader, nil
}

// NewFieldObject validates the field of src against its triangle count,
// links the evaluation function for its order and builds the pipeline.
// Nothing is allocated when either check fails.
func NewFieldObject(dev *Device, res Resources, src Source) (*FieldObject, error) {
	if err := res.check("field object", true); err != nil {
		return nil, err
	}
	order, err := src.checkField()
	if err != nil {
		return nil, err
	}
	shader, err := fieldShader(dev, "field", order,
		commonWGSL, trianglesWGSL, colormapWGSL, fieldValuesWGSL, basisSource(), fieldWGSL)
	if err != nil {
		return nil, err
	}

	o := &FieldObject{objectBase: objectBase{dev: dev}, order: order}
	nb, err := src.resolve(&o.objectBase, true)
	if err != nil {
		return nil, err
	}
	o.ntrig = nb.NumTriangles

	ds, err := nb.Descriptors(SlotTriangles, SlotFieldValues)
	if err != nil {
		o.Destroy()
		return nil, err
	}
	ds = append(ds, res.Uniforms.Descriptor())
	ds = append(ds, res.Colormap.Descriptors()...)

	cfg := &RenderPipelineConfig{
		Label:         "field",
		Shader:        shader,
		VertexEntry:   "vs_trig",
		FragmentEntry: "fs_field",
		Topology:      gputypes.PrimitiveTopologyTriangleList,
		ColorFormat:   colorFormat(res.ColorFormat),
		Depth:         FillDepth(),
	}
	if err := o.build("field", ds, cfg); err != nil {
		o.Destroy()
		return nil, err
	}
	slogger().Debug("gpu: field object", "triangles", o.ntrig, "order", order)
	return o, nil
}

// Order returns the polynomial order of the field.
func (o *FieldObject) Order() int { return o.order }

// Render draws T triangle instances.
func (o *FieldObject) Render(enc *Encoder, loadOp gputypes.LoadOp) error {
	if err := o.check(); err != nil {
		return err
	}
	pass, err := enc.beginPass(passSpec{label: "field", loadOp: loadOp, depth: true})
	if err != nil {
		return err
	}
	pass.SetPipeline(o.pipelines[0])
	pass.SetBindGroup(0, o.group.Group, nil)
	pass.Draw(3, uint32(o.ntrig), 0, 0)
	pass.End()
	return nil
}
