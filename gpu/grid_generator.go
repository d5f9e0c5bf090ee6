// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldview/mesh"
)

// GridWorkgroupSize is the default @workgroup_size of the grid compute
// shader.
const GridWorkgroupSize = 64

// gridParamsSize is the size of the GridParams uniform: n, order, ntrig and
// the invocations per dispatch row.
const gridParamsSize = 16

// GridSizes are the exact buffer sizes of an n×n grid with an order-k field.
type GridSizes struct {
	Triangles int
	Vertices  uint64
	Edges     uint64
	Trigs     uint64
	Field     uint64
}

// GridBufferSizes computes the sizes Generate allocates.
func GridBufferSizes(n, order int) GridSizes {
	t := 2 * n * n
	return GridSizes{
		Triangles: t,
		Vertices:  uint64((n+1)*(n+1)) * mesh.VertexStride,
		Edges:     uint64(3*t) * mesh.EdgeStride,
		Trigs:     uint64(t) * mesh.TriangleStride,
		Field:     mesh.FieldBufferSize(t, order, 1),
	}
}

// GridWorkgroups returns the number of workgroups of size wgSize covering t
// triangles.
func GridWorkgroups(t, wgSize int) uint32 {
	return uint32((t + wgSize - 1) / wgSize)
}

// GridDispatch splits wg workgroups into x·y ≥ wg with x ≤ limit. A zero
// limit leaves the dispatch one-dimensional. y may still exceed limit.
func GridDispatch(wg, limit uint32) (x, y uint32) {
	if limit == 0 || wg <= limit {
		return wg, 1
	}
	return limit, (wg + limit - 1) / limit
}

// GridGenerator fills mesh and field buffers for a regular grid on the unit
// square with a compute shader. The CPU equivalent is mesh.Grid.
type GridGenerator struct {
	dev        *Device
	wgSize     int
	shader     *Shader
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// gridDescriptors returns the compute bindings. Buffers may be nil when only
// the layout is needed.
func gridDescriptors(params hal.Buffer, nb *NamedBuffers) []Descriptor {
	ds := []Descriptor{UniformBinding{
		At:         SlotUniforms,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     params,
		Size:       gridParamsSize,
	}}
	for _, s := range []Slot{SlotVertices, SlotEdges, SlotTriangles, SlotFieldValues} {
		b := StorageBinding{At: s, Visibility: gputypes.ShaderStageCompute, ReadWrite: true}
		if nb != nil {
			b.Buffer, b.Size = nb.Buffers[s], nb.Sizes[s]
		}
		ds = append(ds, b)
	}
	return ds
}

// NewGridGenerator compiles the grid shader with GridWorkgroupSize and
// creates its pipeline.
func NewGridGenerator(dev *Device) (*GridGenerator, error) {
	return NewGridGeneratorSize(dev, GridWorkgroupSize)
}

// NewGridGeneratorSize is NewGridGenerator with wgSize invocations per
// workgroup, bounded by the device limits.
func NewGridGeneratorSize(dev *Device, wgSize int) (*GridGenerator, error) {
	if err := CheckAlignment("grid params", gridParamsSize); err != nil {
		return nil, err
	}
	if wgSize < 1 || !withinLimit(wgSize, dev.limits.MaxComputeWorkgroupSizeX) ||
		!withinLimit(wgSize, dev.limits.MaxComputeInvocationsPerWorkgroup) {
		return nil, fmt.Errorf("gpu: grid workgroup size %d outside the device limits", wgSize)
	}
	shader, err := dev.Compile("grid", gridSource(wgSize))
	if err != nil {
		return nil, err
	}
	ds := gridDescriptors(nil, nil)
	entries, err := BindGroupLayoutEntries(ds)
	if err != nil {
		return nil, err
	}
	g := &GridGenerator{dev: dev, wgSize: wgSize, shader: shader}
	g.layout, err = dev.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "grid_layout", Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group layout %q: %w", "grid", err)
	}
	g.pipeLayout, err = dev.CreatePipelineLayout("grid_pipe_layout", g.layout)
	if err != nil {
		g.Destroy()
		return nil, err
	}
	g.pipeline, err = dev.CreateComputePipeline(&ComputePipelineConfig{
		Label:    "grid",
		Shader:   shader,
		Layout:   g.pipeLayout,
		Bindings: ds,
		Entry:    "main",
	})
	if err != nil {
		g.Destroy()
		return nil, err
	}
	return g, nil
}

// gridSource returns the grid shader with its workgroup size filled in.
func gridSource(wgSize int) string {
	return strings.ReplaceAll(gridWGSL, "WORKGROUP_SIZE", strconv.Itoa(wgSize))
}

// withinLimit reports v <= limit, treating a zero limit as unset.
func withinLimit(v int, limit uint32) bool {
	return limit == 0 || uint64(v) <= uint64(limit)
}

// WorkgroupSize returns the shader's @workgroup_size.
func (g *GridGenerator) WorkgroupSize() int { return g.wgSize }

// GridBuffers are the buffers of one generated grid. The embedded
// NamedBuffers can be handed to any render object as its Source.
type GridBuffers struct {
	*NamedBuffers

	N          int
	Workgroups uint32

	// Dispatch is the workgroup grid the compute pass ran, x then y.
	Dispatch [2]uint32

	params hal.Buffer
	group  hal.BindGroup
}

// Generate allocates buffers for an n×n grid with an order-k field and
// records the compute pass that fills them. It must be recorded before any
// render pass that reads the buffers; the buffers hold data once the
// encoder is submitted.
func (g *GridGenerator) Generate(enc *Encoder, n, order int) (*GridBuffers, error) {
	if g.pipeline == nil {
		return nil, ErrDestroyed
	}
	if n < 1 || order < 1 {
		return nil, fmt.Errorf("gpu: grid %d×%d of order %d", n, n, order)
	}
	if enc.RenderPasses() > 0 {
		return nil, errors.New("gpu: grid must be generated before any render pass of the frame")
	}
	sizes := GridBufferSizes(n, order)
	wg := GridWorkgroups(sizes.Triangles, g.wgSize)
	limit := g.dev.limits.MaxComputeWorkgroupsPerDimension
	dx, dy := GridDispatch(wg, limit)
	if limit > 0 && dy > limit {
		return nil, &WorkgroupLimitError{Label: "grid", Workgroups: wg, Limit: limit}
	}

	gb := &GridBuffers{
		NamedBuffers: newNamedBuffers(g.dev, sizes.Triangles, true),
		N:            n,
		Workgroups:   wg,
		Dispatch:     [2]uint32{dx, dy},
	}
	gb.FieldOrder, gb.FieldComponents = order, 1
	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc
	for _, b := range []struct {
		slot Slot
		size uint64
	}{
		{SlotVertices, sizes.Vertices},
		{SlotEdges, sizes.Edges},
		{SlotTriangles, sizes.Trigs},
		{SlotFieldValues, sizes.Field},
	} {
		buf, err := g.dev.CreateBuffer(b.slot.String(), b.size, usage)
		if err != nil {
			gb.Destroy()
			return nil, err
		}
		gb.Buffers[b.slot], gb.Sizes[b.slot] = buf, b.size
	}

	params := make([]byte, 0, gridParamsSize)
	params = binary.LittleEndian.AppendUint32(params, uint32(n))
	params = binary.LittleEndian.AppendUint32(params, uint32(order))
	params = binary.LittleEndian.AppendUint32(params, uint32(sizes.Triangles))
	params = binary.LittleEndian.AppendUint32(params, dx*uint32(g.wgSize))
	var err error
	gb.params, err = g.dev.CreateBufferInit("grid_params", params, gputypes.BufferUsageUniform)
	if err != nil {
		gb.Destroy()
		return nil, err
	}

	entries, err := BindGroupEntries(gridDescriptors(gb.params, gb.NamedBuffers))
	if err != nil {
		gb.Destroy()
		return nil, err
	}
	gb.group, err = g.dev.dev.CreateBindGroup(&hal.BindGroupDescriptor{Label: "grid", Layout: g.layout, Entries: entries})
	if err != nil {
		gb.Destroy()
		return nil, fmt.Errorf("gpu: create bind group %q: %w", "grid", err)
	}

	pass, err := enc.beginCompute("grid")
	if err != nil {
		gb.Destroy()
		return nil, err
	}
	pass.SetPipeline(g.pipeline)
	pass.SetBindGroup(0, gb.group, nil)
	pass.Dispatch(dx, dy, 1)
	pass.End()

	slogger().Debug("gpu: grid recorded", "n", n, "order", order,
		"triangles", sizes.Triangles, "workgroups", wg, "dispatch_x", dx, "dispatch_y", dy)
	return gb, nil
}

// Destroy releases the compute pipeline. Generated buffers stay valid.
func (g *GridGenerator) Destroy() {
	dev := g.dev.dev
	if dev == nil {
		return
	}
	if g.pipeline != nil {
		dev.DestroyComputePipeline(g.pipeline)
		g.pipeline = nil
	}
	if g.pipeLayout != nil {
		dev.DestroyPipelineLayout(g.pipeLayout)
		g.pipeLayout = nil
	}
	if g.layout != nil {
		dev.DestroyBindGroupLayout(g.layout)
		g.layout = nil
	}
}

// Destroy releases the bind group, the parameter buffer and the mesh
// buffers. Render objects using them must be destroyed first.
func (gb *GridBuffers) Destroy() {
	if dev := gb.dev.dev; dev != nil {
		if gb.group != nil {
			dev.DestroyBindGroup(gb.group)
		}
		if gb.params != nil {
			dev.DestroyBuffer(gb.params)
		}
	}
	gb.group, gb.params = nil, nil
	gb.NamedBuffers.Destroy()
}
