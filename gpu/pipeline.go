// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"
)

// Depth bias applied to every triangle-fill pipeline so that edges drawn at
// the same depth win the depth test.
const (
	FillDepthBias           int32   = 1
	FillDepthBiasSlopeScale float32 = 1
)

// DepthFormat is the depth attachment format of every pipeline that tests
// depth.
const DepthFormat = gputypes.TextureFormatDepth24Plus

// DepthConfig describes the depth test of a render pipeline.
type DepthConfig struct {
	Format    gputypes.TextureFormat
	Compare   gputypes.CompareFunction
	Write     bool
	Bias      int32
	SlopeBias float32
}

// FillDepth is the depth state of triangle fills: less, write, biased.
func FillDepth() *DepthConfig {
	return &DepthConfig{
		Format:    DepthFormat,
		Compare:   gputypes.CompareFunctionLess,
		Write:     true,
		Bias:      FillDepthBias,
		SlopeBias: FillDepthBiasSlopeScale,
	}
}

// EdgeDepth is the depth state of edges drawn in the same pass as fills.
func EdgeDepth() *DepthConfig {
	return &DepthConfig{Format: DepthFormat, Compare: gputypes.CompareFunctionLess, Write: true}
}

// OverlayDepth tests against an existing depth buffer without writing it.
func OverlayDepth() *DepthConfig {
	return &DepthConfig{Format: DepthFormat, Compare: gputypes.CompareFunctionLessEqual}
}

// RenderPipelineConfig is everything needed to build one render pipeline.
type RenderPipelineConfig struct {
	Label    string
	Shader   *Shader
	Layout   hal.PipelineLayout
	Bindings []Descriptor

	VertexEntry   string
	FragmentEntry string
	VertexBuffers []gputypes.VertexBufferLayout

	Topology    gputypes.PrimitiveTopology
	ColorFormat gputypes.TextureFormat
	Blend       *gputypes.BlendState

	// Depth is nil for passes without a depth attachment.
	Depth *DepthConfig
}

// Validate checks the config against the shader's reflection data: both
// entry points must exist with the right stage and the bindings must match
// the declared globals.
func (c *RenderPipelineConfig) Validate() error {
	if c.Shader == nil {
		return fmt.Errorf("gpu: pipeline %q: no shader", c.Label)
	}
	if !c.Shader.HasEntryPoint(c.VertexEntry, ir.StageVertex) {
		return &ShaderLinkError{Shader: c.Shader.Label, Entry: c.VertexEntry}
	}
	if !c.Shader.HasEntryPoint(c.FragmentEntry, ir.StageFragment) {
		return &ShaderLinkError{Shader: c.Shader.Label, Entry: c.FragmentEntry}
	}
	if c.ColorFormat == gputypes.TextureFormatUndefined {
		return fmt.Errorf("gpu: pipeline %q: no color format", c.Label)
	}
	return c.Shader.CheckBindings(c.Bindings)
}

func (c *RenderPipelineConfig) descriptor() *hal.RenderPipelineDescriptor {
	desc := &hal.RenderPipelineDescriptor{
		Label:  c.Label,
		Layout: c.Layout,
		Vertex: hal.VertexState{
			Module:     c.Shader.Module,
			EntryPoint: c.VertexEntry,
			Buffers:    c.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     c.Shader.Module,
			EntryPoint: c.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    c.ColorFormat,
					Blend:     c.Blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: c.Topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if c.Depth != nil {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:              c.Depth.Format,
			DepthWriteEnabled:   c.Depth.Write,
			DepthCompare:        c.Depth.Compare,
			StencilFront:        keep,
			StencilBack:         keep,
			DepthBias:           c.Depth.Bias,
			DepthBiasSlopeScale: c.Depth.SlopeBias,
		}
	}
	return desc
}

// CreateRenderPipeline validates cfg and creates the pipeline. cfg.Layout
// must be set.
func (d *Device) CreateRenderPipeline(cfg *RenderPipelineConfig) (hal.RenderPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Layout == nil {
		return nil, fmt.Errorf("gpu: pipeline %q: no layout", cfg.Label)
	}
	p, err := d.dev.CreateRenderPipeline(cfg.descriptor())
	if err != nil {
		return nil, fmt.Errorf("gpu: create pipeline %q: %w", cfg.Label, err)
	}
	slogger().Debug("gpu: render pipeline created", "label", cfg.Label,
		"vs", cfg.VertexEntry, "fs", cfg.FragmentEntry, "depth", cfg.Depth != nil)
	return p, nil
}

// ComputePipelineConfig is everything needed to build one compute pipeline.
type ComputePipelineConfig struct {
	Label    string
	Shader   *Shader
	Layout   hal.PipelineLayout
	Bindings []Descriptor
	Entry    string
}

// Validate checks the entry point and bindings against the shader.
func (c *ComputePipelineConfig) Validate() error {
	if c.Shader == nil || c.Layout == nil {
		return errors.New("gpu: compute pipeline " + c.Label + ": missing shader or layout")
	}
	if !c.Shader.HasEntryPoint(c.Entry, ir.StageCompute) {
		return &ShaderLinkError{Shader: c.Shader.Label, Entry: c.Entry}
	}
	return c.Shader.CheckBindings(c.Bindings)
}

// CreateComputePipeline validates cfg and creates the pipeline.
func (d *Device) CreateComputePipeline(cfg *ComputePipelineConfig) (hal.ComputePipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := d.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   cfg.Label,
		Layout:  cfg.Layout,
		Compute: hal.ComputeState{Module: cfg.Shader.Module, EntryPoint: cfg.Entry},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create compute pipeline %q: %w", cfg.Label, err)
	}
	return p, nil
}
