// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderTarget is the color and depth attachment set a frame renders into.
// Depth may be nil for targets rendered only by depthless passes.
type RenderTarget struct {
	Color  hal.TextureView
	Depth  hal.TextureView
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
}

// White is the default clear color.
var White = gputypes.Color{R: 1, G: 1, B: 1, A: 1}

// Encoder records the passes of one frame.
type Encoder struct {
	dev    *Device
	enc    hal.CommandEncoder
	target RenderTarget

	// ClearColor is used by passes that clear the target.
	ClearColor gputypes.Color

	renderPasses int
	finished     bool
}

func newEncoder(d *Device, enc hal.CommandEncoder, target RenderTarget) *Encoder {
	return &Encoder{dev: d, enc: enc, target: target, ClearColor: White}
}

// Target returns the render target.
func (e *Encoder) Target() RenderTarget { return e.target }

// HAL returns the wrapped command encoder.
func (e *Encoder) HAL() hal.CommandEncoder { return e.enc }

// passSpec describes one render pass. A nil view means the frame target.
type passSpec struct {
	label  string
	view   hal.TextureView
	loadOp gputypes.LoadOp
	clear  *gputypes.Color
	depth  bool

	// depthLoad overrides the depth load op. Zero follows loadOp.
	depthLoad gputypes.LoadOp
}

// beginPass starts a render pass. Color loads or clears per loadOp. Depth,
// when requested, clears to 1.0 on LoadOpClear and loads otherwise.
func (e *Encoder) beginPass(spec passSpec) (hal.RenderPassEncoder, error) {
	if e.finished {
		return nil, errors.New("gpu: encoder already finished")
	}
	view := spec.view
	if view == nil {
		view = e.target.Color
	}
	if view == nil {
		return nil, fmt.Errorf("gpu: pass %q: no color attachment", spec.label)
	}
	clear := e.ClearColor
	if spec.clear != nil {
		clear = *spec.clear
	}
	desc := &hal.RenderPassDescriptor{
		Label: spec.label,
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     spec.loadOp,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: clear,
			},
		},
	}
	if spec.depth {
		if e.target.Depth == nil {
			return nil, fmt.Errorf("gpu: pass %q: target has no depth attachment", spec.label)
		}
		depthLoad := spec.depthLoad
		if depthLoad == gputypes.LoadOpUndefined {
			depthLoad = gputypes.LoadOpLoad
			if spec.loadOp == gputypes.LoadOpClear {
				depthLoad = gputypes.LoadOpClear
			}
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            e.target.Depth,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
			StencilLoadOp:   gputypes.LoadOpClear,
			StencilStoreOp:  gputypes.StoreOpDiscard,
		}
	}
	e.renderPasses++
	return e.enc.BeginRenderPass(desc), nil
}

// RenderPasses returns the number of render passes recorded so far.
func (e *Encoder) RenderPasses() int { return e.renderPasses }

// Clear records a pass that only clears color and, if the target has one,
// depth.
func (e *Encoder) Clear() error {
	pass, err := e.beginPass(passSpec{label: "clear", loadOp: gputypes.LoadOpClear, depth: e.target.Depth != nil})
	if err != nil {
		return err
	}
	pass.End()
	return nil
}

// beginCompute starts a compute pass.
func (e *Encoder) beginCompute(label string) (hal.ComputePassEncoder, error) {
	if e.finished {
		return nil, errors.New("gpu: encoder already finished")
	}
	return e.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: label}), nil
}

// Finish ends recording and returns the command buffer.
func (e *Encoder) Finish() (hal.CommandBuffer, error) {
	if e.finished {
		return nil, errors.New("gpu: encoder already finished")
	}
	e.finished = true
	cmd, err := e.enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	return cmd, nil
}

// Discard abandons recording.
func (e *Encoder) Discard() {
	if !e.finished {
		e.finished = true
		e.enc.DiscardEncoding()
	}
}
