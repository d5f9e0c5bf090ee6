// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu is the rendering core of fieldview: the binding registry,
// resource binding descriptors, a device façade over wgpu/hal, the shared
// uniform block and colormap, and the family of render objects that turn
// mesh and field buffers into draw calls.
//
// A typical frame:
//
//	enc, err := dev.NewEncoder("frame", target)
//	...
//	_ = field.Render(enc, gputypes.LoadOpClear)
//	_ = wire.Render(enc, gputypes.LoadOpLoad)
//	cmd, err := enc.Finish()
//	...
//	err = dev.Submit(cmd)
//
// Render objects:
//
//	MeshObject       fill + edges from inlined triangle positions
//	FieldObject      per-fragment Bernstein evaluation, colormapped
//	IndexedObject    shared vertices with per-vertex values, DrawIndexed
//	DeferredObject   g-buffer pass, then one evaluation per covered pixel
//	WireframeObject  edges over an existing frame, depth test without writes
//
// The device can come from OpenDevice (Vulkan), from an existing hal.Device,
// or from a host framework through NewDeviceFromProvider:
//
//	dev, err := gpu.NewDeviceFromProvider(app) // app exposes HalDevice/HalQueue
package gpu
