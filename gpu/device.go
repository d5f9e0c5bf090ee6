// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Backends available to OpenDevice.
	_ "github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// DeviceConfig selects the backend OpenDevice acquires.
type DeviceConfig struct {
	// Backend defaults to Vulkan.
	Backend gputypes.Backend

	// Headless opens the noop backend instead, which executes nothing.
	Headless bool

	// Limits defaults to gputypes.DefaultLimits().
	Limits *gputypes.Limits
}

// Device wraps a hal.Device and its queue. It is the only way render objects
// allocate GPU memory, so allocation failures surface uniformly as
// ResourceExhaustionError.
type Device struct {
	dev    hal.Device
	queue  hal.Queue
	limits gputypes.Limits

	// Set when the Device opened the backend itself.
	owned    bool
	instance hal.Instance

	shaders *shaderCache
}

// NewDevice wraps an existing device and queue. Destroy will not release
// them. A nil limits uses gputypes.DefaultLimits().
func NewDevice(dev hal.Device, queue hal.Queue, limits *gputypes.Limits) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, errors.New("gpu: nil device or queue")
	}
	d := &Device{dev: dev, queue: queue, limits: gputypes.DefaultLimits()}
	if limits != nil {
		d.limits = *limits
	}
	d.shaders = newShaderCache(d)
	return d, nil
}

// OpenDevice acquires an adapter from the configured backend, preferring a
// discrete or integrated GPU, and opens a device on it.
func OpenDevice(cfg DeviceConfig) (*Device, error) {
	kind := cfg.Backend
	switch {
	case cfg.Headless:
		kind = gputypes.BackendEmpty
	case kind == gputypes.BackendEmpty:
		kind = gputypes.BackendVulkan
	}
	backend, ok := hal.GetBackend(kind)
	if !ok {
		return nil, fmt.Errorf("gpu: backend %v not available", kind)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("gpu: no adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	limits := gputypes.DefaultLimits()
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}
	open, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}
	slogger().Info("gpu: device opened", "adapter", selected.Info.Name, "backend", kind)
	d := &Device{
		dev:      open.Device,
		queue:    open.Queue,
		limits:   limits,
		owned:    true,
		instance: instance,
	}
	d.shaders = newShaderCache(d)
	return d, nil
}

// halProvider is implemented by host frameworks that expose their HAL
// device, such as gogpu.App through its gpucontext adapter.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewDeviceFromProvider wraps the device of a host framework. The provider
// must expose HalDevice and HalQueue returning hal.Device and hal.Queue.
func NewDeviceFromProvider(provider any) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: %T does not expose HalDevice/HalQueue", provider)
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, errors.New("gpu: provider has no hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("gpu: provider has no hal.Queue")
	}
	return NewDevice(dev, queue, nil)
}

// HAL returns the wrapped device.
func (d *Device) HAL() hal.Device { return d.dev }

// Queue returns the wrapped queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// Limits returns the limits allocations are checked against.
func (d *Device) Limits() gputypes.Limits { return d.limits }

// CreateBuffer allocates a buffer. A zero size, a size above
// Limits.MaxBufferSize, or a backend failure is a ResourceExhaustionError.
func (d *Device) CreateBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	if size == 0 || size > d.limits.MaxBufferSize {
		return nil, &ResourceExhaustionError{Label: label, Requested: size}
	}
	buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, &ResourceExhaustionError{Label: label, Requested: size, Err: err}
	}
	slogger().Debug("gpu: buffer created", "label", label, "size", size)
	return buf, nil
}

// CreateBufferInit allocates a buffer sized to data and uploads it. The
// buffer gets CopyDst in addition to usage.
func (d *Device) CreateBufferInit(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.CreateBuffer(label, uint64(len(data)), usage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.dev.DestroyBuffer(buf)
		return nil, fmt.Errorf("gpu: upload %q: %w", label, err)
	}
	return buf, nil
}

// CreateTexture allocates a texture and a default view of it.
func (d *Device) CreateTexture(desc *hal.TextureDescriptor, viewDim gputypes.TextureViewDimension) (hal.Texture, hal.TextureView, error) {
	if limit := d.textureLimit(desc.Dimension); limit > 0 && (desc.Size.Width > limit || desc.Size.Height > limit) {
		texels := uint64(desc.Size.Width) * uint64(desc.Size.Height)
		return nil, nil, &ResourceExhaustionError{Label: desc.Label, Requested: texels,
			Err: fmt.Errorf("%dx%d exceeds the %d texel limit", desc.Size.Width, desc.Size.Height, limit)}
	}
	tex, err := d.dev.CreateTexture(desc)
	if err != nil {
		texels := uint64(desc.Size.Width) * uint64(desc.Size.Height)
		return nil, nil, &ResourceExhaustionError{Label: desc.Label, Requested: texels, Err: err}
	}
	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           desc.Label + "_view",
		Format:          desc.Format,
		Dimension:       viewDim,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("gpu: create view of %q: %w", desc.Label, err)
	}
	return tex, view, nil
}

// textureLimit returns the largest extent of a texture of dimension dim, or
// 0 when unset.
func (d *Device) textureLimit(dim gputypes.TextureDimension) uint32 {
	switch dim {
	case gputypes.TextureDimension1D:
		return d.limits.MaxTextureDimension1D
	case gputypes.TextureDimension3D:
		return d.limits.MaxTextureDimension3D
	default:
		return d.limits.MaxTextureDimension2D
	}
}

// CreateBindGroup builds a layout from the descriptors' layout fragments and
// a group from their resource fragments. Descriptor order is irrelevant;
// duplicate slots are a BindingMismatchError.
func (d *Device) CreateBindGroup(descriptors []Descriptor, label string) (*BindGroup, error) {
	sorted, err := sortedDescriptors(label, descriptors)
	if err != nil {
		return nil, err
	}
	layoutEntries := make([]gputypes.BindGroupLayoutEntry, len(sorted))
	groupEntries := make([]gputypes.BindGroupEntry, len(sorted))
	slots := make([]Slot, len(sorted))
	for i, ds := range sorted {
		layoutEntries[i] = ds.LayoutEntry()
		groupEntries[i] = ds.GroupEntry()
		slots[i] = ds.Slot()
	}

	layout, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group layout %q: %w", label, err)
	}
	group, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		d.dev.DestroyBindGroupLayout(layout)
		return nil, fmt.Errorf("gpu: create bind group %q: %w", label, err)
	}
	slogger().Debug("gpu: bind group created", "label", label, "slots", describeSlots(sorted))
	return &BindGroup{Label: label, Layout: layout, Group: group, Slots: slots}, nil
}

// CreatePipelineLayout creates a pipeline layout over the given bind group
// layouts, in group order.
func (d *Device) CreatePipelineLayout(label string, layouts ...hal.BindGroupLayout) (hal.PipelineLayout, error) {
	pl, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create pipeline layout %q: %w", label, err)
	}
	return pl, nil
}

// NewEncoder starts recording commands for target.
func (d *Device) NewEncoder(label string, target RenderTarget) (*Encoder, error) {
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	return newEncoder(d, enc, target), nil
}

// Submit submits recorded command buffers in order and waits for them to
// complete. The buffers are freed afterwards.
func (d *Device) Submit(cmds ...hal.CommandBuffer) error {
	if len(cmds) == 0 {
		return nil
	}
	defer func() {
		for _, c := range cmds {
			d.dev.FreeCommandBuffer(c)
		}
	}()
	if _, err := d.queue.Submit(cmds); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	return d.WaitIdle()
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	if err := d.dev.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: wait idle: %w", err)
	}
	return nil
}

// Destroy releases cached shaders and, if the Device opened the backend
// itself, the device and instance. Safe to call more than once.
func (d *Device) Destroy() {
	if d == nil || d.dev == nil {
		return
	}
	d.shaders.purge()
	if d.owned {
		d.dev.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.dev = nil
	d.queue = nil
	d.instance = nil
}
