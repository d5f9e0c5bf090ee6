// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindingKind classifies a descriptor for comparison with shader
// declarations.
type BindingKind uint8

const (
	KindUniform BindingKind = iota
	KindStorage
	KindReadOnlyStorage
	KindTexture
	KindSampler
)

func (k BindingKind) String() string {
	switch k {
	case KindUniform:
		return "uniform"
	case KindStorage:
		return "storage"
	case KindReadOnlyStorage:
		return "read-only storage"
	case KindTexture:
		return "texture"
	case KindSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// Descriptor describes one resource binding: where it goes (slot and
// visibility), its layout fragment, and its resource fragment.
type Descriptor interface {
	Slot() Slot
	Kind() BindingKind
	LayoutEntry() gputypes.BindGroupLayoutEntry
	GroupEntry() gputypes.BindGroupEntry
}

// UniformBinding binds a uniform buffer.
type UniformBinding struct {
	At         Slot
	Visibility gputypes.ShaderStages
	Buffer     hal.Buffer
	Size       uint64
}

func (b UniformBinding) Slot() Slot        { return b.At }
func (b UniformBinding) Kind() BindingKind { return KindUniform }

func (b UniformBinding) LayoutEntry() gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    uint32(b.At),
		Visibility: b.Visibility,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: b.Size},
	}
}

func (b UniformBinding) GroupEntry() gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  uint32(b.At),
		Resource: gputypes.BufferBinding{Buffer: b.Buffer.NativeHandle(), Size: b.Size},
	}
}

// StorageBinding binds a storage buffer, read-only unless ReadWrite is set.
type StorageBinding struct {
	At         Slot
	Visibility gputypes.ShaderStages
	Buffer     hal.Buffer
	Size       uint64
	ReadWrite  bool
}

func (b StorageBinding) Slot() Slot { return b.At }

func (b StorageBinding) Kind() BindingKind {
	if b.ReadWrite {
		return KindStorage
	}
	return KindReadOnlyStorage
}

func (b StorageBinding) LayoutEntry() gputypes.BindGroupLayoutEntry {
	typ := gputypes.BufferBindingTypeReadOnlyStorage
	if b.ReadWrite {
		typ = gputypes.BufferBindingTypeStorage
	}
	return gputypes.BindGroupLayoutEntry{
		Binding:    uint32(b.At),
		Visibility: b.Visibility,
		Buffer:     &gputypes.BufferBindingLayout{Type: typ},
	}
}

func (b StorageBinding) GroupEntry() gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  uint32(b.At),
		Resource: gputypes.BufferBinding{Buffer: b.Buffer.NativeHandle(), Size: b.Size},
	}
}

// TextureBinding binds a sampled texture view.
type TextureBinding struct {
	At           Slot
	Visibility   gputypes.ShaderStages
	View         hal.TextureView
	SampleType   gputypes.TextureSampleType
	Dimension    gputypes.TextureViewDimension
	Multisampled bool
}

func (b TextureBinding) Slot() Slot        { return b.At }
func (b TextureBinding) Kind() BindingKind { return KindTexture }

func (b TextureBinding) LayoutEntry() gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    uint32(b.At),
		Visibility: b.Visibility,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    b.SampleType,
			ViewDimension: b.Dimension,
			Multisampled:  b.Multisampled,
		},
	}
}

func (b TextureBinding) GroupEntry() gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  uint32(b.At),
		Resource: gputypes.TextureViewBinding{TextureView: b.View.NativeHandle()},
	}
}

// SamplerBinding binds a sampler.
type SamplerBinding struct {
	At         Slot
	Visibility gputypes.ShaderStages
	Sampler    hal.Sampler
	Type       gputypes.SamplerBindingType
}

func (b SamplerBinding) Slot() Slot        { return b.At }
func (b SamplerBinding) Kind() BindingKind { return KindSampler }

func (b SamplerBinding) LayoutEntry() gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    uint32(b.At),
		Visibility: b.Visibility,
		Sampler:    &gputypes.SamplerBindingLayout{Type: b.Type},
	}
}

func (b SamplerBinding) GroupEntry() gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  uint32(b.At),
		Resource: gputypes.SamplerBinding{Sampler: b.Sampler.NativeHandle()},
	}
}

// sortedDescriptors returns ds ordered by slot and rejects duplicate slots.
// Descriptor order as given by callers does not matter.
func sortedDescriptors(label string, ds []Descriptor) ([]Descriptor, error) {
	out := append([]Descriptor(nil), ds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot() < out[j].Slot() })
	for i := 1; i < len(out); i++ {
		if out[i].Slot() == out[i-1].Slot() {
			return nil, &BindingMismatchError{Label: label, Slot: out[i].Slot(), Reason: "bound twice"}
		}
	}
	return out, nil
}

// BindGroupLayoutEntries returns the layout fragments of ds in slot order.
func BindGroupLayoutEntries(ds []Descriptor) ([]gputypes.BindGroupLayoutEntry, error) {
	sorted, err := sortedDescriptors("layout", ds)
	if err != nil {
		return nil, err
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(sorted))
	for i, d := range sorted {
		entries[i] = d.LayoutEntry()
	}
	return entries, nil
}

// BindGroupEntries returns the resource fragments of ds in slot order.
func BindGroupEntries(ds []Descriptor) ([]gputypes.BindGroupEntry, error) {
	sorted, err := sortedDescriptors("group", ds)
	if err != nil {
		return nil, err
	}
	entries := make([]gputypes.BindGroupEntry, len(sorted))
	for i, d := range sorted {
		entries[i] = d.GroupEntry()
	}
	return entries, nil
}

// BindGroup is a bind group together with its layout.
type BindGroup struct {
	Label  string
	Layout hal.BindGroupLayout
	Group  hal.BindGroup
	Slots  []Slot
}

// Destroy releases the group, then the layout.
func (bg *BindGroup) Destroy(device hal.Device) {
	if bg == nil {
		return
	}
	if bg.Group != nil {
		device.DestroyBindGroup(bg.Group)
		bg.Group = nil
	}
	if bg.Layout != nil {
		device.DestroyBindGroupLayout(bg.Layout)
		bg.Layout = nil
	}
}

func describeSlots(ds []Descriptor) string {
	s := ""
	for i, d := range ds {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d:%s", uint32(d.Slot()), d.Kind())
	}
	return s
}
