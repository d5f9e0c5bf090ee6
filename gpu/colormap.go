// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultColormap runs blue, cyan, green, yellow, red.
var DefaultColormap = []color.RGBA{
	{0, 0, 255, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{255, 0, 0, 255},
}

// Colormap is an immutable 1D lookup texture with its sampler.
type Colormap struct {
	stops []color.RGBA

	dev     *Device
	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
}

// NewColormap uploads stops as a rgba8unorm 1D texture. nil stops use
// DefaultColormap.
func NewColormap(dev *Device, stops []color.RGBA) (*Colormap, error) {
	if stops == nil {
		stops = DefaultColormap
	}
	if len(stops) < 2 {
		return nil, errors.New("gpu: colormap needs at least two stops")
	}
	cm := &Colormap{stops: append([]color.RGBA(nil), stops...), dev: dev}

	width := uint32(len(stops))
	tex, view, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "colormap",
		Size:          hal.Extent3D{Width: width, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension1D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}, gputypes.TextureViewDimension1D)
	if err != nil {
		return nil, err
	}
	cm.texture, cm.view = tex, view

	texels := make([]byte, 0, 4*len(stops))
	for _, c := range stops {
		texels = append(texels, c.R, c.G, c.B, c.A)
	}
	err = dev.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		texels,
		&hal.ImageDataLayout{BytesPerRow: 4 * width, RowsPerImage: 1},
		&hal.Extent3D{Width: width, Height: 1, DepthOrArrayLayers: 1},
	)
	if err != nil {
		cm.Destroy()
		return nil, fmt.Errorf("gpu: upload colormap: %w", err)
	}

	cm.sampler, err = dev.dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "colormap_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		cm.Destroy()
		return nil, fmt.Errorf("gpu: create colormap sampler: %w", err)
	}
	return cm, nil
}

// Stops returns a copy of the colormap entries.
func (cm *Colormap) Stops() []color.RGBA { return append([]color.RGBA(nil), cm.stops...) }

// Descriptors binds the texture and sampler for the fragment stage.
func (cm *Colormap) Descriptors() []Descriptor {
	return []Descriptor{
		TextureBinding{
			At:         SlotColormapTexture,
			Visibility: gputypes.ShaderStageFragment,
			View:       cm.view,
			SampleType: gputypes.TextureSampleTypeFloat,
			Dimension:  gputypes.TextureViewDimension1D,
		},
		SamplerBinding{
			At:         SlotColormapSampler,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    cm.sampler,
			Type:       gputypes.SamplerBindingTypeFiltering,
		},
	}
}

// Lookup returns the color the shaders sample at texture coordinate t:
// texel centers sit at (i+0.5)/n, and coordinates outside clamp to the edge
// texels.
func (cm *Colormap) Lookup(t float32) color.RGBA { return LookupStops(cm.stops, t) }

// LookupStops is Lookup over an arbitrary stop list.
func LookupStops(stops []color.RGBA, t float32) color.RGBA {
	n := len(stops)
	x := t*float32(n) - 0.5
	if !(x > 0) {
		return stops[0]
	}
	if x >= float32(n-1) {
		return stops[n-1]
	}
	i := int(x)
	f := x - float32(i)
	a, b := stops[i], stops[i+1]
	mix := func(p, q uint8) uint8 {
		return uint8(float32(p)*(1-f) + float32(q)*f + 0.5)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}

// Destroy releases sampler, view and texture. Safe to call twice.
func (cm *Colormap) Destroy() {
	dev := cm.dev.dev
	if dev == nil {
		return
	}
	if cm.sampler != nil {
		dev.DestroySampler(cm.sampler)
		cm.sampler = nil
	}
	if cm.view != nil {
		dev.DestroyTextureView(cm.view)
		cm.view = nil
	}
	if cm.texture != nil {
		dev.DestroyTexture(cm.texture)
		cm.texture = nil
	}
}
