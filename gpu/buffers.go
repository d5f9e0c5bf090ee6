// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldview/mesh"
)

// NamedBuffers is a set of storage buffers keyed by slot, for a mesh of
// NumTriangles triangles. Buffers may come from UploadMesh or from the grid
// generator.
type NamedBuffers struct {
	NumTriangles int

	// FieldOrder and FieldComponents describe the field buffer, if any.
	FieldOrder      int
	FieldComponents int

	Buffers map[Slot]hal.Buffer
	Sizes   map[Slot]uint64

	dev   *Device
	owned bool
}

func newNamedBuffers(dev *Device, ntrig int, owned bool) *NamedBuffers {
	return &NamedBuffers{
		NumTriangles: ntrig,
		Buffers:      make(map[Slot]hal.Buffer),
		Sizes:        make(map[Slot]uint64),
		dev:          dev,
		owned:        owned,
	}
}

// UploadMesh encodes m (and f, if not nil) and uploads the vertex, edge,
// triangle and field buffers. f must match the triangle count of m.
func UploadMesh(dev *Device, m *mesh.Mesh, f *mesh.Field) (*NamedBuffers, error) {
	enc, err := mesh.Encode(m)
	if err != nil {
		return nil, err
	}
	if f != nil {
		if err := f.Check(m.NumTriangles()); err != nil {
			return nil, err
		}
	}
	nb := newNamedBuffers(dev, m.NumTriangles(), true)
	uploads := []struct {
		slot Slot
		data []byte
	}{
		{SlotVertices, enc.Vertices},
		{SlotEdges, enc.Edges},
		{SlotTriangles, enc.Triangles},
	}
	if f != nil {
		nb.FieldOrder, nb.FieldComponents = f.Order, f.Components
		uploads = append(uploads, struct {
			slot Slot
			data []byte
		}{SlotFieldValues, f.Encode()})
	}
	for _, u := range uploads {
		if err := nb.upload(u.slot, u.data); err != nil {
			nb.Destroy()
			return nil, err
		}
	}
	return nb, nil
}

// UploadField adds or replaces the field buffer.
func (nb *NamedBuffers) UploadField(f *mesh.Field) error {
	if err := f.Check(nb.NumTriangles); err != nil {
		return err
	}
	if old, ok := nb.Buffers[SlotFieldValues]; ok && nb.owned {
		nb.dev.dev.DestroyBuffer(old)
		delete(nb.Buffers, SlotFieldValues)
		delete(nb.Sizes, SlotFieldValues)
	}
	if err := nb.upload(SlotFieldValues, f.Encode()); err != nil {
		return err
	}
	nb.FieldOrder, nb.FieldComponents = f.Order, f.Components
	return nil
}

func (nb *NamedBuffers) upload(slot Slot, data []byte) error {
	buf, err := nb.dev.CreateBufferInit(slot.String(), data, gputypes.BufferUsageStorage)
	if err != nil {
		return err
	}
	nb.Buffers[slot] = buf
	nb.Sizes[slot] = uint64(len(data))
	return nil
}

// Has reports whether every slot has a buffer.
func (nb *NamedBuffers) Has(slots ...Slot) bool {
	for _, s := range slots {
		if _, ok := nb.Buffers[s]; !ok {
			return false
		}
	}
	return true
}

// Descriptors returns read-only storage bindings for the given slots.
func (nb *NamedBuffers) Descriptors(slots ...Slot) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(slots))
	for _, s := range slots {
		buf, ok := nb.Buffers[s]
		if !ok {
			return nil, &BindingMismatchError{Label: "named buffers", Slot: s, Reason: "no buffer"}
		}
		out = append(out, StorageBinding{
			At:         s,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     buf,
			Size:       nb.Sizes[s],
		})
	}
	return out, nil
}

// checkField verifies that the field buffer holds exactly NumTriangles
// blocks of its declared order and component count.
func (nb *NamedBuffers) checkField() error {
	order, components := nb.FieldOrder, nb.FieldComponents
	size, ok := nb.Sizes[SlotFieldValues]
	if !ok || order < 1 || components < 1 {
		return fmt.Errorf("%w: no field buffer", mesh.ErrStructuralMismatch)
	}
	if want := mesh.FieldBufferSize(nb.NumTriangles, order, components); size != want {
		return fmt.Errorf("%w: field buffer is %d bytes, order %d with %d components on %d triangles needs %d",
			mesh.ErrStructuralMismatch, size, order, components, nb.NumTriangles, want)
	}
	return nil
}

// Destroy releases the buffers if this set allocated them. Safe to call
// twice.
func (nb *NamedBuffers) Destroy() {
	if nb.owned && nb.dev.dev != nil {
		for _, buf := range nb.Buffers {
			nb.dev.dev.DestroyBuffer(buf)
		}
	}
	clear(nb.Buffers)
	clear(nb.Sizes)
}
