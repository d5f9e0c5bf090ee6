// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot is the bind group binding number of a semantic resource. Shaders name
// slots as @binding(SLOT_*) and Compile substitutes the numbers below, so
// this table is the only place slot numbers are defined.
type Slot uint32

const (
	SlotUniforms        Slot = 0
	SlotColormapTexture Slot = 1
	SlotColormapSampler Slot = 2
	SlotVertices        Slot = 3
	SlotEdges           Slot = 4
	SlotTriangles       Slot = 5
	SlotFieldValues     Slot = 6
	SlotGBuffer         Slot = 7
)

// Slots lists every slot in numeric order.
var Slots = []Slot{
	SlotUniforms, SlotColormapTexture, SlotColormapSampler, SlotVertices,
	SlotEdges, SlotTriangles, SlotFieldValues, SlotGBuffer,
}

var slotNames = [...]string{
	SlotUniforms:        "UNIFORMS",
	SlotColormapTexture: "COLORMAP_TEXTURE",
	SlotColormapSampler: "COLORMAP_SAMPLER",
	SlotVertices:        "VERTICES",
	SlotEdges:           "EDGES",
	SlotTriangles:       "TRIANGLES",
	SlotFieldValues:     "FIELD_VALUES",
	SlotGBuffer:         "GBUFFER",
}

// String returns the semantic name of the slot.
func (s Slot) String() string {
	if int(s) < len(slotNames) {
		return slotNames[s]
	}
	return "SLOT(" + strconv.Itoa(int(s)) + ")"
}

// Placeholder returns the token shaders use in place of the slot number.
func (s Slot) Placeholder() string { return "SLOT_" + s.String() }

var slotReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(Slots))
	for _, s := range Slots {
		pairs = append(pairs, "@binding("+s.Placeholder()+")", "@binding("+strconv.Itoa(int(s))+")")
	}
	return strings.NewReplacer(pairs...)
}()

// ExpandSlots replaces @binding(SLOT_*) placeholders with slot numbers.
func ExpandSlots(src string) string { return slotReplacer.Replace(src) }

// Prelude returns the WGSL constant block naming every slot number,
// prepended to every shader Compile builds.
func Prelude() string {
	var b strings.Builder
	for _, s := range Slots {
		fmt.Fprintf(&b, "const %s: u32 = %du;\n", s.Placeholder(), uint32(s))
	}
	return b.String()
}
