// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	_ "embed"
	"sync"

	"github.com/gogpu/fieldview/internal/basisgen"
	"github.com/gogpu/fieldview/mesh"
)

// Shader fragments. Compile prepends the slot prelude and joins them.
var (
	//go:embed shaders/common.wgsl
	commonWGSL string

	//go:embed shaders/triangles.wgsl
	trianglesWGSL string

	//go:embed shaders/edges.wgsl
	edgesWGSL string

	//go:embed shaders/mesh.wgsl
	meshWGSL string

	//go:embed shaders/colormap.wgsl
	colormapWGSL string

	//go:embed shaders/field_values.wgsl
	fieldValuesWGSL string

	//go:embed shaders/field.wgsl
	fieldWGSL string

	//go:embed shaders/indexed.wgsl
	indexedWGSL string

	//go:embed shaders/gbuffer.wgsl
	gbufferWGSL string

	//go:embed shaders/deferred.wgsl
	deferredWGSL string

	//go:embed shaders/grid.wgsl
	gridWGSL string
)

var (
	basisOnce sync.Once
	basisWGSL string
)

// basisSource returns the generated Bernstein evaluation functions for
// orders 1..mesh.MaxOrder.
func basisSource() string {
	basisOnce.Do(func() { basisWGSL = basisgen.Generate(mesh.MaxOrder) })
	return basisWGSL
}
