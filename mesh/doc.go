// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mesh holds the CPU-side data model rendered by fieldview: triangle
// meshes, per-triangle Bernstein field coefficients, and the flat binary
// buffers uploaded to the GPU.
//
// Buffer layouts (all little-endian):
//
//	vertices   float32 x3 per point                         (12 bytes)
//	edges      uint32  x2 per edge, 3 edges per triangle    (8 bytes)
//	triangles  float32 x9 positions, int32 region, 2 pad    (48 bytes)
//	field      float32 header [components, order], then per triangle
//	           ndof(order) degrees of freedom x components values
//
// The triangle record inlines its corner positions so that non-indexed
// draws need no index indirection. Its stride is a multiple of 16.
//
// Field coefficients are ordered to match the generated evaluation shader:
//
//	for j := 0; j <= k; j++ {
//		for i := 0; i <= k-j; i++ {
//			// dof (i, j): x^(k-i-j) * y^i * z^j, z = 1-x-y
//		}
//	}
package mesh
