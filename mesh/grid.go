// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import "github.com/chewxy/math32"

// Grid returns a regular n×n triangulation of the unit square with 2n²
// triangles. Cell (cx, cy) is split along its diagonal into
// (p00, p10, p11) and (p00, p11, p01). The compute generator produces the
// same layout.
func Grid(n int) *Mesh {
	if n < 1 {
		n = 1
	}
	row := n + 1
	m := &Mesh{
		Points:    make([][3]float32, 0, row*row),
		Triangles: make([][3]uint32, 0, 2*n*n),
	}
	for iy := 0; iy <= n; iy++ {
		for ix := 0; ix <= n; ix++ {
			m.Points = append(m.Points, [3]float32{float32(ix) / float32(n), float32(iy) / float32(n), 0})
		}
	}
	for cy := 0; cy < n; cy++ {
		for cx := 0; cx < n; cx++ {
			p00 := uint32(cy*row + cx)
			p10 := p00 + 1
			p01 := p00 + uint32(row)
			p11 := p01 + 1
			m.Triangles = append(m.Triangles, [3]uint32{p00, p10, p11}, [3]uint32{p00, p11, p01})
		}
	}
	return m
}

// UnitSquare is the two-triangle mesh of [0,1]².
func UnitSquare() *Mesh { return Grid(1) }

// GridField is the synthetic field the compute grid generator writes:
// sin(πx)·sin(πy) in component 0.
func GridField(p [3]float32, out []float32) {
	out[0] = math32.Sin(math32.Pi*p[0]) * math32.Sin(math32.Pi*p[1])
}
