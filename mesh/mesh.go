// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrStructuralMismatch reports buffers whose lengths disagree with each other
// or with their header (coefficient count, edge count, triangle count).
var ErrStructuralMismatch = errors.New("mesh: structural mismatch")

// Byte sizes of the encoded records.
const (
	VertexStride   = 12
	EdgeStride     = 8
	TriangleStride = 48
	EdgesPerTrig   = 3
)

// Mesh is a triangulated 2D (embedded in 3D) surface.
type Mesh struct {
	// Points are the mesh vertices. Z is usually zero.
	Points [][3]float32

	// Triangles index into Points, counter-clockwise.
	Triangles [][3]uint32

	// Regions holds an optional material/region index per triangle.
	// Empty means every triangle is in region 1.
	Regions []int32
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int { return len(m.Triangles) }

// Validate checks index ranges and the region slice length.
func (m *Mesh) Validate() error {
	if len(m.Points) == 0 {
		return fmt.Errorf("%w: mesh has no points", ErrStructuralMismatch)
	}
	if len(m.Regions) != 0 && len(m.Regions) != len(m.Triangles) {
		return fmt.Errorf("%w: %d regions for %d triangles", ErrStructuralMismatch, len(m.Regions), len(m.Triangles))
	}
	n := uint32(len(m.Points))
	for t, tri := range m.Triangles {
		for _, v := range tri {
			if v >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrStructuralMismatch, t, v, n)
			}
		}
	}
	return nil
}

// Region returns the region index of triangle t.
func (m *Mesh) Region(t int) int32 {
	if len(m.Regions) == 0 {
		return 1
	}
	return m.Regions[t]
}

// Corners returns the three corner positions of triangle t.
func (m *Mesh) Corners(t int) [3][3]float32 {
	tri := m.Triangles[t]
	return [3][3]float32{m.Points[tri[0]], m.Points[tri[1]], m.Points[tri[2]]}
}

// Bounds returns the axis-aligned bounding box of the points.
func (m *Mesh) Bounds() (lo, hi [3]float32) {
	if len(m.Points) == 0 {
		return lo, hi
	}
	lo, hi = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	return lo, hi
}

// Buffers is the encoded mesh buffer triple.
type Buffers struct {
	Vertices  []byte
	Edges     []byte
	Triangles []byte
}

// NumTriangles derives the triangle count from the triangle buffer.
func (b *Buffers) NumTriangles() int { return len(b.Triangles) / TriangleStride }

// NumEdges derives the edge count from the edge buffer.
func (b *Buffers) NumEdges() int { return len(b.Edges) / EdgeStride }

// Check verifies that the edge and triangle buffers describe the same
// triangle count and that no buffer has a partial record.
func (b *Buffers) Check() error {
	switch {
	case len(b.Vertices)%VertexStride != 0:
		return fmt.Errorf("%w: vertex buffer length %d", ErrStructuralMismatch, len(b.Vertices))
	case len(b.Edges)%EdgeStride != 0:
		return fmt.Errorf("%w: edge buffer length %d", ErrStructuralMismatch, len(b.Edges))
	case len(b.Triangles)%TriangleStride != 0:
		return fmt.Errorf("%w: triangle buffer length %d", ErrStructuralMismatch, len(b.Triangles))
	case b.NumEdges() != EdgesPerTrig*b.NumTriangles():
		return fmt.Errorf("%w: %d edges for %d triangles", ErrStructuralMismatch, b.NumEdges(), b.NumTriangles())
	}
	return nil
}

// Encode produces the vertex, edge and triangle buffers for m.
func Encode(m *Mesh) (*Buffers, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b := &Buffers{
		Vertices:  EncodeVertices(m.Points),
		Edges:     EncodeEdges(m.Triangles),
		Triangles: EncodeTriangles(m),
	}
	slogger().Debug("mesh: encoded buffers",
		"points", len(m.Points), "triangles", len(m.Triangles),
		"bytes", len(b.Vertices)+len(b.Edges)+len(b.Triangles))
	return b, nil
}

// EncodeVertices packs points as float32 triples.
func EncodeVertices(points [][3]float32) []byte {
	buf := make([]byte, len(points)*VertexStride)
	for i, p := range points {
		putVec3(buf[i*VertexStride:], p)
	}
	return buf
}

// EncodeEdges emits the three edges (a,b), (b,c), (c,a) of every triangle.
// Shared edges are emitted once per adjacent triangle.
func EncodeEdges(trigs [][3]uint32) []byte {
	buf := make([]byte, len(trigs)*EdgesPerTrig*EdgeStride)
	off := 0
	for _, t := range trigs {
		for e := 0; e < EdgesPerTrig; e++ {
			binary.LittleEndian.PutUint32(buf[off:], t[e])
			binary.LittleEndian.PutUint32(buf[off+4:], t[(e+1)%3])
			off += EdgeStride
		}
	}
	return buf
}

// EncodeTriangles emits one 48-byte record per triangle with the corner
// positions inlined.
func EncodeTriangles(m *Mesh) []byte {
	buf := make([]byte, len(m.Triangles)*TriangleStride)
	for t := range m.Triangles {
		rec := buf[t*TriangleStride:]
		c := m.Corners(t)
		putVec3(rec[0:], c[0])
		putVec3(rec[12:], c[1])
		putVec3(rec[24:], c[2])
		binary.LittleEndian.PutUint32(rec[36:], uint32(m.Region(t)))
	}
	return buf
}

// DecodeTriangle reads the corner positions and region of record t.
func DecodeTriangle(buf []byte, t int) (corners [3][3]float32, region int32) {
	rec := buf[t*TriangleStride:]
	for c := 0; c < 3; c++ {
		corners[c] = getVec3(rec[c*12:])
	}
	return corners, int32(binary.LittleEndian.Uint32(rec[36:]))
}

func putVec3(b []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v[2]))
}

func getVec3(b []byte) [3]float32 {
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}
