// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"encoding/binary"
	"fmt"
	"math"
)

// IndexedVertexStride is the size of one indexed vertex: position
// (3×float32) followed by the vertex value (float32).
const IndexedVertexStride = 16

// IndexStride is the size of one index.
const IndexStride = 4

// cornerLam are the barycentric coordinates of the three triangle corners.
var cornerLam = [3][2]float32{{1, 0}, {0, 1}, {0, 0}}

// VertexValues samples component c of f at the mesh vertices. A vertex shared
// by several triangles takes the value of the last one, so f should be
// continuous across triangles.
func VertexValues(m *Mesh, f *Field, c int) ([]float32, error) {
	if err := f.Check(m.NumTriangles()); err != nil {
		return nil, err
	}
	if c < 0 || c >= f.Components {
		return nil, fmt.Errorf("mesh: component %d of a %d-component field", c, f.Components)
	}
	out := make([]float32, len(m.Points))
	for t, tri := range m.Triangles {
		for k, v := range tri {
			out[v] = f.Eval(t, c, cornerLam[k])
		}
	}
	return out, nil
}

// EncodeIndexed packs positions with one value per vertex and the triangle
// index list.
func EncodeIndexed(m *Mesh, values []float32) (vertices, indices []byte, err error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	if len(values) != len(m.Points) {
		return nil, nil, fmt.Errorf("%w: %d vertex values for %d points", ErrStructuralMismatch, len(values), len(m.Points))
	}
	vertices = make([]byte, len(m.Points)*IndexedVertexStride)
	for i, p := range m.Points {
		rec := vertices[i*IndexedVertexStride:]
		putVec3(rec, p)
		binary.LittleEndian.PutUint32(rec[12:], math.Float32bits(values[i]))
	}
	indices = make([]byte, 0, len(m.Triangles)*3*IndexStride)
	for _, tri := range m.Triangles {
		for _, v := range tri {
			indices = binary.LittleEndian.AppendUint32(indices, v)
		}
	}
	return vertices, indices, nil
}
