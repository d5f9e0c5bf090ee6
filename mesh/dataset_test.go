// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	m := Grid(4)
	m.Regions = make([]int32, m.NumTriangles())
	for i := range m.Regions {
		m.Regions[i] = int32(i % 3)
	}
	f, err := Interpolate(m, 2, 2, func(p [3]float32, out []float32) {
		out[0] = p[0]
		out[1] = p[1] * p[1]
	})
	if err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	return &Dataset{Mesh: m, Field: f}
}

func TestDatasetRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		d := testDataset(t)
		var buf bytes.Buffer
		if err := WriteDataset(&buf, d, compress); err != nil {
			t.Fatalf("compress=%v: WriteDataset failed: %v", compress, err)
		}
		got, err := ReadDataset(&buf)
		if err != nil {
			t.Fatalf("compress=%v: ReadDataset failed: %v", compress, err)
		}
		if len(got.Mesh.Points) != len(d.Mesh.Points) || len(got.Mesh.Triangles) != len(d.Mesh.Triangles) {
			t.Fatalf("compress=%v: mesh size changed", compress)
		}
		if got.Mesh.Regions[5] != d.Mesh.Regions[5] {
			t.Errorf("compress=%v: regions not preserved", compress)
		}
		if got.Field == nil || got.Field.Order != 2 || got.Field.Components != 2 {
			t.Fatalf("compress=%v: field header not preserved: %+v", compress, got.Field)
		}
		for i := range d.Field.Values {
			if got.Field.Values[i] != d.Field.Values[i] {
				t.Fatalf("compress=%v: value %d = %v, want %v", compress, i, got.Field.Values[i], d.Field.Values[i])
			}
		}
	}
}

func TestDatasetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.fvds")
	d := testDataset(t)
	if err := SaveDataset(path, d, true); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	got, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if got.Mesh.NumTriangles() != d.Mesh.NumTriangles() {
		t.Errorf("triangles = %d, want %d", got.Mesh.NumTriangles(), d.Mesh.NumTriangles())
	}
}

func TestDatasetBadMagic(t *testing.T) {
	_, err := ReadDataset(bytes.NewReader([]byte("NOPE\x01\x00\x00\x00")))
	if !errors.Is(err, ErrBadDataset) {
		t.Fatalf("ReadDataset = %v, want ErrBadDataset", err)
	}
}

func TestDatasetRejectsMismatchedField(t *testing.T) {
	d := testDataset(t)
	d.Field.Values = d.Field.Values[:10]
	if err := WriteDataset(&bytes.Buffer{}, d, false); !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("WriteDataset = %v, want ErrStructuralMismatch", err)
	}
}
