// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// Dataset file layout:
//
//	magic   [4]byte "FVDS"
//	version uint16
//	flags   uint16   (datasetLZ4: payload is an LZ4 frame)
//	payload          (see writePayload)
var datasetMagic = [4]byte{'F', 'V', 'D', 'S'}

const (
	datasetVersion = 1

	datasetLZ4 uint16 = 1 << 0

	sectionRegions uint32 = 1 << 0
	sectionField   uint32 = 1 << 1
)

// ErrBadDataset reports a file that is not a dataset or has an unknown
// version.
var ErrBadDataset = errors.New("mesh: not a fieldview dataset")

// Dataset bundles a mesh with an optional field.
type Dataset struct {
	Mesh  *Mesh
	Field *Field
}

// Check validates the mesh and the field against it.
func (d *Dataset) Check() error {
	if d.Mesh == nil {
		return fmt.Errorf("%w: dataset without mesh", ErrStructuralMismatch)
	}
	if err := d.Mesh.Validate(); err != nil {
		return err
	}
	if d.Field != nil {
		return d.Field.Check(d.Mesh.NumTriangles())
	}
	return nil
}

// WriteDataset writes d to w, LZ4-compressing the payload if compress is set.
func WriteDataset(w io.Writer, d *Dataset, compress bool) error {
	if err := d.Check(); err != nil {
		return err
	}
	var flags uint16
	if compress {
		flags |= datasetLZ4
	}
	hdr := struct {
		Magic   [4]byte
		Version uint16
		Flags   uint16
	}{datasetMagic, datasetVersion, flags}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("mesh: write dataset header: %w", err)
	}
	if !compress {
		return writePayload(w, d)
	}
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return fmt.Errorf("mesh: configure lz4: %w", err)
	}
	if err := writePayload(zw, d); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("mesh: close lz4 stream: %w", err)
	}
	return nil
}

func writePayload(w io.Writer, d *Dataset) error {
	var sections uint32
	if len(d.Mesh.Regions) != 0 {
		sections |= sectionRegions
	}
	if d.Field != nil {
		sections |= sectionField
	}
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	parts := []any{
		uint32(len(d.Mesh.Points)), uint32(len(d.Mesh.Triangles)), sections,
		d.Mesh.Points, d.Mesh.Triangles,
	}
	if sections&sectionRegions != 0 {
		parts = append(parts, d.Mesh.Regions)
	}
	if d.Field != nil {
		parts = append(parts, uint32(d.Field.Components), uint32(d.Field.Order), uint32(len(d.Field.Values)), d.Field.Values)
	}
	for _, p := range parts {
		if err := binary.Write(bw, le, p); err != nil {
			return fmt.Errorf("mesh: write dataset: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("mesh: write dataset: %w", err)
	}
	return nil
}

// ReadDataset reads a dataset written by WriteDataset.
func ReadDataset(r io.Reader) (*Dataset, error) {
	var hdr struct {
		Magic   [4]byte
		Version uint16
		Flags   uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("mesh: read dataset header: %w", err)
	}
	if hdr.Magic != datasetMagic || hdr.Version != datasetVersion {
		return nil, fmt.Errorf("%w: magic %q version %d", ErrBadDataset, hdr.Magic[:], hdr.Version)
	}
	var src io.Reader = bufio.NewReader(r)
	if hdr.Flags&datasetLZ4 != 0 {
		src = lz4.NewReader(src)
	}
	return readPayload(src)
}

func readPayload(r io.Reader) (*Dataset, error) {
	le := binary.LittleEndian
	var counts struct {
		Points, Triangles, Sections uint32
	}
	if err := binary.Read(r, le, &counts); err != nil {
		return nil, fmt.Errorf("mesh: read dataset counts: %w", err)
	}
	m := &Mesh{
		Points:    make([][3]float32, counts.Points),
		Triangles: make([][3]uint32, counts.Triangles),
	}
	if err := binary.Read(r, le, m.Points); err != nil {
		return nil, fmt.Errorf("mesh: read points: %w", err)
	}
	if err := binary.Read(r, le, m.Triangles); err != nil {
		return nil, fmt.Errorf("mesh: read triangles: %w", err)
	}
	if counts.Sections&sectionRegions != 0 {
		m.Regions = make([]int32, counts.Triangles)
		if err := binary.Read(r, le, m.Regions); err != nil {
			return nil, fmt.Errorf("mesh: read regions: %w", err)
		}
	}
	d := &Dataset{Mesh: m}
	if counts.Sections&sectionField != 0 {
		var fh struct {
			Components, Order, Values uint32
		}
		if err := binary.Read(r, le, &fh); err != nil {
			return nil, fmt.Errorf("mesh: read field header: %w", err)
		}
		d.Field = &Field{Components: int(fh.Components), Order: int(fh.Order), Values: make([]float32, fh.Values)}
		if err := binary.Read(r, le, d.Field.Values); err != nil {
			return nil, fmt.Errorf("mesh: read field values: %w", err)
		}
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDataset reads a dataset file from disk.
func LoadDataset(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: load dataset: %w", err)
	}
	d, err := ReadDataset(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mesh: load %s: %w", path, err)
	}
	slogger().Info("mesh: dataset loaded", "path", path,
		"points", len(d.Mesh.Points), "triangles", len(d.Mesh.Triangles), "field", d.Field != nil)
	return d, nil
}

// SaveDataset writes a dataset file to disk.
func SaveDataset(path string, d *Dataset, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mesh: save dataset: %w", err)
	}
	if err := WriteDataset(f, d, compress); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
