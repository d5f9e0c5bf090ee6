// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxOrder is the highest polynomial order with a generated evaluation
// function.
const MaxOrder = 6

// FieldHeaderFloats is the number of float32 header words in front of the
// coefficients.
const FieldHeaderFloats = 2

// NumDOF returns the number of Bernstein coefficients of an order-k field on
// one triangle, (k+1)(k+2)/2.
func NumDOF(order int) int {
	return (order + 1) * (order + 2) / 2
}

// Field is a piecewise polynomial field in the Bernstein basis.
type Field struct {
	// Components is the value dimension (1 for scalar fields, 2 for complex).
	Components int

	// Order is the polynomial order, 1..MaxOrder.
	Order int

	// Values holds NumDOF(Order)*Components values per triangle, components
	// interleaved per degree of freedom.
	Values []float32
}

// BlockLen returns the number of values per triangle.
func (f *Field) BlockLen() int { return NumDOF(f.Order) * f.Components }

// NumTriangles returns the triangle count implied by Values.
func (f *Field) NumTriangles() int {
	if f.BlockLen() == 0 {
		return 0
	}
	return len(f.Values) / f.BlockLen()
}

// Check verifies the header and that Values holds exactly ntrig blocks.
// Order is not limited to MaxOrder here; the renderer reports unsupported
// orders as a shader link failure.
func (f *Field) Check(ntrig int) error {
	if f.Components < 1 {
		return fmt.Errorf("%w: field has %d components", ErrStructuralMismatch, f.Components)
	}
	if f.Order < 1 {
		return fmt.Errorf("%w: field order %d", ErrStructuralMismatch, f.Order)
	}
	want := ntrig * f.BlockLen()
	if len(f.Values) != want {
		return fmt.Errorf("%w: order %d field with %d components needs %d values for %d triangles, got %d",
			ErrStructuralMismatch, f.Order, f.Components, want, ntrig, len(f.Values))
	}
	return nil
}

// Coefficient returns component c of degree of freedom d on triangle t.
func (f *Field) Coefficient(t, d, c int) float32 {
	return f.Values[t*f.BlockLen()+d*f.Components+c]
}

// Eval evaluates component c of the field on triangle t at barycentric
// coordinates lam = (λ0, λ1).
func (f *Field) Eval(t, c int, lam [2]float32) float32 {
	basis := BernsteinBasis(f.Order, lam)
	base := t * f.BlockLen()
	var sum float32
	for d, b := range basis {
		sum += b * f.Values[base+d*f.Components+c]
	}
	return sum
}

// Encode serializes the field into the GPU buffer layout.
func (f *Field) Encode() []byte {
	buf := make([]byte, (FieldHeaderFloats+len(f.Values))*4)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(f.Components)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(f.Order)))
	for i, v := range f.Values {
		binary.LittleEndian.PutUint32(buf[(FieldHeaderFloats+i)*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeField parses a GPU field buffer and checks it against ntrig.
func DecodeField(buf []byte, ntrig int) (*Field, error) {
	if len(buf) < FieldHeaderFloats*4 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: field buffer length %d", ErrStructuralMismatch, len(buf))
	}
	comps := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
	order := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
	if comps != float32(int(comps)) || order != float32(int(order)) {
		return nil, fmt.Errorf("%w: non-integral field header [%g, %g]", ErrStructuralMismatch, comps, order)
	}
	n := len(buf)/4 - FieldHeaderFloats
	f := &Field{Components: int(comps), Order: int(order), Values: make([]float32, n)}
	for i := range f.Values {
		f.Values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[(FieldHeaderFloats+i)*4:]))
	}
	if err := f.Check(ntrig); err != nil {
		return nil, err
	}
	return f, nil
}

// FieldBufferSize returns the byte size of an encoded field.
func FieldBufferSize(ntrig, order, components int) uint64 {
	return uint64(FieldHeaderFloats+ntrig*NumDOF(order)*components) * 4
}
