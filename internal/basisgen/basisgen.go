// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package basisgen emits WGSL functions that evaluate Bernstein fields on
// triangles.
//
// For each order p it generates
//
//	fn evalTrigP{p}Basis(lam: vec2<f32>) -> array<f32, ndof>
//	fn evalTrigP{p}(offset: u32, stride: u32, lam: vec2<f32>) -> f32
//
// plus a dispatcher that reads the field header from the storage buffer:
//
//	fn evalTrig(id: u32, icomp: u32, lam: vec2<f32>) -> f32
//
// The generated source references the storage buffer by name
// (ValuesBuffer) and must be compiled together with the shader that
// declares it.
package basisgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/fieldview/mesh"
)

// ValuesBuffer is the storage buffer name the generated code reads.
const ValuesBuffer = "trig_function_values"

// HeaderFloats is the number of header words before the coefficients.
const HeaderFloats = 2

// BasisFunc returns the basis function name for order p.
func BasisFunc(p int) string { return "evalTrigP" + strconv.Itoa(p) + "Basis" }

// EvalFunc returns the evaluation function name for order p.
func EvalFunc(p int) string { return "evalTrigP" + strconv.Itoa(p) }

// Dispatcher is the name of the order-switching entry function.
const Dispatcher = "evalTrig"

// Generate returns WGSL for orders 1..maxOrder and the dispatcher.
func Generate(maxOrder int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Bernstein evaluation for orders 1..%d. Generated, do not edit.\n\n", maxOrder)
	fmt.Fprintf(&b, "const VALUES_OFFSET: u32 = %du;\n\n", HeaderFloats)
	for p := 1; p <= maxOrder; p++ {
		writeBasis(&b, p)
		writeEval(&b, p)
	}
	writeDispatcher(&b, maxOrder)
	return b.String()
}

func writeBasis(b *strings.Builder, p int) {
	n := mesh.NumDOF(p)
	fmt.Fprintf(b, "fn %s(lam: vec2<f32>) -> array<f32, %d> {\n", BasisFunc(p), n)
	b.WriteString("    let x = lam.x;\n")
	b.WriteString("    let y = lam.y;\n")
	b.WriteString("    let z = 1.0 - lam.x - lam.y;\n")
	fmt.Fprintf(b, "    var basis: array<f32, %d>;\n", n)
	d := 0
	for j := 0; j <= p; j++ {
		for i := 0; i <= p-j; i++ {
			fmt.Fprintf(b, "    basis[%d] = %s;\n", d, term(p, i, j))
			d++
		}
	}
	b.WriteString("    return basis;\n}\n\n")
}

// term renders n!/(i! j! (n-i-j)!) · x^(n-i-j) · y^i · z^j.
func term(n, i, j int) string {
	factors := []string{formatFloat(mesh.Multinomial(n, i, j))}
	factors = appendPower(factors, "x", n-i-j)
	factors = appendPower(factors, "y", i)
	factors = appendPower(factors, "z", j)
	return strings.Join(factors, " * ")
}

func appendPower(f []string, v string, e int) []string {
	for ; e > 0; e-- {
		f = append(f, v)
	}
	return f
}

func writeEval(b *strings.Builder, p int) {
	fmt.Fprintf(b, "fn %s(offset: u32, stride: u32, lam: vec2<f32>) -> f32 {\n", EvalFunc(p))
	fmt.Fprintf(b, "    var basis = %s(lam);\n", BasisFunc(p))
	b.WriteString("    var value = 0.0;\n")
	for d := 0; d < mesh.NumDOF(p); d++ {
		fmt.Fprintf(b, "    value = value + basis[%d] * %s[offset + %du * stride];\n", d, ValuesBuffer, d)
	}
	b.WriteString("    return value;\n}\n\n")
}

func writeDispatcher(b *strings.Builder, maxOrder int) {
	fmt.Fprintf(b, "fn %s(id: u32, icomp: u32, lam: vec2<f32>) -> f32 {\n", Dispatcher)
	fmt.Fprintf(b, "    let ncomp = u32(%s[0]);\n", ValuesBuffer)
	fmt.Fprintf(b, "    let order = u32(%s[1]);\n", ValuesBuffer)
	b.WriteString("    switch order {\n")
	for p := 1; p <= maxOrder; p++ {
		fmt.Fprintf(b, "        case %du: {\n", p)
		fmt.Fprintf(b, "            return %s(VALUES_OFFSET + id * %du * ncomp + icomp, ncomp, lam);\n", EvalFunc(p), mesh.NumDOF(p))
		b.WriteString("        }\n")
	}
	b.WriteString("        default: {\n            return 0.0;\n        }\n    }\n}\n")
}

// formatFloat always produces a WGSL float literal ("3.0", not "3").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
