// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DOFIndex returns the position of Bernstein function (i, j) in the
// coefficient block of an order-k field.
func DOFIndex(i, j, k int) int {
	// Rows j' < j hold k-j'+1 entries each.
	return j*(k+1) - j*(j-1)/2 + i
}

// BernsteinBasis evaluates all order-k Bernstein functions at lam, in DOF
// order.
func BernsteinBasis(k int, lam [2]float32) []float32 {
	out := make([]float32, NumDOF(k))
	x := float64(lam[0])
	y := float64(lam[1])
	z := 1 - x - y
	d := 0
	for j := 0; j <= k; j++ {
		for i := 0; i <= k-j; i++ {
			out[d] = float32(Multinomial(k, i, j) * ipow(x, k-i-j) * ipow(y, i) * ipow(z, j))
			d++
		}
	}
	return out
}

// Nodes returns the equispaced interpolation nodes of order k in DOF order,
// as barycentric (λ0, λ1). Node (i, j) sits where Bernstein function (i, j)
// peaks: λ = ((k-i-j)/k, i/k).
func Nodes(k int) [][2]float32 {
	out := make([][2]float32, 0, NumDOF(k))
	for j := 0; j <= k; j++ {
		for i := 0; i <= k-j; i++ {
			out = append(out, [2]float32{float32(k-i-j) / float32(k), float32(i) / float32(k)})
		}
	}
	return out
}

// Func evaluates a field at a point and writes one value per component.
type Func func(p [3]float32, out []float32)

// Interpolate builds an order-k field on m whose Bernstein coefficients
// interpolate fn at the equispaced nodes of every triangle.
func Interpolate(m *Mesh, order, components int, fn Func) (*Field, error) {
	if order < 1 {
		return nil, fmt.Errorf("mesh: interpolate: order %d", order)
	}
	if components < 1 {
		return nil, fmt.Errorf("mesh: interpolate: %d components", components)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	nodes := Nodes(order)
	ndof := len(nodes)
	inv, err := inverseVandermonde(order, nodes)
	if err != nil {
		return nil, fmt.Errorf("mesh: interpolate order %d: %w", order, err)
	}

	f := &Field{Components: components, Order: order, Values: make([]float32, len(m.Triangles)*ndof*components)}
	samples := mat.NewDense(ndof, components, nil)
	coef := mat.NewDense(ndof, components, nil)
	val := make([]float32, components)
	for t := range m.Triangles {
		c := m.Corners(t)
		for r, lam := range nodes {
			clear(val)
			fn(barycentric(c, lam), val)
			for k := 0; k < components; k++ {
				samples.Set(r, k, float64(val[k]))
			}
		}
		coef.Mul(inv, samples)
		base := t * ndof * components
		for d := 0; d < ndof; d++ {
			for k := 0; k < components; k++ {
				f.Values[base+d*components+k] = float32(coef.At(d, k))
			}
		}
	}
	slogger().Debug("mesh: interpolated field", "order", order, "components", components, "triangles", len(m.Triangles))
	return f, nil
}

// barycentric maps lam to the point λ0·c0 + λ1·c1 + (1-λ0-λ1)·c2.
func barycentric(c [3][3]float32, lam [2]float32) [3]float32 {
	l2 := 1 - lam[0] - lam[1]
	var p [3]float32
	for k := 0; k < 3; k++ {
		p[k] = lam[0]*c[0][k] + lam[1]*c[1][k] + l2*c[2][k]
	}
	return p
}

// Barycentric is the exported form of the corner interpolation used by the
// evaluation shaders.
func Barycentric(c [3][3]float32, lam [2]float32) [3]float32 { return barycentric(c, lam) }

// inverseVandermonde inverts the matrix of order-k Bernstein functions
// (columns) evaluated at nodes (rows).
func inverseVandermonde(k int, nodes [][2]float32) (*mat.Dense, error) {
	n := len(nodes)
	vand := mat.NewDense(n, n, nil)
	for r, lam := range nodes {
		for c, b := range BernsteinBasis(k, lam) {
			vand.Set(r, c, float64(b))
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(vand); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Multinomial returns k! / (i! j! (k-i-j)!), the coefficient of Bernstein
// function (i, j) of order k.
func Multinomial(k, i, j int) float64 {
	return factorial(k) / (factorial(i) * factorial(j) * factorial(k-i-j))
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

func ipow(x float64, n int) float64 {
	r := 1.0
	for ; n > 0; n-- {
		r *= x
	}
	return r
}

// SampleNodes builds an order-k field whose coefficients are fn sampled at
// the DOF nodes, without solving for Bernstein coefficients. It matches the
// field the GPU grid generator writes and equals Interpolate for order 1.
func SampleNodes(m *Mesh, order, components int, fn Func) (*Field, error) {
	if order < 1 || components < 1 {
		return nil, fmt.Errorf("mesh: sample nodes: order %d, %d components", order, components)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	nodes := Nodes(order)
	f := &Field{Components: components, Order: order, Values: make([]float32, 0, len(m.Triangles)*len(nodes)*components)}
	val := make([]float32, components)
	for t := range m.Triangles {
		c := m.Corners(t)
		for _, lam := range nodes {
			clear(val)
			fn(barycentric(c, lam), val)
			f.Values = append(f.Values, val...)
		}
	}
	return f, nil
}
