package softraster

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/gogpu/fieldview/mesh"
)

// View maps mesh points to clip space and reports clipped points.
// *gpu.Uniforms implements it.
type View interface {
	Project(p [3]float32) [3]float32
	Clipped(p [3]float32) bool
}

// Evaluator returns the scalar field value on triangle t at barycentric
// coordinates lam.
type Evaluator func(t int, lam [2]float32) float32

// Mode selects how multi-component values become a scalar.
type Mode uint8

const (
	ModeComponent Mode = iota
	ModeNorm
	ModeComplexReal
)

// Scalar returns an Evaluator for f under mode. re and im scale the real and
// imaginary parts in ModeComplexReal.
func Scalar(f *mesh.Field, mode Mode, re, im float32) Evaluator {
	return func(t int, lam [2]float32) float32 {
		switch mode {
		case ModeNorm:
			var s float32
			for c := 0; c < f.Components; c++ {
				v := f.Eval(t, c, lam)
				s += v * v
			}
			return math32.Sqrt(s)
		case ModeComplexReal:
			v := re * f.Eval(t, 0, lam)
			if f.Components > 1 {
				v -= im * f.Eval(t, 1, lam)
			}
			return v
		default:
			return f.Eval(t, 0, lam)
		}
	}
}

// Renderer draws into W×H images. Pixel centers sit at half-integer
// coordinates; clip-space y points up.
type Renderer struct {
	W, H int
	View View

	// Lookup maps a normalized value to a color; Min and Max normalize.
	Lookup   func(t float32) color.RGBA
	Min, Max float32

	Background color.RGBA
}

// GBuffer holds, per pixel, the id of the nearest triangle (-1 when
// uncovered), its barycentric coordinates and depth.
type GBuffer struct {
	W, H  int
	ID    []int32
	Lam   [][2]float32
	Depth []float32
}

func newGBuffer(w, h int) *GBuffer {
	g := &GBuffer{W: w, H: h, ID: make([]int32, w*h), Lam: make([][2]float32, w*h), Depth: make([]float32, w*h)}
	for i := range g.ID {
		g.ID[i] = -1
		g.Depth[i] = 1
	}
	return g
}

// Covered returns the number of pixels with a triangle.
func (g *GBuffer) Covered() int {
	n := 0
	for _, id := range g.ID {
		if id >= 0 {
			n++
		}
	}
	return n
}

// fragment is one covered pixel of one triangle.
type fragment struct {
	x, y  int
	lam   [2]float32
	depth float32
}

// rasterize calls emit for every pixel center inside triangle t that passes
// the clipping plane. Pixels on a shared edge belong to both triangles; the
// depth test picks the first one drawn.
func (r *Renderer) rasterize(m *mesh.Mesh, t int, emit func(fragment)) {
	corners := m.Corners(t)
	var sx, sy, sz [3]float32
	for k, p := range corners {
		c := r.View.Project(p)
		sx[k] = (c[0] + 1) * 0.5 * float32(r.W)
		sy[k] = (1 - c[1]) * 0.5 * float32(r.H)
		sz[k] = c[2]
	}
	area := edge(sx[0], sy[0], sx[1], sy[1], sx[2], sy[2])
	if area == 0 {
		return
	}
	x0 := clampInt(int(math32.Floor(min3(sx))), 0, r.W-1)
	x1 := clampInt(int(math32.Ceil(max3(sx))), 0, r.W-1)
	y0 := clampInt(int(math32.Floor(min3(sy))), 0, r.H-1)
	y1 := clampInt(int(math32.Ceil(max3(sy))), 0, r.H-1)
	for y := y0; y <= y1; y++ {
		py := float32(y) + 0.5
		for x := x0; x <= x1; x++ {
			px := float32(x) + 0.5
			l0 := edge(sx[1], sy[1], sx[2], sy[2], px, py) / area
			l1 := edge(sx[2], sy[2], sx[0], sy[0], px, py) / area
			l2 := 1 - l0 - l1
			if l0 < 0 || l1 < 0 || l2 < 0 {
				continue
			}
			lam := [2]float32{l0, l1}
			if r.View.Clipped(mesh.Barycentric(corners, lam)) {
				continue
			}
			z := l0*sz[0] + l1*sz[1] + l2*sz[2]
			if z < 0 || z > 1 {
				continue
			}
			emit(fragment{x: x, y: y, lam: lam, depth: z})
		}
	}
}

// GBuffer runs the first deferred pass: nearest triangle per pixel.
func (r *Renderer) GBuffer(m *mesh.Mesh) *GBuffer {
	g := newGBuffer(r.W, r.H)
	for t := range m.Triangles {
		r.rasterize(m, t, func(f fragment) {
			i := f.y*r.W + f.x
			if f.depth < g.Depth[i] {
				g.Depth[i] = f.depth
				g.ID[i] = int32(t)
				g.Lam[i] = f.lam
			}
		})
	}
	return g
}

// Deferred renders the field through a g-buffer: one evaluation per covered
// pixel.
func (r *Renderer) Deferred(m *mesh.Mesh, eval Evaluator) *image.RGBA {
	img := r.background()
	g := r.GBuffer(m)
	for i, id := range g.ID {
		if id < 0 {
			continue
		}
		img.SetRGBA(i%r.W, i/r.W, r.color(eval(int(id), g.Lam[i])))
	}
	return img
}

// Direct renders the field evaluating every fragment that passes the depth
// test.
func (r *Renderer) Direct(m *mesh.Mesh, eval Evaluator) *image.RGBA {
	img := r.background()
	depth := newGBuffer(r.W, r.H).Depth
	for t := range m.Triangles {
		r.rasterize(m, t, func(f fragment) {
			i := f.y*r.W + f.x
			if f.depth < depth[i] {
				depth[i] = f.depth
				img.SetRGBA(f.x, f.y, r.color(eval(t, f.lam)))
			}
		})
	}
	return img
}

// Mesh renders a mesh without a field: gray fills shaded by region with
// black edges.
func (r *Renderer) Mesh(m *mesh.Mesh) *image.RGBA {
	img := r.background()
	depth := newGBuffer(r.W, r.H).Depth
	for t := range m.Triangles {
		shade := RegionShade(m.Region(t))
		r.rasterize(m, t, func(f fragment) {
			i := f.y*r.W + f.x
			if f.depth < depth[i] {
				depth[i] = f.depth
				img.SetRGBA(f.x, f.y, shade)
			}
		})
	}
	r.Wireframe(img, m)
	return img
}

// RegionShade is the gray level of mesh-only fills for a region index.
func RegionShade(region int32) color.RGBA {
	if region < 0 {
		region = -region
	}
	v := uint8((0.75+0.05*float32(region%4))*255 + 0.5)
	return color.RGBA{v, v, v, 255}
}

// Wireframe draws every triangle edge in black over img.
func (r *Renderer) Wireframe(img *image.RGBA, m *mesh.Mesh) {
	black := color.RGBA{0, 0, 0, 255}
	for t := range m.Triangles {
		c := m.Corners(t)
		for k := 0; k < 3; k++ {
			r.line(img, c[k], c[(k+1)%3], black)
		}
	}
}

// line samples the segment a-b once per pixel step.
func (r *Renderer) line(img *image.RGBA, a, b [3]float32, c color.RGBA) {
	pa, pb := r.View.Project(a), r.View.Project(b)
	ax, ay := (pa[0]+1)*0.5*float32(r.W), (1-pa[1])*0.5*float32(r.H)
	bx, by := (pb[0]+1)*0.5*float32(r.W), (1-pb[1])*0.5*float32(r.H)
	steps := int(math32.Ceil(math32.Max(math32.Abs(bx-ax), math32.Abs(by-ay))))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		s := float32(i) / float32(steps)
		p := [3]float32{a[0] + s*(b[0]-a[0]), a[1] + s*(b[1]-a[1]), a[2] + s*(b[2]-a[2])}
		if r.View.Clipped(p) {
			continue
		}
		x, y := int(ax+s*(bx-ax)), int(ay+s*(by-ay))
		if x >= 0 && x < r.W && y >= 0 && y < r.H {
			img.SetRGBA(x, y, c)
		}
	}
}

func (r *Renderer) color(v float32) color.RGBA {
	if r.Max == r.Min {
		return r.Lookup(0)
	}
	return r.Lookup((v - r.Min) / (r.Max - r.Min))
}

func (r *Renderer) background() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] =
			r.Background.R, r.Background.G, r.Background.B, r.Background.A
	}
	return img
}

// edge is twice the signed area of (a, b, p).
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func min3(v [3]float32) float32 { return math32.Min(v[0], math32.Min(v[1], v[2])) }
func max3(v [3]float32) float32 { return math32.Max(v[0], math32.Max(v[1], v[2])) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
