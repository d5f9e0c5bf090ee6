// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// UniformAlignment is the alignment every uniform and storage record size
// must respect.
const UniformAlignment = 16

// CheckAlignment returns ErrAlignmentViolation unless size is a positive
// multiple of UniformAlignment.
func CheckAlignment(name string, size int) error {
	if size <= 0 || size%UniformAlignment != 0 {
		return fmt.Errorf("%w: %s is %d bytes", ErrAlignmentViolation, name, size)
	}
	return nil
}

// EvalMode selects how multi-component field values become a scalar.
type EvalMode uint32

const (
	// EvalComponent uses component 0.
	EvalComponent EvalMode = iota
	// EvalNorm uses the Euclidean norm over all components.
	EvalNorm
	// EvalComplexReal uses re·v0 − im·v1 with the complex scaling factor.
	EvalComplexReal
)

// FitScale and FitOffset map the unit square onto [-0.9, 0.9]².
const (
	FitScale  float32 = 1.8
	FitOffset float32 = -0.9
)

// Uniforms is the per-frame state shared by every shader.
type Uniforms struct {
	Mat         mgl32.Mat4
	ClipNormal  [3]float32
	ClipDist    float32
	ColormapMin float32
	ColormapMax float32
	ScalingRe   float32
	ScalingIm   float32
	Aspect      float32
	EvalMode    EvalMode
	DoClipping  bool
}

// uniformRecord is the byte layout of the WGSL Uniforms struct.
type uniformRecord struct {
	Mat         [16]float32 // 0
	ClipNormal  [3]float32  // 64
	ClipDist    float32     // 76
	ColormapMin float32     // 80
	ColormapMax float32     // 84
	ScalingRe   float32     // 88
	ScalingIm   float32     // 92
	Aspect      float32     // 96
	EvalMode    uint32      // 100
	DoClipping  uint32      // 104
	_           uint32      // 108
}

// UniformSize is the size of the encoded uniform record.
var UniformSize = binary.Size(uniformRecord{})

// DefaultUniforms returns identity view, clipping off, colormap range [0, 1],
// scaling (1, 0) and aspect 1.
func DefaultUniforms() Uniforms {
	return Uniforms{
		Mat:         mgl32.Ident4(),
		ClipNormal:  [3]float32{1, 0, 0},
		ColormapMax: 1,
		ScalingRe:   1,
		Aspect:      1,
	}
}

// SetView sets a pan/zoom view: points map to scale·p + (tx, ty).
func (u *Uniforms) SetView(scale, tx, ty float32) {
	u.Mat = mgl32.Translate3D(tx, ty, 0).Mul4(mgl32.Scale3D(scale, scale, 1))
}

// FitUnitSquare frames [0,1]² with a small margin.
func (u *Uniforms) FitUnitSquare() { u.SetView(FitScale, FitOffset, FitOffset) }

// Translate moves the view by (dx, dy) in clip space.
func (u *Uniforms) Translate(dx, dy float32) {
	u.Mat = mgl32.Translate3D(dx, dy, 0).Mul4(u.Mat)
}

// Translation returns the clip-space translation of the view.
func (u *Uniforms) Translation() (x, y float32) { return u.Mat[12], u.Mat[13] }

// SetColormapRange sets the values mapped to the first and last colormap
// entries.
func (u *Uniforms) SetColormapRange(lo, hi float32) {
	u.ColormapMin = lo
	u.ColormapMax = hi
}

// SetClipPlane discards fragments with dot(p, normal) > dist when enabled.
func (u *Uniforms) SetClipPlane(normal [3]float32, dist float32, enabled bool) {
	u.ClipNormal = normal
	u.ClipDist = dist
	u.DoClipping = enabled
}

// Project maps a mesh point to clip space the way the vertex shaders do.
func (u *Uniforms) Project(p [3]float32) [3]float32 {
	v := u.Mat.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	x, y := v[0]/v[3], v[1]/v[3]
	if u.Aspect != 0 {
		x /= u.Aspect
	}
	return [3]float32{x, y, 0.5 + 0.5*v[2]/v[3]}
}

// Clipped reports whether the clipping plane removes p.
func (u *Uniforms) Clipped(p [3]float32) bool {
	if !u.DoClipping {
		return false
	}
	n := u.ClipNormal
	return n[0]*p[0]+n[1]*p[1]+n[2]*p[2] > u.ClipDist
}

// Bytes encodes the record. The length is always UniformSize.
func (u *Uniforms) Bytes() []byte {
	rec := uniformRecord{
		Mat:         u.Mat,
		ClipNormal:  u.ClipNormal,
		ClipDist:    u.ClipDist,
		ColormapMin: u.ColormapMin,
		ColormapMax: u.ColormapMax,
		ScalingRe:   u.ScalingRe,
		ScalingIm:   u.ScalingIm,
		Aspect:      u.Aspect,
		EvalMode:    uint32(u.EvalMode),
	}
	if u.DoClipping {
		rec.DoClipping = 1
	}
	var buf bytes.Buffer
	buf.Grow(UniformSize)
	_ = binary.Write(&buf, binary.LittleEndian, &rec)
	return buf.Bytes()
}

// UniformBlock owns the GPU copy of Uniforms.
type UniformBlock struct {
	Uniforms

	dev *Device
	buf hal.Buffer
}

// NewUniformBlock allocates the uniform buffer with default contents.
func NewUniformBlock(dev *Device) (*UniformBlock, error) {
	if err := CheckAlignment("uniform record", UniformSize); err != nil {
		return nil, err
	}
	buf, err := dev.CreateBuffer("uniforms", uint64(UniformSize),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	ub := &UniformBlock{Uniforms: DefaultUniforms(), dev: dev, buf: buf}
	if err := ub.UpdateBuffer(); err != nil {
		dev.dev.DestroyBuffer(buf)
		return nil, err
	}
	return ub, nil
}

// UpdateBuffer uploads the whole record.
func (ub *UniformBlock) UpdateBuffer() error {
	if ub.buf == nil {
		return ErrDestroyed
	}
	if err := ub.dev.queue.WriteBuffer(ub.buf, 0, ub.Bytes()); err != nil {
		return fmt.Errorf("gpu: upload uniforms: %w", err)
	}
	return nil
}

// Buffer returns the uniform buffer.
func (ub *UniformBlock) Buffer() hal.Buffer { return ub.buf }

// Descriptor binds the block at SlotUniforms for vertex and fragment stages.
func (ub *UniformBlock) Descriptor() Descriptor {
	return UniformBinding{
		At:         SlotUniforms,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     ub.buf,
		Size:       uint64(UniformSize),
	}
}

// Destroy releases the buffer. Safe to call twice.
func (ub *UniformBlock) Destroy() {
	if ub.buf != nil && ub.dev.dev != nil {
		ub.dev.dev.DestroyBuffer(ub.buf)
	}
	ub.buf = nil
}
