// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every failure in this package is fatal for the operation
// that produced it; nothing is retried.
var (
	// ErrResourceExhaustion reports a buffer or texture allocation failure, or
	// a dispatch beyond the device limits.
	ErrResourceExhaustion = errors.New("gpu: resource exhaustion")

	// ErrAlignmentViolation reports a binary record whose size is not a
	// multiple of the uniform buffer alignment.
	ErrAlignmentViolation = errors.New("gpu: alignment violation")

	// ErrShaderLink reports a missing shader entry point or evaluation
	// function.
	ErrShaderLink = errors.New("gpu: shader link error")

	// ErrShaderCompile reports WGSL that failed to parse or lower.
	ErrShaderCompile = errors.New("gpu: shader compile error")

	// ErrBindingMismatch reports descriptors that collide with, omit, or
	// disagree with the slots a shader declares.
	ErrBindingMismatch = errors.New("gpu: binding mismatch")

	// ErrDestroyed is returned when rendering an object after Destroy.
	ErrDestroyed = errors.New("gpu: render object destroyed")
)

// ResourceExhaustionError carries the size of the failed allocation.
type ResourceExhaustionError struct {
	Label     string
	Requested uint64
	Err       error
}

func (e *ResourceExhaustionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpu: allocate %q (%d bytes): %v", e.Label, e.Requested, e.Err)
	}
	return fmt.Sprintf("gpu: allocate %q (%d bytes): resource exhaustion", e.Label, e.Requested)
}

func (e *ResourceExhaustionError) Unwrap() error { return e.Err }

func (e *ResourceExhaustionError) Is(target error) bool { return target == ErrResourceExhaustion }

// WorkgroupLimitError reports a dispatch that needs more workgroups than the
// device allows in two dimensions.
type WorkgroupLimitError struct {
	Label      string
	Workgroups uint32
	Limit      uint32
}

func (e *WorkgroupLimitError) Error() string {
	return fmt.Sprintf("gpu: dispatch %q needs %d workgroups, above %d per dimension in x and y",
		e.Label, e.Workgroups, e.Limit)
}

func (e *WorkgroupLimitError) Is(target error) bool { return target == ErrResourceExhaustion }

// ShaderLinkError names the entry point that could not be resolved.
type ShaderLinkError struct {
	Shader string
	Entry  string
	// Order is the polynomial order that needed Entry, or 0.
	Order int
}

func (e *ShaderLinkError) Error() string {
	if e.Order > 0 {
		return fmt.Sprintf("gpu: shader %q: no %s for order %d", e.Shader, e.Entry, e.Order)
	}
	return fmt.Sprintf("gpu: shader %q: missing entry point %s", e.Shader, e.Entry)
}

func (e *ShaderLinkError) Is(target error) bool { return target == ErrShaderLink }

// ShaderCompileError carries the compiler diagnostics verbatim.
type ShaderCompileError struct {
	Label       string
	Diagnostics string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("gpu: compile %q:\n%s", e.Label, e.Diagnostics)
}

func (e *ShaderCompileError) Is(target error) bool { return target == ErrShaderCompile }

// BindingMismatchError describes one slot disagreement.
type BindingMismatchError struct {
	Label  string
	Slot   Slot
	Reason string
}

func (e *BindingMismatchError) Error() string {
	return fmt.Sprintf("gpu: %s: slot %d (%s): %s", e.Label, uint32(e.Slot), e.Slot, e.Reason)
}

func (e *BindingMismatchError) Is(target error) bool { return target == ErrBindingMismatch }
