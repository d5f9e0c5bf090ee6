// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fieldview/internal/cache"
)

// Shader is a compiled shader module with the reflection data pipelines are
// validated against.
type Shader struct {
	Label  string
	Module hal.ShaderModule
	Source string

	entryPoints map[string]ir.ShaderStage
	functions   map[string]bool
	bindings    map[Slot]BindingKind
}

// HasEntryPoint reports whether name is an entry point of the given stage.
func (s *Shader) HasEntryPoint(name string, stage ir.ShaderStage) bool {
	st, ok := s.entryPoints[name]
	return ok && st == stage
}

// HasFunction reports whether the module defines a function called name.
func (s *Shader) HasFunction(name string) bool { return s.functions[name] }

// Bindings returns the group 0 slots the module declares, in slot order.
func (s *Shader) Bindings() []Slot {
	out := make([]Slot, 0, len(s.bindings))
	for slot := range s.bindings {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CheckBindings compares descriptors against the declared group 0 globals:
// every declared slot must be bound with a matching kind and nothing else
// may be bound.
func (s *Shader) CheckBindings(ds []Descriptor) error {
	sorted, err := sortedDescriptors(s.Label, ds)
	if err != nil {
		return err
	}
	bound := make(map[Slot]bool, len(sorted))
	for _, d := range sorted {
		bound[d.Slot()] = true
		want, ok := s.bindings[d.Slot()]
		if !ok {
			return &BindingMismatchError{Label: s.Label, Slot: d.Slot(), Reason: "bound but not declared by the shader"}
		}
		if want != d.Kind() {
			return &BindingMismatchError{
				Label:  s.Label,
				Slot:   d.Slot(),
				Reason: fmt.Sprintf("shader declares %s, descriptor is %s", want, d.Kind()),
			}
		}
	}
	for _, slot := range s.Bindings() {
		if !bound[slot] {
			return &BindingMismatchError{Label: s.Label, Slot: slot, Reason: "declared by the shader but not bound"}
		}
	}
	return nil
}

func (s *Shader) destroy(dev hal.Device) {
	if s.Module != nil && dev != nil {
		dev.DestroyShaderModule(s.Module)
	}
	s.Module = nil
}

// ComposeSource joins the slot prelude and the fragments and substitutes the
// slot placeholders. It is the exact text Compile hands to the compiler.
func ComposeSource(fragments ...string) string {
	var b strings.Builder
	b.WriteString(Prelude())
	for _, f := range fragments {
		b.WriteByte('\n')
		b.WriteString(f)
	}
	return ExpandSlots(b.String())
}

// Reflect parses and lowers src and collects entry points, functions and
// group 0 bindings. Compile failures carry the diagnostics verbatim.
func Reflect(label, src string) (*Shader, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, &ShaderCompileError{Label: label, Diagnostics: err.Error()}
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, &ShaderCompileError{Label: label, Diagnostics: err.Error()}
	}

	s := &Shader{
		Label:       label,
		Source:      src,
		entryPoints: make(map[string]ir.ShaderStage, len(module.EntryPoints)),
		functions:   make(map[string]bool, len(module.Functions)),
		bindings:    make(map[Slot]BindingKind),
	}
	for _, ep := range module.EntryPoints {
		s.entryPoints[ep.Name] = ep.Stage
	}
	for _, fn := range module.Functions {
		s.functions[fn.Name] = true
	}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil || gv.Binding.Group != 0 {
			continue
		}
		kind, ok := globalKind(module, gv)
		if !ok {
			return nil, &ShaderCompileError{
				Label:       label,
				Diagnostics: fmt.Sprintf("global %q at binding %d has an unsupported resource type", gv.Name, gv.Binding.Binding),
			}
		}
		s.bindings[Slot(gv.Binding.Binding)] = kind
	}
	return s, nil
}

func globalKind(m *ir.Module, gv ir.GlobalVariable) (BindingKind, bool) {
	switch gv.Space {
	case ir.SpaceUniform:
		return KindUniform, true
	case ir.SpaceStorage:
		if gv.Access == ir.StorageRead {
			return KindReadOnlyStorage, true
		}
		return KindStorage, true
	case ir.SpaceHandle:
		if int(gv.Type) >= len(m.Types) {
			return 0, false
		}
		switch m.Types[gv.Type].Inner.(type) {
		case ir.SamplerType:
			return KindSampler, true
		case ir.ImageType:
			return KindTexture, true
		}
	}
	return 0, false
}

// Compile composes the fragments, reflects them, and creates the shader
// module. Modules are cached per composed source; a cached Shader is shared
// and must not be destroyed by callers.
func (d *Device) Compile(label string, fragments ...string) (*Shader, error) {
	src := ComposeSource(fragments...)
	return d.shaders.get(label, src)
}

// shaderCache keeps recently compiled modules. Evicted modules are destroyed;
// pipelines created from them stay valid.
type shaderCache struct {
	dev *Device
	lru *cache.Cache[uint64, *Shader]
}

const shaderCacheSize = 16

func newShaderCache(d *Device) *shaderCache {
	sc := &shaderCache{dev: d}
	sc.lru = cache.New[uint64, *Shader](shaderCacheSize, func(_ uint64, s *Shader) {
		s.destroy(sc.dev.dev)
	})
	return sc
}

func (sc *shaderCache) get(label, src string) (*Shader, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(src))
	return sc.lru.GetOrCreate(h.Sum64(), func() (*Shader, error) {
		s, err := Reflect(label, src)
		if err != nil {
			return nil, err
		}
		module, err := sc.dev.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{WGSL: src},
		})
		if err != nil {
			return nil, &ShaderCompileError{Label: label, Diagnostics: err.Error()}
		}
		s.Module = module
		slogger().Debug("gpu: shader compiled", "label", label, "bytes", len(src), "bindings", len(s.bindings))
		return s, nil
	})
}

func (sc *shaderCache) purge() {
	if sc != nil {
		sc.lru.Purge()
	}
}
