// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fieldview renders scalar and vector fields on triangulated 2D
// meshes with a GPU rasterization pipeline.
//
// # Overview
//
// Fields are piecewise polynomials in the Bernstein basis, one block of
// coefficients per triangle, of order 1 to 6. The GPU evaluates them per
// fragment (StrategyDirect), once per covered pixel after a g-buffer pass
// (StrategyDeferred), or linearly from per-vertex values
// (StrategyIndexed).
//
// # Quick Start
//
//	scene, err := fieldview.NewScene(fieldview.WithConfig(cfg))
//	if err != nil {
//	    return err
//	}
//	defer scene.Close()
//
//	m := mesh.Grid(16)
//	f, _ := mesh.Interpolate(m, 3, 1, func(p [3]float32, out []float32) {
//	    out[0] = p[0] * p[1]
//	})
//	_ = scene.ShowField(m, f, fieldview.StrategyDeferred)
//
//	// Once per display refresh:
//	_ = scene.Frame(surfaceView)
//
//	// Or headless:
//	_ = scene.SaveSnapshot("field.png")
//
// # Architecture
//
//   - fieldview: Scene, InputHandler, Config, snapshots
//   - gpu: binding registry, device façade, render objects, grid generator
//   - mesh: mesh and field model, buffer encoding, Bernstein basis, datasets
//
// The host owns the window and the frame loop. It calls Scene.Frame once
// per refresh and attaches Scene.Input to its pointer events.
package fieldview

// Version is the current version of the module.
const Version = "0.1.0"
