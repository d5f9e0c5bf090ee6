// Package softraster is a CPU reference renderer for fieldview scenes.
//
// It rasterizes the same triangle records, barycentric conventions and
// colormap lookup as the GPU shaders, for both the direct strategy (one field
// evaluation per covered fragment) and the deferred strategy (a g-buffer of
// triangle ids and barycentric coordinates, shaded in a second pass). It
// backs headless snapshots and serves as the pixel oracle in tests.
//
// Views are affine (w = 1), so screen-space interpolation of barycentric
// coordinates equals the perspective-correct interpolation of the GPU.
package softraster
