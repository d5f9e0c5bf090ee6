//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/fieldview/mesh"
)

// linearX is the order-1 field f(x, y) = x on m.
func linearX(t *testing.T, m *mesh.Mesh) *mesh.Field {
	t.Helper()
	f, err := mesh.Interpolate(m, 1, 1, func(p [3]float32, out []float32) { out[0] = p[0] })
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	return f
}

// renderOnce records obj into a fresh encoder and submits it.
func renderOnce(t *testing.T, d *Device, target RenderTarget, obj RenderObject, loadOp gputypes.LoadOp) error {
	t.Helper()
	enc, err := d.NewEncoder("frame", target)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := obj.Render(enc, loadOp); err != nil {
		enc.Discard()
		return err
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := d.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return nil
}

func TestMeshObjectDraws(t *testing.T) {
	d, rec := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.Grid(3)

	obj, err := NewMeshObject(d, res, Source{Mesh: m})
	if err != nil {
		t.Fatalf("NewMeshObject: %v", err)
	}
	defer obj.Destroy()
	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpClear); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(rec.passes) != 1 {
		t.Fatalf("got %d passes, want 1", len(rec.passes))
	}
	p := rec.passes[0]
	ntrig := uint32(m.NumTriangles())
	want := []drawCall{{3, ntrig}, {2, 3 * ntrig}}
	if len(p.draws) != len(want) {
		t.Fatalf("draws = %v, want %v", p.draws, want)
	}
	for i := range want {
		if p.draws[i] != want[i] {
			t.Errorf("draw %d = %v, want %v", i, p.draws[i], want[i])
		}
	}
	if p.pipelines != 2 || !p.ended {
		t.Errorf("pipelines = %d, ended = %v", p.pipelines, p.ended)
	}
	if p.desc.ColorAttachments[0].LoadOp != gputypes.LoadOpClear || p.desc.DepthStencilAttachment == nil {
		t.Errorf("pass descriptor = %+v", p.desc)
	}
}

func TestFieldObjectDraws(t *testing.T) {
	d, rec := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()

	obj, err := NewFieldObject(d, res, Source{Mesh: m, Field: linearX(t, m)})
	if err != nil {
		t.Fatalf("NewFieldObject: %v", err)
	}
	defer obj.Destroy()
	if obj.Order() != 1 {
		t.Errorf("Order = %d", obj.Order())
	}
	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpClear); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rec.passes) != 1 || len(rec.passes[0].draws) != 1 {
		t.Fatalf("passes = %d", len(rec.passes))
	}
	if got := rec.passes[0].draws[0]; got != (drawCall{3, 2}) {
		t.Errorf("draw = %v, want {3 2}", got)
	}
}

func TestFieldObjectStructuralMismatch(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()
	f := linearX(t, m)
	f.Values = f.Values[:len(f.Values)-1]

	_, err := NewFieldObject(d, res, Source{Mesh: m, Field: f})
	if !errors.Is(err, mesh.ErrStructuralMismatch) {
		t.Fatalf("err = %v, want ErrStructuralMismatch", err)
	}

	nb, err := UploadMesh(d, m, nil)
	if err != nil {
		t.Fatalf("UploadMesh: %v", err)
	}
	defer nb.Destroy()
	if _, err := NewFieldObject(d, res, Source{Buffers: nb}); !errors.Is(err, mesh.ErrStructuralMismatch) {
		t.Fatalf("buffers without field: err = %v, want ErrStructuralMismatch", err)
	}
}

func TestFieldObjectUnsupportedOrder(t *testing.T) {
	d, rec := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()
	order := mesh.MaxOrder + 1
	f := &mesh.Field{Components: 1, Order: order, Values: make([]float32, m.NumTriangles()*mesh.NumDOF(order))}

	_, err := NewFieldObject(d, res, Source{Mesh: m, Field: f})
	if !errors.Is(err, ErrShaderLink) {
		t.Fatalf("err = %v, want ErrShaderLink", err)
	}
	var le *ShaderLinkError
	if !errors.As(err, &le) || le.Order != order {
		t.Errorf("link error = %+v", le)
	}
	if len(rec.passes) != 0 {
		t.Errorf("recorded %d passes before failing", len(rec.passes))
	}
}

func TestIndexedObjectDraws(t *testing.T) {
	d, rec := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.Grid(2)
	values, err := mesh.VertexValues(m, linearX(t, m), 0)
	if err != nil {
		t.Fatalf("VertexValues: %v", err)
	}

	obj, err := NewIndexedObject(d, res, m, values)
	if err != nil {
		t.Fatalf("NewIndexedObject: %v", err)
	}
	defer obj.Destroy()
	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpClear); err != nil {
		t.Fatalf("Render: %v", err)
	}
	p := rec.passes[0]
	if len(p.indexed) != 1 || p.indexed[0] != (drawCall{3 * uint32(m.NumTriangles()), 1}) {
		t.Errorf("indexed draws = %v", p.indexed)
	}
	if p.indexFormat != gputypes.IndexFormatUint32 {
		t.Errorf("index format = %v", p.indexFormat)
	}
	if len(p.draws) != 0 {
		t.Errorf("unexpected non-indexed draws %v", p.draws)
	}
}

func TestIndexedObjectValueCount(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()
	if _, err := NewIndexedObject(d, res, m, []float32{1, 2}); !errors.Is(err, mesh.ErrStructuralMismatch) {
		t.Fatalf("err = %v, want ErrStructuralMismatch", err)
	}
}

func TestDeferredObjectPasses(t *testing.T) {
	d, rec := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()

	obj, err := NewDeferredObject(d, res, Source{Mesh: m, Field: linearX(t, m)}, 8, 8)
	if err != nil {
		t.Fatalf("NewDeferredObject: %v", err)
	}
	defer obj.Destroy()
	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpClear); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rec.passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(rec.passes))
	}

	geom, shade := rec.passes[0], rec.passes[1]
	ca := geom.desc.ColorAttachments[0]
	if ca.LoadOp != gputypes.LoadOpClear || ca.ClearValue != GBufferSentinel {
		t.Errorf("g-buffer attachment = %+v", ca)
	}
	if geom.desc.DepthStencilAttachment == nil {
		t.Error("g-buffer pass has no depth")
	}
	if len(geom.draws) != 1 || geom.draws[0] != (drawCall{3, 2}) {
		t.Errorf("g-buffer draws = %v", geom.draws)
	}
	if shade.desc.DepthStencilAttachment != nil {
		t.Error("shading pass has a depth attachment")
	}
	if len(shade.draws) != 1 || shade.draws[0] != (drawCall{4, 1}) {
		t.Errorf("shading draws = %v", shade.draws)
	}
}

func TestDeferredObjectResize(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()

	obj, err := NewDeferredObject(d, res, Source{Mesh: m, Field: linearX(t, m)}, 8, 8)
	if err != nil {
		t.Fatalf("NewDeferredObject: %v", err)
	}
	defer obj.Destroy()

	if err := renderOnce(t, d, newTestTarget(t, d, 16, 8), obj, gputypes.LoadOpClear); err == nil {
		t.Error("rendered into a target of the wrong size")
	}
	if err := obj.Resize(16, 8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := obj.Size(); w != 16 || h != 8 {
		t.Errorf("Size = %dx%d", w, h)
	}
	if err := renderOnce(t, d, newTestTarget(t, d, 16, 8), obj, gputypes.LoadOpClear); err != nil {
		t.Fatalf("Render after Resize: %v", err)
	}
	if err := obj.Resize(0, 8); err == nil {
		t.Error("Resize to zero width succeeded")
	}
}

func TestDeferredObjectResizeFailureKeepsState(t *testing.T) {
	limits := gputypes.DefaultLimits()
	limits.MaxTextureDimension2D = 32
	d, rec := newTestDeviceLimits(t, &limits)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()

	obj, err := NewDeferredObject(d, res, Source{Mesh: m, Field: linearX(t, m)}, 8, 8)
	if err != nil {
		t.Fatalf("NewDeferredObject: %v", err)
	}
	defer obj.Destroy()

	if err := obj.Resize(64, 8); !errors.Is(err, ErrResourceExhaustion) {
		t.Fatalf("Resize beyond the texture limit: %v, want ErrResourceExhaustion", err)
	}
	if w, h := obj.Size(); w != 8 || h != 8 {
		t.Errorf("Size after failed Resize = %dx%d, want 8x8", w, h)
	}
	if obj.gview == nil || obj.gbuffer == nil || len(obj.shade.pipelines) != 1 {
		t.Fatalf("failed Resize dropped the g-buffer or the shading pass")
	}

	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpClear); err != nil {
		t.Fatalf("Render after failed Resize: %v", err)
	}
	if len(rec.passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(rec.passes))
	}
	gpass := rec.passes[0].desc.ColorAttachments[0]
	if gpass.View == nil || gpass.ClearValue != GBufferSentinel {
		t.Errorf("g-buffer pass attachment = %+v", gpass)
	}
	if len(rec.passes[1].draws) != 1 || rec.passes[1].draws[0] != (drawCall{4, 1}) {
		t.Errorf("shading draws = %v", rec.passes[1].draws)
	}
}

func TestDeferredObjectRenderWithoutGBuffer(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()

	obj, err := NewDeferredObject(d, res, Source{Mesh: m, Field: linearX(t, m)}, 8, 8)
	if err != nil {
		t.Fatalf("NewDeferredObject: %v", err)
	}
	defer obj.Destroy()
	obj.shade.release()
	obj.releaseGBuffer()
	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpClear); err == nil {
		t.Error("rendered without a g-buffer")
	}
}

func TestDeferredObjectTooManyTriangles(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	nb := newNamedBuffers(d, MaxDeferredTriangles+1, false)

	_, err := NewDeferredObject(d, res, Source{Buffers: nb}, 8, 8)
	if !errors.Is(err, ErrResourceExhaustion) {
		t.Fatalf("err = %v, want ErrResourceExhaustion", err)
	}
}

func TestWireframeObjectDraws(t *testing.T) {
	d, rec := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.Grid(2)

	nb, err := UploadMesh(d, m, nil)
	if err != nil {
		t.Fatalf("UploadMesh: %v", err)
	}
	defer nb.Destroy()
	obj, err := NewWireframeObject(d, res, Source{Buffers: nb})
	if err != nil {
		t.Fatalf("NewWireframeObject: %v", err)
	}
	if err := renderOnce(t, d, newTestTarget(t, d, 8, 8), obj, gputypes.LoadOpLoad); err != nil {
		t.Fatalf("Render: %v", err)
	}
	p := rec.passes[0]
	if p.desc.ColorAttachments[0].LoadOp != gputypes.LoadOpLoad {
		t.Errorf("wireframe load op = %v", p.desc.ColorAttachments[0].LoadOp)
	}
	if p.desc.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpLoad {
		t.Errorf("wireframe depth load op = %v", p.desc.DepthStencilAttachment.DepthLoadOp)
	}
	if len(p.draws) != 1 || p.draws[0] != (drawCall{2, 3 * uint32(m.NumTriangles())}) {
		t.Errorf("draws = %v", p.draws)
	}

	obj.Destroy()
	if !nb.Has(SlotVertices, SlotEdges) {
		t.Error("wireframe destroyed buffers it does not own")
	}
}

func TestRenderAfterDestroy(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	m := mesh.UnitSquare()
	target := newTestTarget(t, d, 8, 8)

	objects := map[string]func() (RenderObject, error){
		"mesh": func() (RenderObject, error) { return NewMeshObject(d, res, Source{Mesh: m}) },
		"field": func() (RenderObject, error) {
			return NewFieldObject(d, res, Source{Mesh: m, Field: linearX(t, m)})
		},
		"deferred": func() (RenderObject, error) {
			return NewDeferredObject(d, res, Source{Mesh: m, Field: linearX(t, m)}, 8, 8)
		},
		"wireframe": func() (RenderObject, error) { return NewWireframeObject(d, res, Source{Mesh: m}) },
		"indexed": func() (RenderObject, error) {
			return NewIndexedObject(d, res, m, make([]float32, len(m.Points)))
		},
	}
	for name, create := range objects {
		t.Run(name, func(t *testing.T) {
			obj, err := create()
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			obj.Destroy()
			obj.Destroy()
			if err := renderOnce(t, d, target, obj, gputypes.LoadOpClear); !errors.Is(err, ErrDestroyed) {
				t.Errorf("Render after Destroy = %v, want ErrDestroyed", err)
			}
		})
	}
}

func TestEmptyMeshRejected(t *testing.T) {
	d, _ := newTestDevice(t)
	res := newTestResources(t, d)
	if _, err := NewMeshObject(d, res, Source{Mesh: &mesh.Mesh{}}); !errors.Is(err, mesh.ErrStructuralMismatch) {
		t.Fatalf("err = %v, want ErrStructuralMismatch", err)
	}
}
