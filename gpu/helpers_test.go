//go:build !nogpu

package gpu

import (
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// recorder collects what recording fakes observe.
type recorder struct {
	passes   []*recordedPass
	computes []*recordedCompute
	writes   []recordedWrite
}

type drawCall struct {
	vertices, instances uint32
}

type recordedPass struct {
	desc        *hal.RenderPassDescriptor
	pipelines   int
	bindGroups  int
	draws       []drawCall
	indexed     []drawCall
	indexFormat gputypes.IndexFormat
	ended       bool
}

type recordedCompute struct {
	label      string
	dispatches [][3]uint32
	ended      bool
}

type recordedWrite struct {
	buffer hal.Buffer
	offset uint64
	data   []byte
}

type recordingDevice struct {
	hal.Device
	rec *recorder
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recordingEncoder{CommandEncoder: enc, rec: d.rec}, nil
}

type recordingEncoder struct {
	hal.CommandEncoder
	rec *recorder
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &recordedPass{desc: desc}
	e.rec.passes = append(e.rec.passes, p)
	return &recordingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), pass: p}
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	c := &recordedCompute{label: desc.Label}
	e.rec.computes = append(e.rec.computes, c)
	return &recordingCompute{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), pass: c}
}

type recordingPass struct {
	hal.RenderPassEncoder
	pass *recordedPass
}

func (p *recordingPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.pass.pipelines++
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.pass.bindGroups++
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *recordingPass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.pass.indexFormat = format
	p.RenderPassEncoder.SetIndexBuffer(buffer, format, offset)
}

func (p *recordingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.draws = append(p.pass.draws, drawCall{vertexCount, instanceCount})
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *recordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.indexed = append(p.pass.indexed, drawCall{indexCount, instanceCount})
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *recordingPass) End() {
	p.pass.ended = true
	p.RenderPassEncoder.End()
}

type recordingCompute struct {
	hal.ComputePassEncoder
	pass *recordedCompute
}

func (c *recordingCompute) Dispatch(x, y, z uint32) {
	c.pass.dispatches = append(c.pass.dispatches, [3]uint32{x, y, z})
	c.ComputePassEncoder.Dispatch(x, y, z)
}

func (c *recordingCompute) End() {
	c.pass.ended = true
	c.ComputePassEncoder.End()
}

type recordingQueue struct {
	hal.Queue
	rec *recorder
}

func (q *recordingQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.rec.writes = append(q.rec.writes, recordedWrite{buffer, offset, append([]byte(nil), data...)})
	return q.Queue.WriteBuffer(buffer, offset, data)
}

// newTestDevice wraps a noop device with recording fakes.
func newTestDevice(t *testing.T) (*Device, *recorder) {
	t.Helper()
	return newTestDeviceLimits(t, nil)
}

// newTestDeviceLimits is newTestDevice checking allocations and dispatches
// against limits instead of the defaults.
func newTestDeviceLimits(t *testing.T, limits *gputypes.Limits) (*Device, *recorder) {
	t.Helper()
	dev, queue, cleanup := createNoopDevice(t)
	rec := &recorder{}
	d, err := NewDevice(&recordingDevice{Device: dev, rec: rec}, &recordingQueue{Queue: queue, rec: rec}, limits)
	if err != nil {
		cleanup()
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(func() {
		d.Destroy()
		cleanup()
	})
	return d, rec
}

// readBuffer returns the contents of a noop buffer.
func readBuffer(t *testing.T, d *Device, buf hal.Buffer, size uint64) []byte {
	t.Helper()
	m, err := d.HAL().MapBuffer(buf, 0, size)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	return append([]byte(nil), unsafe.Slice((*byte)(m.Ptr), size)...)
}

// newTestTarget allocates a color and depth attachment of w×h.
func newTestTarget(t *testing.T, d *Device, w, h uint32) RenderTarget {
	t.Helper()
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	_, color, err := d.CreateTexture(&hal.TextureDescriptor{
		Label: "color", Size: size, MipLevelCount: 1, SampleCount: 1,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatBGRA8Unorm,
		Usage:     gputypes.TextureUsageRenderAttachment,
	}, gputypes.TextureViewDimension2D)
	if err != nil {
		t.Fatalf("color target: %v", err)
	}
	_, depth, err := d.CreateTexture(&hal.TextureDescriptor{
		Label: "depth", Size: size, MipLevelCount: 1, SampleCount: 1,
		Dimension: gputypes.TextureDimension2D,
		Format:    DepthFormat,
		Usage:     gputypes.TextureUsageRenderAttachment,
	}, gputypes.TextureViewDimension2D)
	if err != nil {
		t.Fatalf("depth target: %v", err)
	}
	return RenderTarget{Color: color, Depth: depth, Width: w, Height: h, Format: gputypes.TextureFormatBGRA8Unorm}
}

// newTestResources creates the shared uniform block and default colormap.
func newTestResources(t *testing.T, d *Device) Resources {
	t.Helper()
	ub, err := NewUniformBlock(d)
	if err != nil {
		t.Fatalf("NewUniformBlock: %v", err)
	}
	cm, err := NewColormap(d, nil)
	if err != nil {
		t.Fatalf("NewColormap: %v", err)
	}
	t.Cleanup(func() {
		cm.Destroy()
		ub.Destroy()
	})
	return Resources{Uniforms: ub, Colormap: cm}
}
