//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func TestCreateBufferExhaustion(t *testing.T) {
	d, _ := newTestDevice(t)
	tests := []struct {
		name string
		size uint64
	}{
		{"zero", 0},
		{"over limit", d.Limits().MaxBufferSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CreateBuffer("big", tt.size, gputypes.BufferUsageStorage)
			if !errors.Is(err, ErrResourceExhaustion) {
				t.Fatalf("err = %v, want ErrResourceExhaustion", err)
			}
			var re *ResourceExhaustionError
			if !errors.As(err, &re) || re.Requested != tt.size || re.Label != "big" {
				t.Errorf("error detail = %+v", re)
			}
		})
	}
}

func TestCreateBufferInitUploads(t *testing.T) {
	d, _ := newTestDevice(t)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf, err := d.CreateBufferInit("data", data, gputypes.BufferUsageStorage)
	if err != nil {
		t.Fatalf("CreateBufferInit: %v", err)
	}
	got := readBuffer(t, d, buf, uint64(len(data)))
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestNewDeviceRejectsNil(t *testing.T) {
	if _, err := NewDevice(nil, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenDeviceHeadless(t *testing.T) {
	d, err := OpenDevice(DeviceConfig{Headless: true})
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	if d.HAL() == nil || d.Queue() == nil {
		t.Fatal("device not opened")
	}
	d.Destroy()
	d.Destroy()
	if d.HAL() != nil {
		t.Error("device kept after Destroy")
	}
}

type fakeProvider struct {
	dev   hal.Device
	queue hal.Queue
}

func (p fakeProvider) HalDevice() any { return p.dev }
func (p fakeProvider) HalQueue() any  { return p.queue }

func TestNewDeviceFromProvider(t *testing.T) {
	dev, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := NewDeviceFromProvider(fakeProvider{dev, queue})
	if err != nil {
		t.Fatalf("NewDeviceFromProvider: %v", err)
	}
	if d.HAL() != dev {
		t.Error("provider device not used")
	}
	d.Destroy()

	if _, err := NewDeviceFromProvider(struct{}{}); err == nil {
		t.Error("expected error for a provider without HAL access")
	}
	if _, err := NewDeviceFromProvider(fakeProvider{}); err == nil {
		t.Error("expected error for a provider without a device")
	}
}

func TestEncoderFinishTwice(t *testing.T) {
	d, _ := newTestDevice(t)
	enc, err := d.NewEncoder("frame", newTestTarget(t, d, 4, 4))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := enc.Finish(); err == nil {
		t.Error("second Finish succeeded")
	}
	if err := d.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestBeginPassClearsDepthOnlyOnClear(t *testing.T) {
	d, rec := newTestDevice(t)
	enc, err := d.NewEncoder("frame", newTestTarget(t, d, 4, 4))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Discard()

	for _, op := range []gputypes.LoadOp{gputypes.LoadOpClear, gputypes.LoadOpLoad} {
		pass, err := enc.beginPass(passSpec{label: "p", loadOp: op, depth: true})
		if err != nil {
			t.Fatalf("beginPass: %v", err)
		}
		pass.End()
	}
	if len(rec.passes) != 2 {
		t.Fatalf("got %d passes", len(rec.passes))
	}
	first, second := rec.passes[0].desc, rec.passes[1].desc
	if first.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpClear || first.DepthStencilAttachment.DepthClearValue != 1 {
		t.Errorf("clear pass depth = %+v", first.DepthStencilAttachment)
	}
	if second.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpLoad {
		t.Errorf("load pass depth op = %v", second.DepthStencilAttachment.DepthLoadOp)
	}
	if first.ColorAttachments[0].ClearValue != White {
		t.Errorf("clear color = %+v, want white", first.ColorAttachments[0].ClearValue)
	}
	if enc.RenderPasses() != 2 {
		t.Errorf("RenderPasses = %d", enc.RenderPasses())
	}
}

func TestBeginPassNeedsDepth(t *testing.T) {
	d, _ := newTestDevice(t)
	target := newTestTarget(t, d, 4, 4)
	target.Depth = nil
	enc, err := d.NewEncoder("frame", target)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Discard()
	if _, err := enc.beginPass(passSpec{label: "p", loadOp: gputypes.LoadOpClear, depth: true}); err == nil {
		t.Error("expected error without a depth attachment")
	}
}
