package fieldview

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.device != nil || o.redraw != nil || o.logger != nil {
		t.Errorf("defaultOptions() = %+v, want only a config", o)
	}
	if o.config.Width != DefaultConfig().Width || o.config.Strategy != StrategyDirect {
		t.Errorf("default config = %+v", o.config)
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := testConfig(func(c *Config) { c.Width = 100 })
	var redraws int
	o := defaultOptions()
	for _, opt := range []Option{
		WithConfig(cfg),
		WithRedraw(func() { redraws++ }),
	} {
		opt(&o)
	}
	if o.config.Width != 100 {
		t.Errorf("config width = %d, want 100", o.config.Width)
	}
	if o.redraw == nil {
		t.Fatal("redraw not set")
	}
	o.redraw()
	if redraws != 1 {
		t.Errorf("redraws = %d, want 1", redraws)
	}
}

func TestWithRedrawReachesInput(t *testing.T) {
	var redraws int
	s := newTestScene(t, nil, WithRedraw(func() { redraws++ }))
	in := s.Input()
	in.HandlePointer(gpucontext.PointerEvent{Type: gpucontext.PointerDown, X: 10, Y: 10, Button: gpucontext.ButtonLeft})
	in.HandlePointer(gpucontext.PointerEvent{Type: gpucontext.PointerMove, X: 20, Y: 10, Button: gpucontext.ButtonLeft})
	if redraws != 1 {
		t.Errorf("redraws = %d, want 1", redraws)
	}
}

func TestWithLogger(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	newTestScene(t, nil, WithLogger(l))
	if Logger() != l {
		t.Error("WithLogger did not install the logger")
	}
	if !strings.Contains(buf.String(), "gpu: device opened") {
		t.Errorf("log output %q lacks the device message", buf.String())
	}
}
