// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fieldview

import (
	"sync"

	"github.com/gogpu/gpucontext"
)

// DragState is the state of an InputHandler.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// InputHandler turns left-button drags into view translations. A drag of
// (dx, dy) pixels over a W×H viewport translates by (dx/W·zoom, −dy/H·zoom)
// in clip space.
type InputHandler struct {
	mu       sync.Mutex
	state    DragState
	lastX    float64
	lastY    float64
	width    float64
	height   float64
	zoom     float64
	moveView func(dx, dy float32)
	redraw   RedrawFunc
	closed   bool
}

// NewInputHandler returns an idle handler. moveView applies a translation;
// redraw, if not nil, is called once per applied move.
func NewInputHandler(width, height int, zoom float64, moveView func(dx, dy float32), redraw RedrawFunc) *InputHandler {
	return &InputHandler{
		width:    float64(width),
		height:   float64(height),
		zoom:     zoom,
		moveView: moveView,
		redraw:   redraw,
	}
}

// State returns the current drag state.
func (h *InputHandler) State() DragState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetSize updates the viewport the drag distance is normalized by.
func (h *InputHandler) SetSize(width, height int) {
	h.mu.Lock()
	h.width, h.height = float64(width), float64(height)
	h.mu.Unlock()
}

// HandlePointer processes one pointer event. Events after Close are
// ignored.
func (h *InputHandler) HandlePointer(ev gpucontext.PointerEvent) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	var dx, dy float32
	moved := false
	switch ev.Type {
	case gpucontext.PointerDown:
		if ev.Button == gpucontext.ButtonLeft {
			h.state = Dragging
			h.lastX, h.lastY = ev.X, ev.Y
		}
	case gpucontext.PointerUp, gpucontext.PointerCancel:
		h.state = Idle
	case gpucontext.PointerMove:
		if h.state != Dragging || h.width <= 0 || h.height <= 0 {
			break
		}
		dx = float32((ev.X - h.lastX) / h.width * h.zoom)
		dy = float32(-(ev.Y - h.lastY) / h.height * h.zoom)
		h.lastX, h.lastY = ev.X, ev.Y
		moved = true
	}
	moveView, redraw := h.moveView, h.redraw
	h.mu.Unlock()

	if !moved {
		return
	}
	if moveView != nil {
		moveView(dx, dy)
	}
	if redraw != nil {
		redraw()
	}
}

// Attach registers the handler with src.
func (h *InputHandler) Attach(src gpucontext.PointerEventSource) {
	src.OnPointer(h.HandlePointer)
}

// Close drops the view and redraw hooks. Later events are ignored.
func (h *InputHandler) Close() {
	h.mu.Lock()
	h.closed = true
	h.state = Idle
	h.moveView = nil
	h.redraw = nil
	h.mu.Unlock()
}
