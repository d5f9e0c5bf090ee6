// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fieldview

import (
	"log/slog"

	"github.com/gogpu/fieldview/gpu"
)

// RedrawFunc asks the host to schedule a frame.
type RedrawFunc func()

// Option configures a Scene during creation.
//
// Example:
//
//	scene, err := fieldview.NewScene(
//	    fieldview.WithConfig(cfg),
//	    fieldview.WithDevice(dev),
//	    fieldview.WithRedraw(app.RequestRedraw),
//	)
type Option func(*sceneOptions)

// sceneOptions holds optional configuration for Scene creation.
type sceneOptions struct {
	config Config
	device *gpu.Device
	redraw RedrawFunc
	logger *slog.Logger
}

func defaultOptions() sceneOptions {
	return sceneOptions{config: DefaultConfig()}
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *sceneOptions) {
		o.config = cfg
	}
}

// WithDevice renders on an existing device. The scene does not destroy it.
// Without this option the scene opens and owns a device.
func WithDevice(dev *gpu.Device) Option {
	return func(o *sceneOptions) {
		o.device = dev
	}
}

// WithRedraw sets the hook the input handler calls after changing the view.
func WithRedraw(fn RedrawFunc) Option {
	return func(o *sceneOptions) {
		o.redraw = fn
	}
}

// WithLogger installs l through SetLogger before the scene is built.
func WithLogger(l *slog.Logger) Option {
	return func(o *sceneOptions) {
		o.logger = l
	}
}
