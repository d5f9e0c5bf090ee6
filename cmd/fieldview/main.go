// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fieldview renders a field on a triangle mesh to an image.
//
// The mesh and field come from a dataset file (-dataset) or a generated
// n×n grid carrying sin(πx)·sin(πy) (-grid, -order). Settings come from an
// optional TOML or YAML file (-config), then FIELDVIEW_* environment
// variables (a .env file is loaded first), then flags.
//
// With -watch the dataset and config are watched; every change re-renders
// the image and sends "reload" to browsers connected to ws://<addr>/ws.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/joho/godotenv"

	"github.com/gogpu/fieldview"
	"github.com/gogpu/fieldview/gpu"
	"github.com/gogpu/fieldview/internal/devwatch"
	"github.com/gogpu/fieldview/mesh"
)

type options struct {
	config   string
	dataset  string
	grid     int
	order    int
	strategy string
	output   string
	useGPU   bool
	watch    bool
	addr     string
}

func main() {
	var (
		o       options
		envFile = flag.String("env", ".env", "environment file loaded before FIELDVIEW_* overrides")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.StringVar(&o.config, "config", "", "TOML or YAML config file")
	flag.StringVar(&o.dataset, "dataset", "", "dataset file (.fvds); empty generates a grid")
	flag.IntVar(&o.grid, "grid", 8, "grid cells per side when no dataset is given")
	flag.IntVar(&o.order, "order", 3, "field order of the generated grid")
	flag.StringVar(&o.strategy, "strategy", "", "direct, deferred or indexed (overrides config)")
	flag.StringVar(&o.output, "o", "fieldview.png", "output image (.png, .tif, .tiff)")
	flag.BoolVar(&o.useGPU, "gpu", false, "also render a frame on the Vulkan backend")
	flag.BoolVar(&o.watch, "watch", false, "re-render when the dataset or config changes")
	flag.StringVar(&o.addr, "addr", "localhost:8090", "websocket address for reload notifications in watch mode")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	fieldview.SetLogger(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("load env", "file", *envFile, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, o, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("fieldview failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, logger *slog.Logger) error {
	dev, err := gpu.OpenDevice(gpu.DeviceConfig{Headless: !o.useGPU})
	if err != nil {
		return err
	}
	defer dev.Destroy()

	if err := render(dev, o); err != nil {
		return err
	}
	if !o.watch {
		return nil
	}
	return watch(ctx, dev, o, logger)
}

func loadConfig(o options) (fieldview.Config, error) {
	cfg := fieldview.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = fieldview.LoadConfig(o.config); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if o.strategy != "" {
		if err := cfg.Strategy.UnmarshalText([]byte(o.strategy)); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// render builds a scene on dev, shows the dataset or grid, optionally
// renders one GPU frame and writes the snapshot.
func render(dev *gpu.Device, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	scene, err := fieldview.NewScene(fieldview.WithConfig(cfg), fieldview.WithDevice(dev))
	if err != nil {
		return err
	}
	defer scene.Close()

	if o.dataset != "" {
		ds, err := mesh.LoadDataset(o.dataset)
		if err != nil {
			return err
		}
		if ds.Field == nil {
			err = scene.ShowMesh(ds.Mesh)
		} else {
			err = scene.ShowField(ds.Mesh, ds.Field, cfg.Strategy)
		}
		if err != nil {
			return err
		}
	} else if err := scene.ShowGrid(o.grid, o.order, cfg.Strategy); err != nil {
		return err
	}

	if o.useGPU {
		if err := gpuFrame(scene, cfg); err != nil {
			return err
		}
	}
	return scene.SaveSnapshot(o.output)
}

// gpuFrame renders one frame into an offscreen color texture.
func gpuFrame(scene *fieldview.Scene, cfg fieldview.Config) error {
	dev := scene.Device()
	tex, view, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen",
		Size:          hal.Extent3D{Width: uint32(cfg.Width), Height: uint32(cfg.Height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        cfg.ColorFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}, gputypes.TextureViewDimension2D)
	if err != nil {
		return err
	}
	defer func() {
		dev.HAL().DestroyTextureView(view)
		dev.HAL().DestroyTexture(tex)
	}()
	start := time.Now()
	if err := scene.Frame(view); err != nil {
		return fmt.Errorf("gpu frame: %w", err)
	}
	fieldview.Logger().Info("gpu frame rendered", "elapsed", time.Since(start))
	return nil
}

func watch(ctx context.Context, dev *gpu.Device, o options, logger *slog.Logger) error {
	var paths []string
	for _, p := range []string{o.dataset, o.config} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return errors.New("-watch needs -dataset or -config")
	}
	w, err := devwatch.NewWatcher(paths...)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Log = logger

	hub := devwatch.NewHub()
	hub.Log = logger
	defer hub.Close()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: o.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("reload server stopped", "err", err)
		}
	}()
	defer srv.Close()

	logger.Info("watching", "paths", paths, "ws", "ws://"+o.addr+"/ws")
	return w.Run(ctx, func(changed []string) {
		if err := render(dev, o); err != nil {
			logger.Warn("reload failed", "changed", changed, "err", err)
			return
		}
		n := hub.Broadcast(devwatch.ReloadMessage)
		logger.Info("reloaded", "changed", changed, "output", o.output, "clients", n)
	})
}
