// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package devwatch reloads the viewer when its dataset or config changes on
// disk and tells connected browsers to refresh.
package devwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a fixed set of files. The parent directories
// are watched so that editors which replace files by rename are seen.
type Watcher struct {
	Debounce time.Duration
	Log      *slog.Logger

	fs    *fsnotify.Watcher
	files map[string]bool
}

// NewWatcher watches paths.
func NewWatcher(paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("devwatch: nothing to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("devwatch: %w", err)
	}
	w := &Watcher{Debounce: DefaultDebounce, fs: fw, files: make(map[string]bool)}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("devwatch: %w", err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("devwatch: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run calls onChange with the sorted changed paths once per burst of
// changes, until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	return w.loop(ctx, w.fs.Events, w.fs.Errors, onChange)
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error { return w.fs.Close() }

func (w *Watcher) logger() *slog.Logger {
	if w.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Log
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	return err == nil && w.files[abs]
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, onChange func([]string)) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			abs, _ := filepath.Abs(ev.Name)
			pending[abs] = true
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger().Warn("devwatch: watcher error", "err", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			w.logger().Debug("devwatch: change", "paths", paths)
			onChange(paths)
		}
	}
}
