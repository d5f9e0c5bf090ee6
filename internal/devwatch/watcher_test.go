package devwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestLoopDebounces(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fvds")
	b := filepath.Join(dir, "b.toml")
	w := &Watcher{Debounce: 100 * time.Millisecond, files: map[string]bool{a: true, b: true}}

	events := make(chan fsnotify.Event)
	errs := make(chan error)
	calls := make(chan []string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.loop(ctx, events, errs, func(p []string) { calls <- p }) }()

	events <- fsnotify.Event{Name: b, Op: fsnotify.Write}
	events <- fsnotify.Event{Name: a, Op: fsnotify.Write}
	events <- fsnotify.Event{Name: a, Op: fsnotify.Create}
	events <- fsnotify.Event{Name: filepath.Join(dir, "other"), Op: fsnotify.Write}
	events <- fsnotify.Event{Name: a, Op: fsnotify.Chmod}
	errs <- errors.New("ignored")

	select {
	case got := <-calls:
		if len(got) != 2 || got[0] != a || got[1] != b {
			t.Errorf("paths = %v, want [%s %s]", got, a, b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case got := <-calls:
		t.Errorf("second report %v for one burst", got)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("loop returned %v, want context.Canceled", err)
	}
}

func TestLoopStopsOnClosedEvents(t *testing.T) {
	w := &Watcher{files: map[string]bool{}}
	events := make(chan fsnotify.Event)
	close(events)
	if err := w.loop(context.Background(), events, nil, func([]string) {}); err != nil {
		t.Errorf("loop = %v, want nil", err)
	}
}

func TestWatcherSeesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "field.fvds")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.Debounce = 20 * time.Millisecond

	calls := make(chan []string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func(p []string) { calls <- p })

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-calls:
		if len(got) != 1 || got[0] != path {
			t.Errorf("paths = %v, want [%s]", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write not reported")
	}
}

func TestNewWatcherNoPaths(t *testing.T) {
	if _, err := NewWatcher(); err == nil {
		t.Error("expected error")
	}
}
