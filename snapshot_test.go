package fieldview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/gogpu/fieldview/internal/legend"
	"github.com/gogpu/fieldview/mesh"
)

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestSnapshotNothingShown(t *testing.T) {
	s := newTestScene(t, nil)
	if _, err := s.Snapshot(); !errors.Is(err, ErrNothingShown) {
		t.Errorf("Snapshot = %v, want ErrNothingShown", err)
	}
}

func TestSnapshotLinearField(t *testing.T) {
	s := newTestScene(t, func(c *Config) { c.Wireframe = false })
	m := mesh.Grid(4)
	if err := s.ShowField(m, linearField(t, m, 1), StrategyDirect); err != nil {
		t.Fatal(err)
	}
	img, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 64) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{5, 20, color.RGBA{0, 0, 255, 255}},
		{58, 20, color.RGBA{255, 0, 0, 255}},
		{0, 0, color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestSnapshotStrategiesAgree(t *testing.T) {
	m := mesh.Grid(3)
	f, err := mesh.Interpolate(m, 2, 1, func(p [3]float32, out []float32) { out[0] = p[0] * p[1] })
	if err != nil {
		t.Fatal(err)
	}
	images := make(map[Strategy]*image.RGBA)
	for _, strategy := range []Strategy{StrategyDirect, StrategyDeferred} {
		s := newTestScene(t, func(c *Config) { c.Supersample = 2 })
		if err := s.ShowField(m, f, strategy); err != nil {
			t.Fatal(err)
		}
		img, err := s.Snapshot()
		if err != nil {
			t.Fatalf("%v: %v", strategy, err)
		}
		images[strategy] = img
	}
	a, b := images[StrategyDirect], images[StrategyDeferred]
	for i := range a.Pix {
		if absDiff(a.Pix[i], b.Pix[i]) > 1 {
			t.Fatalf("byte %d: direct %d, deferred %d", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestSnapshotMesh(t *testing.T) {
	s := newTestScene(t, nil)
	if err := s.ShowMesh(mesh.UnitSquare()); err != nil {
		t.Fatal(err)
	}
	img, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("corner = %v, want background", got)
	}
	gray := img.RGBAAt(44, 40)
	if gray.R != gray.G || gray.R < 180 || gray.R > 240 {
		t.Errorf("fill = %v, want light gray", gray)
	}
}

func TestSnapshotLegend(t *testing.T) {
	s := newTestScene(t, func(c *Config) {
		c.Legend = true
		c.LegendLang = "de"
	})
	m := mesh.Grid(2)
	if err := s.ShowField(m, linearField(t, m, 1), StrategyIndexed); err != nil {
		t.Fatal(err)
	}
	img, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := 64 + legend.Height(LegendSize) + 2*legendMargin
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != want {
		t.Errorf("bounds = %v, want 64x%d", img.Bounds(), want)
	}
	bar := img.RGBAAt(legendMargin, 64+legendMargin+1)
	if bar != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("colorbar start = %v, want blue", bar)
	}
}

func TestSaveSnapshot(t *testing.T) {
	s := newTestScene(t, nil)
	if err := s.ShowMesh(mesh.Grid(2)); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, name := range []string{"mesh.png", "mesh.tiff", "mesh.tif"} {
		path := filepath.Join(dir, name)
		if err := s.SaveSnapshot(path); err != nil {
			t.Fatalf("SaveSnapshot(%s): %v", name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var img image.Image
		if filepath.Ext(name) == ".png" {
			img, err = png.Decode(bytes.NewReader(data))
		} else {
			img, err = tiff.Decode(bytes.NewReader(data))
		}
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
			t.Errorf("%s: bounds %v", name, img.Bounds())
		}
	}
	if err := s.SaveSnapshot(filepath.Join(dir, "mesh.bmp")); err == nil {
		t.Error("unsupported extension accepted")
	}
	if err := WriteImage(&bytes.Buffer{}, image.NewRGBA(image.Rect(0, 0, 1, 1)), "gif"); err == nil {
		t.Error("unsupported format accepted")
	}
}
