// Package legend draws a colorbar with localized min/max labels onto
// snapshot images.
package legend

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	gtlang "github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Legend describes a horizontal colorbar from Min to Max.
type Legend struct {
	// Lookup maps [0, 1] to a color.
	Lookup   func(t float32) color.RGBA
	Min, Max float32

	// Lang selects number formatting. The zero tag formats as English.
	Lang language.Tag

	// Size is the label font size in pixels. Zero means 12.
	Size float64

	// Precision is the number of fraction digits. Zero means 2.
	Precision int
}

// Height is the strip height Draw needs for a font size.
func Height(size float64) int {
	if size == 0 {
		size = 12
	}
	return int(2*size + 0.5)
}

var (
	fontOnce  sync.Once
	shapeFont *gtfont.Font
	drawFont  *opentype.Font
	fontErr   error
)

func loadFonts() error {
	fontOnce.Do(func() {
		face, err := gtfont.ParseTTF(bytes.NewReader(goregular.TTF))
		if err != nil {
			fontErr = fmt.Errorf("legend: parse font: %w", err)
			return
		}
		shapeFont = face.Font
		drawFont, err = opentype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("legend: parse font: %w", err)
		}
	})
	return fontErr
}

// Labels returns the formatted min and max labels.
func (l *Legend) Labels() (lo, hi string) {
	prec := l.Precision
	if prec == 0 {
		prec = 2
	}
	tag := l.Lang
	if tag == language.Und {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	format := fmt.Sprintf("%%.%df", prec)
	return p.Sprintf(format, l.Min), p.Sprintf(format, l.Max)
}

// Measure returns the shaped advance of s in pixels.
func (l *Legend) Measure(s string) (float64, error) {
	if err := loadFonts(); err != nil {
		return 0, err
	}
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, nil
	}
	var hb shaping.HarfbuzzShaper
	out := hb.Shape(shaping.Input{
		Text:      runes,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gtfont.NewFace(shapeFont),
		Size:      fixed.Int26_6(l.size() * 64),
		Script:    gtlang.LookupScript(runes[0]),
		Language:  gtlang.NewLanguage(l.Lang.String()),
	})
	return float64(out.Advance) / 64, nil
}

func (l *Legend) size() float64 {
	if l.Size == 0 {
		return 12
	}
	return l.Size
}

// Draw paints the colorbar into the top half of r and the labels, min left
// and max right aligned, into the bottom half.
func (l *Legend) Draw(dst *image.RGBA, r image.Rectangle) error {
	if l.Lookup == nil {
		return errors.New("legend: no colormap")
	}
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return errors.New("legend: empty area")
	}
	if err := loadFonts(); err != nil {
		return err
	}

	bar := image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+r.Dy()/2)
	w := bar.Dx()
	for x := 0; x < w; x++ {
		t := (float32(x) + 0.5) / float32(w)
		draw.Draw(dst, image.Rect(bar.Min.X+x, bar.Min.Y, bar.Min.X+x+1, bar.Max.Y),
			image.NewUniform(l.Lookup(t)), image.Point{}, draw.Src)
	}

	face, err := opentype.NewFace(drawFont, &opentype.FaceOptions{Size: l.size(), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("legend: face: %w", err)
	}
	defer face.Close()

	lo, hi := l.Labels()
	hiWidth, err := l.Measure(hi)
	if err != nil {
		return err
	}
	baseline := r.Max.Y - int(l.size()/4)
	d := font.Drawer{Dst: dst, Src: image.Black, Face: face}
	d.Dot = fixed.P(r.Min.X, baseline)
	d.DrawString(lo)
	d.Dot = fixed.P(r.Max.X-int(hiWidth+0.5), baseline)
	d.DrawString(hi)
	return nil
}
