// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a monochrome 2D display.Drawer that outputs to
// the terminal using ANSI color codes.
//
// Useful to preview what an OLED panel shows without the panel.
package screen2d

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Opts represents the options available for this display.
type Opts struct {
	X       int
	Y       int
	Palette *ansi256.Palette
	// Lit is the color of a lit pixel. Defaults to white.
	Lit color.Color
	// Out defaults to stdout.
	Out io.Writer

	_ struct{}
}

// Dev is a monochrome panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	rect    image.Rectangle
	palette ansi256.Palette
	on, off string

	img   *image1bit.VerticalLSB
	buf   bytes.Buffer
	drawn bool
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	lit := opts.Lit
	if lit == nil {
		lit = color.White
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	d := &Dev{
		w:       w,
		rect:    image.Rect(0, 0, opts.X, opts.Y),
		palette: *p,
		img:     image1bit.NewVerticalLSB(image.Rect(0, 0, opts.X, opts.Y)),
	}
	d.on = d.palette.Block(color.NRGBAModel.Convert(lit).(color.NRGBA))
	d.off = d.palette.Block(color.NRGBAModel.Convert(color.Black).(color.NRGBA))
	return d
}

func (d *Dev) String() string {
	return "Screen2D"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Write accepts a frame in image1bit.VerticalLSB.Pix format.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.img.Pix) {
		return 0, fmt.Errorf("screen2d: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.img.Pix), len(pixels))
	}
	copy(d.img.Pix, pixels)
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Src.Draw(d.img, r.Intersect(d.rect), src, sp)
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.drawn {
		// Redraw in place.
		_, _ = fmt.Fprintf(&d.buf, "\033[%dA", d.rect.Dy())
	}
	for y := 0; y < d.rect.Dy(); y++ {
		_, _ = d.buf.WriteString("\r")
		for x := 0; x < d.rect.Dx(); x++ {
			if d.img.BitAt(x, y) {
				_, _ = d.buf.WriteString(d.on)
			} else {
				_, _ = d.buf.WriteString(d.off)
			}
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.drawn = true
	_, err := d.buf.WriteTo(d.w)
	return len(d.img.Pix), err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
