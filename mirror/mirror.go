// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mirror serves a copy of a monochrome panel over HTTP.
//
// Clients get a snapshot of the panel and a new one on every change, as a
// multipart/x-mixed-replace stream of PNG images ("MJPEG" as used by IP
// cameras, with PNG frames). Browsers show it as an animated image.
//
// Pixels are enlarged, by Opts.Scale or the "scale" URL parameter.
package mirror

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// MaxScale is the largest accepted scale.
const MaxScale = 16

// Opts configures a Dev.
type Opts struct {
	W, H int
	// Scale is the size of a panel pixel in the image. Defaults to 4.
	Scale int
	// Lit is the color of a lit pixel. Defaults to white.
	Lit color.Color
}

// Dev is a display.Drawer mirroring a monochrome panel to HTTP clients.
type Dev struct {
	scale   int
	palette color.Palette

	mu        sync.Mutex
	img       *image1bit.VerticalLSB
	clients   map[*client]struct{}
	snapshots map[int][]byte
}

// New returns a Dev with every pixel off.
func New(opts *Opts) *Dev {
	scale := opts.Scale
	if scale <= 0 {
		scale = 4
	}
	lit := opts.Lit
	if lit == nil {
		lit = color.White
	}
	return &Dev{
		scale:     scale,
		palette:   color.Palette{color.Black, lit},
		img:       image1bit.NewVerticalLSB(image.Rect(0, 0, opts.W, opts.H)),
		clients:   map[*client]struct{}{},
		snapshots: map[int][]byte{},
	}
}

func (d *Dev) String() string {
	return "Mirror"
}

// Halt implements conn.Resource. It terminates all running client requests
// asynchronously.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	return nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.img.Rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Src.Draw(d.img, r, src, sp)
	d.changedLocked()
	return nil
}

// Write accepts a frame in image1bit.VerticalLSB.Pix format.
func (d *Dev) Write(pixels []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(pixels) != len(d.img.Pix) {
		return 0, fmt.Errorf("mirror: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.img.Pix), len(pixels))
	}
	copy(d.img.Pix, pixels)
	d.changedLocked()
	return len(pixels), nil
}

// changedLocked drops the cached images and wakes up the clients.
func (d *Dev) changedLocked() {
	clear(d.snapshots)
	for c := range d.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

var _ display.Drawer = &Dev{}
var _ http.Handler = &Dev{}
