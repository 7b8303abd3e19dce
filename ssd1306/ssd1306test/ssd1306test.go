// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306test simulates the display RAM and command decoder of a
// SSD1306 controller.
//
// Panel is a twitest.Target: attach it to a twitest.Sim and inspect what a
// real panel would show.
package ssd1306test

import (
	"fmt"
	"image"

	"github.com/GermanBionicSystems/oledtwi/twi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel is a simulated controller.
type Panel struct {
	// Address is the 7-bit address. Defaults to 0x3C.
	Address uint16
	// ID is the controller ID reported in the status byte.
	ID byte

	// RAM is the display RAM, one byte per column per page.
	RAM [][]byte
	// On is set by the display on command.
	On bool
	// Inverted is set by the inverse display command.
	Inverted bool
	// EntireOn is set by the entire display on command.
	EntireOn bool
	// Scrolling is set while scrolling is active.
	Scrolling bool
	Contrast  byte
	Mode      byte
	StartLine byte
	Offset    byte
	Mux       byte
	Pump      byte
	ComPins   byte
	SegRemap  bool
	ComScan   bool

	// Commands is the log of every decoded command with its arguments.
	Commands [][]byte
	// Data counts bytes written to RAM.
	Data int
	// Err is the first decoding error, like an unknown command.
	Err error

	w, h               int
	col, page          int
	colStart, colEnd   int
	pageStart, pageEnd int
	expectControl      bool
	single             bool
	data               bool
	cmd                []byte
	want               int
}

// New returns a w x h Panel in its reset state.
func New(w, h int) *Panel {
	p := &Panel{Address: 0x3C, w: w, h: h, ID: 0x06}
	if h <= 32 {
		p.ID = 0x03
	}
	p.RAM = make([][]byte, h/8)
	for i := range p.RAM {
		p.RAM[i] = make([]byte, w)
	}
	p.Contrast = 0x7F
	p.Mode = 2
	p.Mux = byte(h - 1)
	p.Pump = 0x10
	p.ComPins = 0x12
	p.colEnd = w - 1
	p.pageEnd = h/8 - 1
	return p
}

func (p *Panel) String() string {
	return fmt.Sprintf("ssd1306test.Panel{%dx%d}", p.w, p.h)
}

// Addr implements twitest.Target.
func (p *Panel) Addr() uint16 {
	return p.Address
}

// Start implements twitest.Target.
func (p *Panel) Start(dir twi.Direction) bool {
	p.expectControl = true
	p.cmd = p.cmd[:0]
	p.want = 0
	return true
}

// Write implements twitest.Target.
func (p *Panel) Write(c byte) bool {
	if p.expectControl {
		p.expectControl = false
		p.single = c&0x80 != 0
		p.data = c&0x40 != 0
		return true
	}
	if p.data {
		p.write(c)
	} else {
		p.command(c)
	}
	if p.single {
		p.expectControl = true
	}
	return true
}

// Read implements twitest.Target. It returns the status byte.
func (p *Panel) Read() byte {
	s := p.ID & 0x3F
	if !p.On {
		s |= 0x40
	}
	return s
}

// Stop implements twitest.Target.
func (p *Panel) Stop() {
	if len(p.cmd) != 0 && p.Err == nil {
		p.Err = fmt.Errorf("ssd1306test: command 0x%02X truncated", p.cmd[0])
	}
	p.cmd = p.cmd[:0]
}

// Pixel returns the RAM bit at x, y.
func (p *Panel) Pixel(x, y int) bool {
	return p.RAM[y/8][x]&(1<<uint(y%8)) != 0
}

// Lit returns whether the pixel at x, y is lit on the glass.
func (p *Panel) Lit(x, y int) bool {
	if !p.On {
		return false
	}
	if p.EntireOn {
		return true
	}
	return p.Pixel(x, y) != p.Inverted
}

// LitCount returns the number of lit pixels.
func (p *Panel) LitCount() int {
	n := 0
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			if p.Lit(x, y) {
				n++
			}
		}
	}
	return n
}

// Page returns a copy of one page of RAM.
func (p *Panel) Page(i int) []byte {
	return append([]byte(nil), p.RAM[i]...)
}

// Frame returns a copy of RAM in frame order: pages of w bytes.
func (p *Panel) Frame() []byte {
	out := make([]byte, 0, p.w*p.h/8)
	for _, r := range p.RAM {
		out = append(out, r...)
	}
	return out
}

// Image returns what the glass shows.
func (p *Panel) Image() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, p.w, p.h))
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			img.SetBit(x, y, image1bit.Bit(p.Lit(x, y)))
		}
	}
	return img
}

// Cursor returns the RAM write position.
func (p *Panel) Cursor() (col, page int) {
	return p.col, p.page
}

func (p *Panel) write(c byte) {
	p.Data++
	p.RAM[p.page][p.col] = c
	switch p.Mode {
	case 0:
		if p.col++; p.col > p.colEnd {
			p.col = p.colStart
			if p.page++; p.page > p.pageEnd {
				p.page = p.pageStart
			}
		}
	case 1:
		if p.page++; p.page > p.pageEnd {
			p.page = p.pageStart
			if p.col++; p.col > p.colEnd {
				p.col = p.colStart
			}
		}
	default:
		if p.col++; p.col >= p.w {
			p.col = 0
		}
	}
}

func (p *Panel) command(c byte) {
	p.cmd = append(p.cmd, c)
	if len(p.cmd) == 1 {
		n, ok := arity(c)
		if !ok {
			if p.Err == nil {
				p.Err = fmt.Errorf("ssd1306test: unknown command 0x%02X", c)
			}
			p.cmd = p.cmd[:0]
			return
		}
		p.want = n
	}
	if len(p.cmd) <= p.want {
		return
	}
	cmd := append([]byte(nil), p.cmd...)
	p.cmd = p.cmd[:0]
	p.Commands = append(p.Commands, cmd)
	p.exec(cmd)
}

func (p *Panel) exec(cmd []byte) {
	c := cmd[0]
	switch {
	case c <= 0x0F:
		p.col = p.clampCol(p.col&0xF0 | int(c))
		return
	case c <= 0x1F:
		p.col = p.clampCol(p.col&0x0F | int(c&0x0F)<<4)
		return
	case c >= 0x40 && c <= 0x7F:
		p.StartLine = c & 0x3F
		return
	case c >= 0xB0 && c <= 0xB7:
		p.page = p.clampPage(int(c & 0x07))
		return
	}
	switch c {
	case 0x20:
		p.Mode = cmd[1] & 0x03
	case 0x21:
		p.colStart, p.colEnd = p.clampCol(int(cmd[1]&0x7F)), p.clampCol(int(cmd[2]&0x7F))
		p.col = p.colStart
	case 0x22:
		p.pageStart, p.pageEnd = p.clampPage(int(cmd[1]&0x07)), p.clampPage(int(cmd[2]&0x07))
		p.page = p.pageStart
	case 0x2E:
		p.Scrolling = false
	case 0x2F:
		p.Scrolling = true
	case 0x81:
		p.Contrast = cmd[1]
	case 0x8D:
		p.Pump = cmd[1]
	case 0xA0, 0xA1:
		p.SegRemap = c == 0xA1
	case 0xA4, 0xA5:
		p.EntireOn = c == 0xA5
	case 0xA6, 0xA7:
		p.Inverted = c == 0xA7
	case 0xA8:
		p.Mux = cmd[1]
	case 0xAE, 0xAF:
		p.On = c == 0xAF
	case 0xC0, 0xC8:
		p.ComScan = c == 0xC8
	case 0xD3:
		p.Offset = cmd[1]
	case 0xDA:
		p.ComPins = cmd[1]
	}
}

// clampCol and clampPage keep the cursor inside RAM on panels narrower or
// shorter than what the controller addresses.
func (p *Panel) clampCol(c int) int {
	return min(c, p.w-1)
}

func (p *Panel) clampPage(c int) int {
	return min(c, p.h/8-1)
}

func arity(c byte) (int, bool) {
	switch {
	case c <= 0x1F, c >= 0x40 && c <= 0x7F, c >= 0xB0 && c <= 0xB7:
		return 0, true
	}
	switch c {
	case 0x2E, 0x2F, 0xA0, 0xA1, 0xA4, 0xA5, 0xA6, 0xA7, 0xAE, 0xAF, 0xC0, 0xC8, 0xE3:
		return 0, true
	case 0x20, 0x81, 0x8D, 0xA8, 0xD3, 0xD5, 0xD9, 0xDA, 0xDB:
		return 1, true
	case 0x21, 0x22, 0xA3:
		return 2, true
	case 0x29, 0x2A:
		return 5, true
	case 0x26, 0x27:
		return 6, true
	}
	return 0, false
}
