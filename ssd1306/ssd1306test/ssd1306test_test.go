// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306test

import (
	"testing"

	"github.com/GermanBionicSystems/oledtwi/ssd1306"
	"github.com/GermanBionicSystems/oledtwi/twi"
	"github.com/GermanBionicSystems/oledtwi/twi/twitest"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c"
)

func TestPanel_reset(t *testing.T) {
	p := New(128, 32)
	if p.ID != 0x03 || p.Mux != 31 || p.Mode != 2 {
		t.Fatalf("%+v", p)
	}
	if s := p.Read(); s != 0x43 {
		t.Fatalf("status 0x%02X", s)
	}
	if p.LitCount() != 0 {
		t.Fatal("lit while off")
	}
	if s := p.String(); s != "ssd1306test.Panel{128x32}" {
		t.Fatal(s)
	}
}

func TestPanel_horizontal(t *testing.T) {
	p, b := newBus(t, 16, 16)
	// Window of 2 columns by 2 pages starting at column 3.
	tx(t, b, 0x00, 0xAF, 0x20, 0x00, 0x21, 3, 4, 0x22, 0, 1)
	tx(t, b, 0x40, 1, 2, 3, 4, 5)
	if p.Err != nil {
		t.Fatal(p.Err)
	}
	// The fifth byte wrapped back to the start of the window.
	if diff := cmp.Diff([]byte{0, 0, 0, 5, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, p.Page(0)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0, 0, 0, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, p.Page(1)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if col, page := p.Cursor(); col != 4 || page != 0 {
		t.Fatalf("cursor %d,%d", col, page)
	}
	if p.Data != 5 {
		t.Fatalf("data %d", p.Data)
	}
}

func TestPanel_vertical(t *testing.T) {
	p, b := newBus(t, 8, 16)
	tx(t, b, 0x00, 0xAF, 0x20, 0x01, 0x21, 0, 7, 0x22, 0, 1)
	tx(t, b, 0x40, 1, 2, 3, 4)
	if diff := cmp.Diff([]byte{1, 3, 0, 0, 0, 0, 0, 0}, p.Page(0)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{2, 4, 0, 0, 0, 0, 0, 0}, p.Page(1)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestPanel_page(t *testing.T) {
	p, b := newBus(t, 32, 16)
	// Page 1, column 0x12.
	tx(t, b, 0x00, 0xAF, 0xB1, 0x02, 0x11)
	tx(t, b, 0x40, 0xFF)
	if p.RAM[1][0x12] != 0xFF {
		t.Fatal(p.Page(1))
	}
	if !p.Lit(0x12, 8) || p.LitCount() != 8 {
		t.Fatal("wrong pixels")
	}
	tx(t, b, 0x00, 0xA7)
	if p.LitCount() != 32*16-8 {
		t.Fatal("not inverted")
	}
	tx(t, b, 0x00, 0xA5)
	if p.LitCount() != 32*16 {
		t.Fatal("not entirely on")
	}
	if img := p.Image(); !img.BitAt(0, 0) {
		t.Fatal("image")
	}
}

func TestPanel_singleControl(t *testing.T) {
	p, b := newBus(t, 8, 8)
	// Co set: one byte per control byte, a multi byte command spans them.
	tx(t, b, 0x80, 0x81, 0x80, 0x33, 0x80, 0xAF, 0xC0, 0x55, 0x00, 0xA7)
	if p.Contrast != 0x33 || !p.On || !p.Inverted {
		t.Fatalf("%+v", p)
	}
	if p.RAM[0][0] != 0x55 {
		t.Fatal(p.Page(0))
	}
	want := [][]byte{{0x81, 0x33}, {0xAF}, {0xA7}}
	if diff := cmp.Diff(want, p.Commands); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestPanel_errors(t *testing.T) {
	p, b := newBus(t, 8, 8)
	tx(t, b, 0x00, 0xFF)
	if p.Err == nil {
		t.Fatal("expected unknown command")
	}
	p.Err = nil
	tx(t, b, 0x00, 0x81)
	if p.Err == nil {
		t.Fatal("expected truncated command")
	}
}

func TestPanel_small(t *testing.T) {
	// The table addresses a 128x64 window, wider and taller than the RAM.
	p, b := newBus(t, 64, 32)
	tx(t, b, append([]byte{0x00}, ssd1306.DefaultInitTable...)...)
	if p.Err != nil {
		t.Fatal(p.Err)
	}
	if c, pg := p.Cursor(); c != 0 || pg != 0 {
		t.Fatal(c, pg)
	}
	data := make([]byte, 1+64*4+1)
	for i := range data {
		data[i] = 0xFF
	}
	data[0] = 0x40
	data[len(data)-1] = 0x0F
	tx(t, b, data...)
	if p.Data != 64*4+1 {
		t.Fatal(p.Data)
	}
	// The last byte wrapped back to the top left corner.
	if p.RAM[0][0] != 0x0F || p.RAM[3][63] != 0xFF {
		t.Fatalf("0x%02X 0x%02X", p.RAM[0][0], p.RAM[3][63])
	}
	tx(t, b, 0x00, 0xB7, 0x0F, 0x1F)
	if c, pg := p.Cursor(); c != 63 || pg != 3 {
		t.Fatal(c, pg)
	}
	tx(t, b, 0x40, 0x00)
	if p.RAM[3][63] != 0 {
		t.Fatal(p.Page(3))
	}
}

func TestPanel_status(t *testing.T) {
	p, b := newBus(t, 128, 64)
	r := make([]byte, 1)
	if err := b.Tx(p.Address, nil, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x46 {
		t.Fatalf("0x%02X", r[0])
	}
	tx(t, b, 0x00, 0xAF)
	if err := b.Tx(p.Address, nil, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x06 {
		t.Fatalf("0x%02X", r[0])
	}
}

//

func newBus(t *testing.T, w, h int) (*Panel, i2c.Bus) {
	p := New(w, h)
	b, err := twi.New(twitest.New(p), &twi.Opts{Wait: twi.Bounded(10)})
	if err != nil {
		t.Fatal(err)
	}
	return p, b
}

func tx(t *testing.T, b i2c.Bus, w ...byte) {
	if err := b.Tx(0x3C, w, nil); err != nil {
		t.Fatal(err)
	}
}
