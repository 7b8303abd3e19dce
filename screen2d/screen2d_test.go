// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package screen2d

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestWrite(t *testing.T) {
	var out bytes.Buffer
	d := New(&Opts{X: 8, Y: 16, Out: &out})
	pix := make([]byte, 16)
	pix[0] = 0x01
	pix[15] = 0x80
	if n, err := d.Write(pix); n != 16 || err != nil {
		t.Fatal(n, err)
	}
	s := out.String()
	if n := strings.Count(s, "\n"); n != 16 {
		t.Fatalf("%d lines", n)
	}
	if n := strings.Count(s, d.on); n != 2 {
		t.Fatalf("%d lit", n)
	}
	if _, err := d.Write(pix[:3]); err == nil {
		t.Fatal("expected error")
	}

	// The second refresh moves the cursor back up.
	out.Reset()
	img := image1bit.NewVerticalLSB(d.Bounds())
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "\033[16A") {
		t.Fatalf("%q", out.String()[:8])
	}
	if strings.Contains(out.String(), d.on) {
		t.Fatal("still lit")
	}
}

func TestDev(t *testing.T) {
	var out bytes.Buffer
	d := New(&Opts{X: 128, Y: 64, Out: &out})
	if d.String() != "Screen2D" {
		t.Fatal(d.String())
	}
	if d.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Fatal(d.Bounds())
	}
	if d.ColorModel() != image1bit.BitModel {
		t.Fatal("color model")
	}
	if d.on == d.off {
		t.Fatal("lit and unlit look the same")
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "\n\033[0m" {
		t.Fatalf("%q", out.String())
	}
}
