// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitmap produces frames for the ssd1306 package from images and
// text.
//
// A frame is h/8 pages of w bytes, one byte per column per page with the
// least significant bit on top. This is the content of
// image1bit.VerticalLSB.Pix.
package bitmap

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Pack renders img in a w x h frame where a one bit is a lit pixel. img is
// aligned on its top left corner and cropped.
func Pack(img image.Image, w, h int) []byte {
	dst := image1bit.NewVerticalLSB(image.Rect(0, 0, w, h))
	draw.Src.Draw(dst, dst.Bounds(), img, img.Bounds().Min)
	return dst.Pix
}

// Complement returns a copy of frame with every bit inverted.
//
// Use it to send a packed image with TransferFrame when the display uses the
// Complement polarity.
func Complement(frame []byte) []byte {
	out := make([]byte, len(frame))
	for i, c := range frame {
		out[i] = ^c
	}
	return out
}

// Load decodes a PNG or JPEG file.
func Load(path string) (image.Image, error) {
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("bitmap: %w", err)
	}
	return img, nil
}

// Face returns the Go regular font at size points. A size of 0 returns the
// 7x13 fixed font, which stays crisp on small panels.
func Face(size float64) (font.Face, error) {
	if size <= 0 {
		return basicfont.Face7x13, nil
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("bitmap: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull}), nil
}

// Text renders s centered in a w x h image, wrapped to the width.
func Text(s string, w, h int, face font.Face) *image1bit.VerticalLSB {
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(face)
	dc.DrawStringWrapped(s, float64(w)/2, float64(h)/2, 0.5, 0.5, float64(w), 1.2, gg.AlignCenter)
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, w, h))
	draw.Src.Draw(img, img.Bounds(), dc.Image(), image.Point{})
	return img
}
