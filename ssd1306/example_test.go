// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306_test

import (
	"fmt"
	"image"
	"image/draw"
	"log"

	"github.com/GermanBionicSystems/oledtwi/ssd1306"
	"github.com/GermanBionicSystems/oledtwi/ssd1306/ssd1306test"
	"github.com/GermanBionicSystems/oledtwi/twi"
	"github.com/GermanBionicSystems/oledtwi/twi/twitest"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func Example() {
	// On the microcontroller the peripheral is the TWI register block; here
	// a simulated one with a panel attached.
	panel := ssd1306test.New(128, 64)
	b, err := twi.New(twitest.New(panel), &twi.Opts{Wait: twi.Bounded(100)})
	if err != nil {
		log.Fatal(err)
	}
	opts := ssd1306.DefaultOpts
	opts.PowerOnDelay = 0
	dev, err := ssd1306.New(b, &opts)
	if err != nil {
		log.Fatalf("failed to initialize display: %s", err.Error())
	}
	fmt.Printf("device=%s\n", dev)

	// Draw a 16x16 square.
	img := image1bit.NewVerticalLSB(dev.Bounds())
	draw.Draw(img, image.Rect(56, 24, 72, 40), image.NewUniform(image1bit.On), image.Point{}, draw.Src)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("lit=%d\n", panel.LitCount())
	// Output:
	// device=SSD1306.Dev{TWI0@0x3C, (128,64)}
	// lit=256
}

func ExampleDev_TransferFrame() {
	panel := ssd1306test.New(128, 32)
	b, err := twi.New(twitest.New(panel), &twi.Opts{Wait: twi.Bounded(100)})
	if err != nil {
		log.Fatal(err)
	}
	opts := ssd1306.DefaultOpts
	opts.H = 32
	opts.Sequential = true
	opts.PowerOnDelay = 0
	dev, err := ssd1306.New(b, &opts)
	if err != nil {
		log.Fatal(err)
	}
	// With the default Complement polarity a zero bit is lit.
	frame := make([]byte, 128*32/8)
	for i := range frame {
		frame[i] = 0xFF
	}
	frame[0] = 0xFE
	if err := dev.TransferFrame(frame); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("lit=%d top-left=%t\n", panel.LitCount(), panel.Lit(0, 0))
	// Output:
	// lit=1 top-left=true
}
