// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oledtwi drives SSD1306 OLED panels over a two-wire bus master.
//
// twi is the bus master, on a register level peripheral: the microcontroller
// TWI block, twi/bitbang on two GPIO lines, or the twi/twitest simulator.
// ssd1306 runs the display session and sends frames on top of it.
package oledtwi
