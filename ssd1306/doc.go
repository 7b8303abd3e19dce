// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306 controls a monochrome OLED display via a SSD1306
// controller on a TWI bus.
//
// Session is the controller protocol: each transaction is a start, the
// controller address, one control byte selecting a command or a data stream,
// the stream itself and a stop. The display accepts pixel data only after
// the init sequence, which must end by powering the panel on.
//
// Dev sends whole frames. A frame is W*H/8 bytes: H/8 horizontal bands
// (pages) of W bytes, each byte covering 8 vertically stacked pixels with the
// least significant bit at the top. Every transfer rewrites the whole frame;
// there are no differential updates. The traversal order follows the
// addressing mode programmed at init, and the RAM cursor is positioned
// before each frame.
//
// The default Polarity is Complement: a zero bit in the frame is a lit
// pixel. Draw and Write take image1bit content and always send it as is.
//
// # Datasheets
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
//
// "DM-OLED096-624": https://drive.google.com/file/d/0B5lkVYnewKTGaEVENlYwbDkxSGM/view
package ssd1306
