// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"errors"
	"fmt"
)

const (
	_CHARGEPUMP          = 0x8D
	_COLUMNADDR          = 0x21
	_COMSCANDEC          = 0xC8
	_COMSCANINC          = 0xC0
	_DEACTIVATE_SCROLL   = 0x2E
	_ACTIVATE_SCROLL     = 0x2F
	_DISPLAYALLON        = 0xA5
	_DISPLAYALLON_RESUME = 0xA4
	_DISPLAYOFF          = 0xAE
	_DISPLAYON           = 0xAF
	_INVERTDISPLAY       = 0xA7
	_MEMORYMODE          = 0x20
	_NOP                 = 0xE3
	_NORMALDISPLAY       = 0xA6
	_PAGEADDR            = 0x22
	_PAGESTARTADDRESS    = 0xB0
	_SEGREMAP            = 0xA0
	_SETCOMPINS          = 0xDA
	_SETCONTRAST         = 0x81
	_SETDISPLAYCLOCKDIV  = 0xD5
	_SETDISPLAYOFFSET    = 0xD3
	_SETHIGHCOLUMN       = 0x10
	_SETLOWCOLUMN        = 0x00
	_SETMULTIPLEX        = 0xA8
	_SETPRECHARGE        = 0xD9
	_SETSEGMENTREMAP     = 0xA1
	_SETSTARTLINE        = 0x40
	_SETVCOMDETECT       = 0xDB
	_SETVERTICALAREA     = 0xA3
)

// Control bytes sent after the address. Bit 7 (Co) set means only one byte
// follows before the next control byte; bit 6 selects data over commands.
const (
	ControlCommandStream = 0x00
	ControlDataStream    = 0x40
	ControlCommand       = 0x80
	ControlData          = 0xC0
)

// InitTable is an ordered list of command bytes, each command followed by
// its argument bytes.
type InitTable []byte

// DefaultInitTable initializes a 128x64 panel in horizontal addressing mode
// with the charge pump enabled and contrast at mid-scale.
var DefaultInitTable = InitTable{
	_DISPLAYOFF,
	_DISPLAYALLON_RESUME,
	_SETCONTRAST, 0x7F,
	_NORMALDISPLAY,
	_MEMORYMODE, 0x00,
	_COLUMNADDR, 0x00, 0x7F,
	_SETSTARTLINE,
	_SEGREMAP,
	_SETMULTIPLEX, 0x3F,
	_COMSCANINC,
	_SETPRECHARGE, 0x22,
	_SETDISPLAYCLOCKDIV, 0x80,
	_PAGEADDR, 0x00, 0x07,
	_SETDISPLAYOFFSET, 0x00,
	_SETCOMPINS, 0x12,
	_CHARGEPUMP, 0x14,
	_DISPLAYON,
}

// ErrTableEnd is returned by InitTable.Validate when the table does not end
// with the display on command.
var ErrTableEnd = errors.New("ssd1306: init table must end with display on (0xAF)")

// Validate walks the table and checks that every command has all its
// argument bytes and that the last command powers the display on.
func (t InitTable) Validate() error {
	if len(t) == 0 {
		return errors.New("ssd1306: empty init table")
	}
	last := -1
	for i := 0; i < len(t); {
		n, err := arity(t[i])
		if err != nil {
			return fmt.Errorf("ssd1306: init table offset %d: %w", i, err)
		}
		if i+1+n > len(t) {
			return fmt.Errorf("ssd1306: init table offset %d: command 0x%02X needs %d argument bytes, %d left", i, t[i], n, len(t)-i-1)
		}
		last = i
		i += 1 + n
	}
	if t[last] != _DISPLAYON {
		return ErrTableEnd
	}
	return nil
}

// arity returns the number of argument bytes command c consumes.
func arity(c byte) (int, error) {
	switch {
	case c <= 0x1F, c >= 0x40 && c <= 0x7F, c >= 0xB0 && c <= 0xB7:
		// Column start nibbles, start line, page start: argument in the
		// command itself.
		return 0, nil
	}
	switch c {
	case _DEACTIVATE_SCROLL, _ACTIVATE_SCROLL,
		_SEGREMAP, _SETSEGMENTREMAP,
		_DISPLAYALLON_RESUME, _DISPLAYALLON,
		_NORMALDISPLAY, _INVERTDISPLAY,
		_DISPLAYOFF, _DISPLAYON,
		_COMSCANINC, _COMSCANDEC, _NOP:
		return 0, nil
	case _MEMORYMODE, _SETCONTRAST, _CHARGEPUMP, _SETMULTIPLEX,
		_SETDISPLAYOFFSET, _SETDISPLAYCLOCKDIV, _SETPRECHARGE,
		_SETCOMPINS, _SETVCOMDETECT:
		return 1, nil
	case _COLUMNADDR, _PAGEADDR, _SETVERTICALAREA:
		return 2, nil
	case 0x29, 0x2A:
		// Vertical and horizontal scroll setup.
		return 5, nil
	case 0x26, 0x27:
		return 6, nil
	}
	return 0, fmt.Errorf("unknown command 0x%02X", c)
}

// BuildInitTable returns the init table for opts. BuildInitTable(&DefaultOpts)
// equals DefaultInitTable.
func BuildInitTable(opts *Opts) (InitTable, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	comScan := byte(_COMSCANINC)
	if opts.MirrorVertical {
		comScan = _COMSCANDEC
	}
	segRemap := byte(_SEGREMAP)
	if opts.MirrorHorizontal {
		segRemap = _SETSEGMENTREMAP
	}
	// See page 40.
	hwLayout := byte(0x02)
	if !opts.Sequential {
		hwLayout |= 0x10
	}
	if opts.SwapTopBottom {
		hwLayout |= 0x20
	}
	pump := byte(0x14)
	if opts.ExternalVCC {
		pump = 0x10
	}
	precharge := opts.Precharge
	if precharge == 0 {
		precharge = 0x22
	}
	clock := opts.ClockDiv
	if clock == 0 {
		clock = 0x80
	}
	return InitTable{
		_DISPLAYOFF,
		_DISPLAYALLON_RESUME,
		_SETCONTRAST, opts.Contrast,
		_NORMALDISPLAY,
		_MEMORYMODE, byte(opts.Addressing),
		_COLUMNADDR, 0x00, byte(opts.W - 1),
		_SETSTARTLINE,
		segRemap,
		_SETMULTIPLEX, byte(opts.H - 1),
		comScan,
		_SETPRECHARGE, precharge,
		_SETDISPLAYCLOCKDIV, clock,
		_PAGEADDR, 0x00, byte(opts.H/8 - 1),
		_SETDISPLAYOFFSET, opts.Offset,
		_SETCOMPINS, hwLayout,
		_CHARGEPUMP, pump,
		_DISPLAYON,
	}, nil
}
