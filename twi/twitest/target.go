// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twitest

import (
	"github.com/GermanBionicSystems/oledtwi/twi"
	"periph.io/x/conn/v3/i2c"
)

// BusTarget is a write-only Target that forwards each transaction it is
// part of to an i2c.Bus as a single Tx.
//
// Use it with i2ctest.Record to capture what a device received, or with
// i2ctest.Playback to assert it.
type BusTarget struct {
	Bus     i2c.Bus
	Address uint16
	// Err is the first error returned by Bus.
	Err error

	w      []byte
	active bool
}

// Addr implements Target.
func (b *BusTarget) Addr() uint16 {
	return b.Address
}

// Start implements Target. Reads are not acknowledged.
func (b *BusTarget) Start(dir twi.Direction) bool {
	if dir == twi.Read {
		return false
	}
	b.active = true
	b.w = b.w[:0]
	return true
}

// Write implements Target.
func (b *BusTarget) Write(c byte) bool {
	b.w = append(b.w, c)
	return true
}

// Read implements Target.
func (b *BusTarget) Read() byte {
	return 0xFF
}

// Stop implements Target.
func (b *BusTarget) Stop() {
	if !b.active {
		return
	}
	b.active = false
	w := make([]byte, len(b.w))
	copy(w, b.w)
	if err := b.Bus.Tx(b.Address, w, nil); err != nil && b.Err == nil {
		b.Err = err
	}
}

// Device is a Target with a register pointer, like most sensors: the first
// byte written selects the register, following bytes are written to
// consecutive registers, reads return consecutive registers.
type Device struct {
	Address uint16
	Regs    [256]byte
	// NackAfter stops acknowledging data bytes after that many bytes in a
	// transaction. 0 means never.
	NackAfter int

	ptr     byte
	written int
}

// Addr implements Target.
func (d *Device) Addr() uint16 {
	return d.Address
}

// Start implements Target.
func (d *Device) Start(dir twi.Direction) bool {
	if dir == twi.Write {
		d.written = 0
	}
	return true
}

// Write implements Target.
func (d *Device) Write(c byte) bool {
	if d.NackAfter != 0 && d.written >= d.NackAfter {
		return false
	}
	if d.written == 0 {
		d.ptr = c
	} else {
		d.Regs[d.ptr] = c
		d.ptr++
	}
	d.written++
	return true
}

// Read implements Target.
func (d *Device) Read() byte {
	c := d.Regs[d.ptr]
	d.ptr++
	return c
}

// Stop implements Target.
func (d *Device) Stop() {
}

var _ Target = &BusTarget{}
var _ Target = &Device{}
