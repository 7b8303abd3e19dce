// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbang implements a TWI peripheral in software over two GPIO
// pins.
//
// It exposes the same register file as the hardware block so twi.Bus drives
// it unchanged: each phase runs to completion inside the control register
// write and the ready flag is already set when the engine polls it.
//
// SDA is driven open-drain: low is an output, high is released to the
// pull-up. SCL is push-pull; clock stretching is not supported.
package bitbang

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/oledtwi/twi"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts configures the software peripheral.
type Opts struct {
	// CPU is the clock the bit rate register divides, like on the
	// microcontroller: SCL = CPU / (16 + 2*TWBR*4^prescaler).
	CPU physic.Frequency
	// Delay waits for half an SCL period. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// Peripheral implements twi.Peripheral and twi.PullUpper.
type Peripheral struct {
	sda   gpio.PinIO
	scl   gpio.PinOut
	cpu   physic.Frequency
	delay func(time.Duration)
	half  time.Duration
	pull  gpio.Pull
	err   error

	regs      [4]uint8
	inTx      bool
	addressed bool
	selected  bool
	dir       twi.Direction
}

// New returns a Peripheral driving sda and scl. The lines are released.
func New(sda gpio.PinIO, scl gpio.PinOut, opts *Opts) (*Peripheral, error) {
	if sda == nil || scl == nil {
		return nil, errors.New("bitbang: both SDA and SCL are required")
	}
	p := &Peripheral{sda: sda, scl: scl, cpu: 16 * physic.MegaHertz, delay: time.Sleep, pull: gpio.Float}
	if opts != nil {
		if opts.CPU != 0 {
			p.cpu = opts.CPU
		}
		if opts.Delay != nil {
			p.delay = opts.Delay
		}
	}
	p.regs[twi.RegStatus] = uint8(twi.StatusNoRelevantState)
	p.updateHalf()
	if err := p.release(); err != nil {
		return nil, fmt.Errorf("bitbang: %s: %w", sda, err)
	}
	if err := p.scl.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("bitbang: %s: %w", scl, err)
	}
	return p, nil
}

func (p *Peripheral) String() string {
	return fmt.Sprintf("bitbang(%s, %s)", p.sda, p.scl)
}

// Err returns the first GPIO error seen. Phases that hit a GPIO error
// report twi.StatusBusError.
func (p *Peripheral) Err() error {
	return p.err
}

// Frequency returns the SCL frequency the bit rate registers select.
func (p *Peripheral) Frequency() physic.Frequency {
	return p.cpu / physic.Frequency(p.divider())
}

// PullUp implements twi.PullUpper.
func (p *Peripheral) PullUp(enable bool) error {
	p.pull = gpio.Float
	if enable {
		p.pull = gpio.PullUp
	}
	return p.release()
}

// Read implements twi.Peripheral.
func (p *Peripheral) Read(r twi.Reg) uint8 {
	return p.regs[r&3]
}

// Write implements twi.Peripheral.
func (p *Peripheral) Write(r twi.Reg, v uint8) {
	switch r {
	case twi.RegStatus:
		p.regs[r] = p.regs[r]&twi.StatusMask | v&0x03
		p.updateHalf()
	case twi.RegBitRate:
		p.regs[r] = v
		p.updateHalf()
	case twi.RegControl:
		p.control(v)
	default:
		p.regs[r&3] = v
	}
}

func (p *Peripheral) control(v uint8) {
	p.regs[twi.RegControl] = v &^ (twi.CtrlInt | twi.CtrlStart | twi.CtrlStop)
	if v&twi.CtrlEnable == 0 || v&twi.CtrlInt == 0 {
		return
	}
	if v&twi.CtrlStop != 0 {
		p.stop()
		p.setStatus(twi.StatusNoRelevantState)
		return
	}
	var st twi.Status
	switch {
	case v&twi.CtrlStart != 0:
		st = p.start()
	case !p.inTx:
		st = twi.StatusBusError
	case !p.addressed:
		st = p.address()
	case p.dir == twi.Read:
		st = p.receive(v&twi.CtrlEnableAck != 0)
	default:
		st = twi.StatusDataWriteNack
		if p.transmit(p.regs[twi.RegData]) && p.selected {
			st = twi.StatusDataWriteAck
		}
	}
	if p.err != nil {
		st = twi.StatusBusError
	}
	p.setStatus(st)
	p.regs[twi.RegControl] |= twi.CtrlInt
}

func (p *Peripheral) setStatus(st twi.Status) {
	p.regs[twi.RegStatus] = p.regs[twi.RegStatus]&^twi.StatusMask | uint8(st)
}

func (p *Peripheral) start() twi.Status {
	st := twi.StatusStart
	if p.inTx {
		st = twi.StatusRepeatedStart
		p.sdaHigh()
		p.wait()
		p.sclOut(gpio.High)
		p.wait()
	}
	p.sdaLow()
	p.wait()
	p.sclOut(gpio.Low)
	p.wait()
	p.inTx = true
	p.addressed = false
	p.selected = false
	return st
}

func (p *Peripheral) address() twi.Status {
	c := p.regs[twi.RegData]
	p.addressed = true
	p.dir = twi.Direction(c & 1)
	p.selected = p.transmit(c)
	switch {
	case p.dir == twi.Read && p.selected:
		return twi.StatusAddrReadAck
	case p.dir == twi.Read:
		return twi.StatusAddrReadNack
	case p.selected:
		return twi.StatusAddrWriteAck
	default:
		return twi.StatusAddrWriteNack
	}
}

// transmit shifts c out MSB first and returns whether the receiver pulled
// SDA low on the ninth clock.
func (p *Peripheral) transmit(c byte) bool {
	for i := 7; i >= 0; i-- {
		if c&(1<<uint(i)) != 0 {
			p.sdaHigh()
		} else {
			p.sdaLow()
		}
		p.wait()
		p.sclOut(gpio.High)
		p.wait()
		p.sclOut(gpio.Low)
	}
	p.sdaHigh()
	p.wait()
	p.sclOut(gpio.High)
	p.wait()
	ack := p.sda.Read() == gpio.Low
	p.sclOut(gpio.Low)
	p.wait()
	return ack
}

func (p *Peripheral) receive(ack bool) twi.Status {
	var c byte
	p.sdaHigh()
	for i := 0; i < 8; i++ {
		p.wait()
		p.sclOut(gpio.High)
		p.wait()
		c <<= 1
		if p.sda.Read() == gpio.High {
			c |= 1
		}
		p.sclOut(gpio.Low)
	}
	if ack {
		p.sdaLow()
	}
	p.wait()
	p.sclOut(gpio.High)
	p.wait()
	p.sclOut(gpio.Low)
	p.sdaHigh()
	p.regs[twi.RegData] = c
	if ack {
		return twi.StatusDataReadAck
	}
	return twi.StatusDataReadNack
}

func (p *Peripheral) stop() {
	if !p.inTx {
		return
	}
	p.sdaLow()
	p.wait()
	p.sclOut(gpio.High)
	p.wait()
	p.sdaHigh()
	p.wait()
	p.inTx = false
	p.addressed = false
	p.selected = false
}

func (p *Peripheral) release() error {
	return p.sda.In(p.pull, gpio.NoEdge)
}

func (p *Peripheral) sdaHigh() {
	p.check(p.release())
}

func (p *Peripheral) sdaLow() {
	p.check(p.sda.Out(gpio.Low))
}

func (p *Peripheral) sclOut(l gpio.Level) {
	p.check(p.scl.Out(l))
}

func (p *Peripheral) check(err error) {
	if err != nil && p.err == nil {
		p.err = err
	}
}

func (p *Peripheral) wait() {
	p.delay(p.half)
}

func (p *Peripheral) divider() int64 {
	ps := int64(1) << (2 * uint(p.regs[twi.RegStatus]&0x03))
	return 16 + 2*int64(p.regs[twi.RegBitRate])*ps
}

func (p *Peripheral) updateHalf() {
	p.half = p.Frequency().Period() / 2
}

var _ twi.Peripheral = &Peripheral{}
var _ twi.PullUpper = &Peripheral{}
