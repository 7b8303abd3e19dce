// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Direction is the read/write bit appended to the 7-bit address.
type Direction uint8

// Transfer directions.
const (
	Write Direction = 0
	Read  Direction = 1
)

func (d Direction) String() string {
	if d == Read {
		return "R"
	}
	return "W"
}

// Opts configures the bus master.
type Opts struct {
	// Name is returned by String(). It is the name the bus is registered
	// under in i2creg.
	Name string
	// Speed is the SCL frequency.
	Speed physic.Frequency
	// CPU is the peripheral clock the bit rate register divides.
	CPU physic.Frequency
	// Settle is how long New waits after enabling the peripheral, so the
	// lines are stable before the first transaction.
	Settle time.Duration
	// Wait polls the ready flag. Defaults to Spin.
	Wait Waiter
}

// DefaultOpts is the 100kHz bus of a 16MHz microcontroller.
var DefaultOpts = Opts{
	Name:   "TWI0",
	Speed:  100 * physic.KiloHertz,
	CPU:    16 * physic.MegaHertz,
	Settle: 100 * time.Millisecond,
	Wait:   Spin,
}

type state uint8

const (
	idle state = iota
	started
	writing
	reading
	// failed is entered when a start or address phase did not complete;
	// only a stop is accepted.
	failed
)

// Bus is the exclusive owner of a TWI peripheral.
//
// The phase methods (SendStart, SendAddress, SendByte, ReceiveByte,
// SendStop) drive one transaction at a time and are not safe for concurrent
// use. Tx is the i2c.Bus entry point and takes care of the whole
// transaction.
type Bus struct {
	mu    sync.Mutex
	p     Peripheral
	name  string
	cpu   physic.Frequency
	speed physic.Frequency
	wait  Waiter
	ready func() bool
	state state
}

// New initializes the peripheral: internal pull-ups on, prescaler 1, bit
// rate for opts.Speed, interface enabled with acknowledge. It returns after
// opts.Settle elapsed.
//
// nil opts uses DefaultOpts.
func New(p Peripheral, opts *Opts) (*Bus, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.Name == "" {
			o.Name = DefaultOpts.Name
		}
		if o.Speed == 0 {
			o.Speed = DefaultOpts.Speed
		}
		if o.CPU == 0 {
			o.CPU = DefaultOpts.CPU
		}
		if o.Wait == nil {
			o.Wait = Spin
		}
	}
	b := &Bus{p: p, name: o.Name, cpu: o.CPU, wait: o.Wait}
	b.ready = b.isReady
	if pu, ok := p.(PullUpper); ok {
		if err := pu.PullUp(true); err != nil {
			return nil, fmt.Errorf("twi: enabling pull-ups: %w", err)
		}
	}
	if err := b.setSpeed(o.Speed); err != nil {
		return nil, err
	}
	p.Write(RegControl, p.Read(RegControl)&^CtrlInt|CtrlEnable|CtrlEnableAck)
	if o.Settle > 0 {
		time.Sleep(o.Settle)
	}
	return b, nil
}

func (b *Bus) String() string {
	return b.name
}

// Speed returns the configured SCL frequency.
func (b *Bus) Speed() physic.Frequency {
	return b.speed
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != idle {
		return ErrSequence
	}
	return b.setSpeed(f)
}

// Close implements i2c.BusCloser. It disables the peripheral.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p.Write(RegControl, 0)
	b.state = idle
	if pu, ok := b.p.(PullUpper); ok {
		return pu.PullUp(false)
	}
	return nil
}

// Tx implements i2c.Bus.
//
// It sends one start, the write phase if any, a repeated start and the read
// phase if any, and a stop. The first phase that is not acknowledged aborts
// the transaction; the stop is always sent.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != idle {
		return ErrSequence
	}
	err := b.tx(addr, w, r)
	b.SendStop()
	return err
}

func (b *Bus) tx(addr uint16, w, r []byte) error {
	if err := b.SendStart(); err != nil {
		return err
	}
	// An empty transaction is an address probe.
	if len(w) != 0 || len(r) == 0 {
		if err := b.SendAddress(addr, Write); err != nil {
			return err
		}
		for _, c := range w {
			if err := b.SendByte(c); err != nil {
				return err
			}
		}
		if len(r) == 0 {
			return nil
		}
		if err := b.SendStart(); err != nil {
			return err
		}
	}
	if err := b.SendAddress(addr, Read); err != nil {
		return err
	}
	for i := range r {
		c, err := b.ReceiveByte(i != len(r)-1)
		if err != nil {
			return err
		}
		r[i] = c
	}
	return nil
}

// SendStart drives a start condition.
//
// Inside a transaction that already addressed a device, it drives a repeated
// start instead.
func (b *Bus) SendStart() error {
	phase, want := PhaseStart, StatusStart
	switch b.state {
	case idle:
	case writing, reading:
		phase, want = PhaseRepeatedStart, StatusRepeatedStart
	default:
		return ErrSequence
	}
	s, err := b.exec(CtrlInt | CtrlStart | CtrlEnable)
	if err != nil {
		b.state = failed
		return err
	}
	if s != want {
		b.state = failed
		return &PhaseError{Phase: phase, Status: s, Outcome: UnexpectedStatus}
	}
	b.state = started
	return nil
}

// SendAddress sends the 7-bit address and the direction bit.
func (b *Bus) SendAddress(addr uint16, dir Direction) error {
	if b.state != started {
		return ErrSequence
	}
	if addr > 0x7F {
		return fmt.Errorf("twi: invalid 7-bit address 0x%X", addr)
	}
	ack, nack, next := StatusAddrWriteAck, StatusAddrWriteNack, writing
	if dir == Read {
		ack, nack, next = StatusAddrReadAck, StatusAddrReadNack, reading
	}
	b.p.Write(RegData, byte(addr<<1)|byte(dir&1))
	s, err := b.exec(CtrlInt | CtrlEnable)
	if err == nil {
		err = classify(PhaseAddress, s, ack, nack)
	}
	if err != nil {
		b.state = failed
		return err
	}
	b.state = next
	return nil
}

// SendByte transmits one data byte to the addressed device.
//
// A NACK is returned as an error but does not end the transaction; that is
// the caller's decision.
func (b *Bus) SendByte(c byte) error {
	if b.state != writing {
		return ErrSequence
	}
	b.p.Write(RegData, c)
	s, err := b.exec(CtrlInt | CtrlEnable)
	if err != nil {
		return err
	}
	return classify(PhaseData, s, StatusDataWriteAck, StatusDataWriteNack)
}

// ReceiveByte receives one data byte from the addressed device. ack tells
// whether the master acknowledges it; the last byte of a read is not
// acknowledged.
func (b *Bus) ReceiveByte(ack bool) (byte, error) {
	if b.state != reading {
		return 0, ErrSequence
	}
	ctrl := uint8(CtrlInt | CtrlEnable)
	want, other := StatusDataReadNack, StatusDataReadAck
	if ack {
		ctrl |= CtrlEnableAck
		want, other = StatusDataReadAck, StatusDataReadNack
	}
	s, err := b.exec(ctrl)
	if err != nil {
		return 0, err
	}
	if s != want {
		return 0, &PhaseError{Phase: PhaseReceive, Status: s, Outcome: outcomeFor(s, other)}
	}
	return b.p.Read(RegData), nil
}

// SendStop drives a stop condition and releases the bus.
//
// There is nothing to acknowledge; it always succeeds.
func (b *Bus) SendStop() {
	b.p.Write(RegControl, CtrlInt|CtrlStop|CtrlEnable)
	b.state = idle
}

func (b *Bus) exec(ctrl uint8) (Status, error) {
	b.p.Write(RegControl, ctrl)
	if err := b.wait.Wait(b.ready); err != nil {
		return 0, err
	}
	return Status(b.p.Read(RegStatus) & StatusMask), nil
}

func (b *Bus) isReady() bool {
	return b.p.Read(RegControl)&CtrlInt != 0
}

func (b *Bus) setSpeed(f physic.Frequency) error {
	v, err := BitRate(b.cpu, f)
	if err != nil {
		return err
	}
	b.p.Write(RegStatus, b.p.Read(RegStatus)&^prescalerMask)
	b.p.Write(RegBitRate, v)
	b.speed = f
	return nil
}

// BitRate returns the bit rate register value for SCL frequency scl with a
// prescaler of 1: (cpu/scl - 16) / 2.
func BitRate(cpu, scl physic.Frequency) (uint8, error) {
	if scl <= 0 || cpu <= 0 {
		return 0, fmt.Errorf("twi: invalid clocks cpu=%s scl=%s", cpu, scl)
	}
	div := int64(cpu / scl)
	if div < 16 {
		return 0, fmt.Errorf("twi: %s is too fast for a %s clock", scl, cpu)
	}
	v := (div - 16) / 2
	if v > 0xFF {
		return 0, fmt.Errorf("twi: %s is too slow for a %s clock", scl, cpu)
	}
	return uint8(v), nil
}

// outcomeFor is NotAcknowledged when a received byte completed with the
// opposite acknowledge bit, UnexpectedStatus otherwise.
func outcomeFor(s, other Status) Outcome {
	if s == other {
		return NotAcknowledged
	}
	return UnexpectedStatus
}

var _ i2c.BusCloser = &Bus{}
