// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twitest is meant to be used to test code using a twi.Bus without
// hardware.
//
// Sim is a register-level model of a TWI master peripheral. Devices are
// attached as Targets. Every phase is recorded as an Event, completion
// latency is a fixed number of polls, and individual phases can be forced to
// report another status to exercise error paths.
package twitest

import (
	"fmt"

	"github.com/GermanBionicSystems/oledtwi/twi"
)

// Target is a device attached to the simulated bus.
type Target interface {
	// Addr returns the 7-bit address the device answers to.
	Addr() uint16
	// Start is called when the device is addressed. It returns false to
	// not acknowledge.
	Start(dir twi.Direction) bool
	// Write receives one byte and returns whether it is acknowledged.
	Write(c byte) bool
	// Read returns the next byte sent to the master.
	Read() byte
	// Stop is called at the stop or repeated start condition that ends the
	// device's part of the transaction.
	Stop()
}

// Kind is the kind of phase recorded in an Event.
type Kind uint8

// Kinds of events.
const (
	Start Kind = iota
	RepeatedStart
	Address
	Write
	Read
	Stop
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "Start"
	case RepeatedStart:
		return "RepeatedStart"
	case Address:
		return "Address"
	case Write:
		return "Write"
	case Read:
		return "Read"
	case Stop:
		return "Stop"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Event is one phase seen by the simulator.
type Event struct {
	Kind Kind
	// Tx is the transaction number, counting from 0.
	Tx int
	// Byte is the address byte, or the data byte written or read.
	Byte byte
	// Status is the status reported for the phase. Stop reports
	// twi.StatusNoRelevantState.
	Status twi.Status
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s 0x%02X (%s)", e.Tx, e.Kind, e.Byte, e.Status)
}

// Fault forces the status of one phase.
//
// The phase is consumed by the fault: the target does not see it.
type Fault struct {
	// Tx is the transaction number.
	Tx int
	// Index is the phase within the transaction: 0 is the start, 1 the
	// address, 2 the first data byte, and so on. A repeated start counts as
	// a phase.
	Index int
	// Status is what the status register reports.
	Status twi.Status
}

// Sim implements twi.Peripheral and twi.PullUpper.
type Sim struct {
	// Targets are the devices on the bus.
	Targets []Target
	// Latency is the number of polls of the control register that report
	// the phase as still running.
	Latency int
	// Hang makes every phase run forever, like a bus with SCL held low.
	Hang bool
	// Faults are applied in addition to what the targets answer.
	Faults []Fault

	// Events is the log of every phase.
	Events []Event
	// Polls counts reads of the control register.
	Polls int
	// PullUps is the state of the internal pull-ups.
	PullUps bool

	regs      [4]uint8
	pending   bool
	countdown int
	status    twi.Status
	inTx      bool
	tx        int
	index     int
	addressed bool
	target    Target
	dir       twi.Direction
}

// New returns a Sim with the devices attached.
func New(targets ...Target) *Sim {
	s := &Sim{Targets: targets, tx: -1}
	s.regs[twi.RegStatus] = uint8(twi.StatusNoRelevantState)
	return s
}

func (s *Sim) String() string {
	return "twitest.Sim"
}

// PullUp implements twi.PullUpper.
func (s *Sim) PullUp(enable bool) error {
	s.PullUps = enable
	return nil
}

// BitRate returns the last value written to the bit rate register.
func (s *Sim) BitRate() uint8 {
	return s.regs[twi.RegBitRate]
}

// Read implements twi.Peripheral.
func (s *Sim) Read(r twi.Reg) uint8 {
	if r == twi.RegControl {
		s.Polls++
		if s.pending && !s.Hang {
			if s.countdown > 0 {
				s.countdown--
			} else {
				s.complete()
			}
		}
	}
	return s.regs[r&3]
}

// Write implements twi.Peripheral.
func (s *Sim) Write(r twi.Reg, v uint8) {
	switch r {
	case twi.RegStatus:
		// Only the prescaler bits are writable.
		s.regs[r] = s.regs[r]&twi.StatusMask | v&0x03
	case twi.RegControl:
		s.control(v)
	default:
		s.regs[r&3] = v
	}
}

func (s *Sim) control(v uint8) {
	if v&twi.CtrlEnable == 0 || v&twi.CtrlInt == 0 {
		s.regs[twi.RegControl] = v &^ twi.CtrlInt
		return
	}
	switch {
	case v&twi.CtrlStop != 0:
		s.stop()
		s.regs[twi.RegControl] = v &^ (twi.CtrlInt | twi.CtrlStop)
		return
	case v&twi.CtrlStart != 0:
		s.start()
	case !s.inTx:
		s.launch(v, Write, s.regs[twi.RegData], twi.StatusBusError)
		return
	case !s.addressed:
		s.address()
	case s.dir == twi.Read:
		s.read(v)
	default:
		s.write()
	}
	s.regs[twi.RegControl] = v &^ (twi.CtrlInt | twi.CtrlStart)
	s.pending = true
	s.countdown = s.Latency
}

func (s *Sim) launch(v uint8, k Kind, c byte, st twi.Status) {
	s.record(k, c, st)
	s.regs[twi.RegControl] = v &^ twi.CtrlInt
	s.pending = true
	s.countdown = s.Latency
}

func (s *Sim) start() {
	k, st := Start, twi.StatusStart
	if s.inTx {
		k, st = RepeatedStart, twi.StatusRepeatedStart
		s.index++
		s.release()
	} else {
		s.inTx = true
		s.tx++
		s.index = 0
	}
	s.addressed = false
	if f, ok := s.fault(); ok {
		st = f
	}
	s.record(k, 0, st)
}

func (s *Sim) address() {
	s.index++
	c := s.regs[twi.RegData]
	s.addressed = true
	s.dir = twi.Direction(c & 1)
	ack, nack := twi.StatusAddrWriteAck, twi.StatusAddrWriteNack
	if s.dir == twi.Read {
		ack, nack = twi.StatusAddrReadAck, twi.StatusAddrReadNack
	}
	if f, ok := s.fault(); ok {
		s.record(Address, c, f)
		return
	}
	st := nack
	for _, t := range s.Targets {
		if t.Addr() == uint16(c>>1) && t.Start(s.dir) {
			s.target = t
			st = ack
			break
		}
	}
	s.record(Address, c, st)
}

func (s *Sim) write() {
	s.index++
	c := s.regs[twi.RegData]
	if f, ok := s.fault(); ok {
		s.record(Write, c, f)
		return
	}
	st := twi.StatusDataWriteNack
	if s.target != nil && s.target.Write(c) {
		st = twi.StatusDataWriteAck
	}
	s.record(Write, c, st)
}

func (s *Sim) read(v uint8) {
	s.index++
	c := byte(0xFF)
	if s.target != nil {
		c = s.target.Read()
	}
	st := twi.StatusDataReadNack
	if v&twi.CtrlEnableAck != 0 {
		st = twi.StatusDataReadAck
	}
	if f, ok := s.fault(); ok {
		st = f
	}
	s.regs[twi.RegData] = c
	s.record(Read, c, st)
}

func (s *Sim) stop() {
	s.pending = false
	if !s.inTx {
		return
	}
	s.release()
	s.inTx = false
	s.addressed = false
	s.regs[twi.RegStatus] = s.regs[twi.RegStatus]&^twi.StatusMask | uint8(twi.StatusNoRelevantState)
	s.record(Stop, 0, twi.StatusNoRelevantState)
}

func (s *Sim) release() {
	if s.target != nil {
		s.target.Stop()
		s.target = nil
	}
}

func (s *Sim) complete() {
	s.pending = false
	s.regs[twi.RegStatus] = s.regs[twi.RegStatus]&^twi.StatusMask | uint8(s.status)
	s.regs[twi.RegControl] |= twi.CtrlInt
}

func (s *Sim) record(k Kind, c byte, st twi.Status) {
	s.status = st
	s.Events = append(s.Events, Event{Kind: k, Tx: s.tx, Byte: c, Status: st})
}

func (s *Sim) fault() (twi.Status, bool) {
	for _, f := range s.Faults {
		if f.Tx == s.tx && f.Index == s.index {
			return f.Status, true
		}
	}
	return 0, false
}

// Count returns the number of events of kind k.
func (s *Sim) Count(k Kind) int {
	n := 0
	for _, e := range s.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Transactions returns the events grouped by transaction.
func (s *Sim) Transactions() [][]Event {
	var out [][]Event
	for _, e := range s.Events {
		if e.Tx < 0 {
			continue
		}
		for len(out) <= e.Tx {
			out = append(out, nil)
		}
		out[e.Tx] = append(out[e.Tx], e)
	}
	return out
}

// Written returns the data bytes put on the bus, acknowledged or not.
func (s *Sim) Written() []byte {
	var out []byte
	for _, e := range s.Events {
		if e.Kind == Write {
			out = append(out, e.Byte)
		}
	}
	return out
}

// Reset clears the event log and the poll counter. Outside a transaction it
// also restarts transaction numbering at 0, for Faults.
func (s *Sim) Reset() {
	s.Events = nil
	s.Polls = 0
	if !s.inTx {
		s.tx = -1
	}
}

var _ twi.Peripheral = &Sim{}
var _ twi.PullUpper = &Sim{}
