// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/oledtwi/twi"
)

// Engine is the phase level interface of a TWI bus master. *twi.Bus
// implements it.
type Engine interface {
	String() string
	SendStart() error
	SendAddress(addr uint16, dir twi.Direction) error
	SendByte(c byte) error
	ReceiveByte(ack bool) (byte, error)
	SendStop()
}

// State is the power and stream state of the controller as seen by the
// Session.
type State uint8

// Session states.
const (
	Off State = iota
	Initializing
	CommandMode
	DataMode
)

func (s State) String() string {
	switch s {
	case Off:
		return "Off"
	case Initializing:
		return "Initializing"
	case CommandMode:
		return "CommandMode"
	case DataMode:
		return "DataMode"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// On returns true once the init sequence powered the display on.
func (s State) On() bool {
	return s == CommandMode || s == DataMode
}

// ErrDisplayOff is returned when pixel data is sent before the init
// sequence completed.
var ErrDisplayOff = errors.New("ssd1306: display is not initialized")

// Session opens command and data streams to the controller.
//
// Every Begin must be matched by exactly one End, even when Begin or
// WriteStream failed; End releases the bus.
type Session struct {
	e            Engine
	addr         uint16
	powerOnDelay time.Duration
	sleep        func(time.Duration)

	state State
	open  bool
	// err is the failure of the phase that opened the current stream.
	err error
}

// NewSession returns a Session talking to the controller at addr. The
// display is considered Off until RunInitializationSequence succeeds.
func NewSession(e Engine, addr uint16, powerOnDelay time.Duration) *Session {
	return &Session{e: e, addr: addr, powerOnDelay: powerOnDelay, sleep: time.Sleep}
}

func (s *Session) String() string {
	return fmt.Sprintf("%s@0x%02X", s.e, s.addr)
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// BeginCommandStream opens a transaction whose bytes are commands.
func (s *Session) BeginCommandStream() error {
	if err := s.begin(ControlCommandStream); err != nil {
		return err
	}
	if s.state == DataMode {
		s.state = CommandMode
	}
	return nil
}

// BeginDataStream opens a transaction whose bytes are written to display
// RAM. It fails with ErrDisplayOff before the display was initialized, in
// which case no transaction is opened and End is a no-op.
func (s *Session) BeginDataStream() error {
	if !s.state.On() {
		return ErrDisplayOff
	}
	if err := s.begin(ControlDataStream); err != nil {
		return err
	}
	s.state = DataMode
	return nil
}

func (s *Session) begin(control byte) error {
	if s.open {
		return twi.ErrSequence
	}
	s.open = true
	s.err = s.e.SendStart()
	if s.err == nil {
		s.err = s.e.SendAddress(s.addr, twi.Write)
	}
	if s.err == nil {
		s.err = s.e.SendByte(control)
	}
	return s.err
}

// WriteStream sends p in the open stream. It stops at the first byte that
// is not acknowledged and returns the number of bytes acknowledged.
//
// If opening the stream failed, nothing is sent and that error is returned.
func (s *Session) WriteStream(p []byte) (int, error) {
	if !s.open {
		return 0, twi.ErrSequence
	}
	if s.err != nil {
		return 0, s.err
	}
	for i, c := range p {
		if err := s.e.SendByte(c); err != nil {
			s.err = err
			return i, err
		}
	}
	return len(p), nil
}

// End closes the open stream with a stop condition.
func (s *Session) End() {
	if !s.open {
		return
	}
	s.e.SendStop()
	s.open = false
	s.err = nil
}

// Command sends c as one complete command transaction.
//
// It fails with twi.ErrSequence while a stream is open and leaves that stream
// untouched.
func (s *Session) Command(c ...byte) error {
	if s.open {
		return twi.ErrSequence
	}
	err := s.BeginCommandStream()
	if err == nil {
		_, err = s.WriteStream(c)
	}
	s.End()
	return err
}

// RunInitializationSequence validates t, sends it in one command stream and
// waits for the panel to power up. On failure the display stays Off.
func (s *Session) RunInitializationSequence(t InitTable) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if s.open {
		return twi.ErrSequence
	}
	s.state = Initializing
	if err := s.Command(t...); err != nil {
		s.state = Off
		return err
	}
	if s.powerOnDelay > 0 {
		s.sleep(s.powerOnDelay)
	}
	s.state = CommandMode
	return nil
}

// ReadStatus reads the status byte: bit 6 is set when the display is off,
// the low bits hold the controller ID.
func (s *Session) ReadStatus() (byte, error) {
	if s.open {
		return 0, twi.ErrSequence
	}
	err := s.e.SendStart()
	if err == nil {
		err = s.e.SendAddress(s.addr, twi.Read)
	}
	var c byte
	if err == nil {
		c, err = s.e.ReceiveByte(false)
	}
	s.e.SendStop()
	return c, err
}
