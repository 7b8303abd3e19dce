// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import "fmt"

// Reg identifies one register of the TWI peripheral.
type Reg uint8

// Registers of the peripheral. The layout follows the ATmega TWI block.
const (
	RegBitRate Reg = iota // TWBR
	RegStatus             // TWSR; status in bits 7..3, prescaler in bits 1..0
	RegData               // TWDR
	RegControl            // TWCR
)

func (r Reg) String() string {
	switch r {
	case RegBitRate:
		return "TWBR"
	case RegStatus:
		return "TWSR"
	case RegData:
		return "TWDR"
	case RegControl:
		return "TWCR"
	default:
		return fmt.Sprintf("Reg(%d)", uint8(r))
	}
}

// Control register bits.
const (
	CtrlInt       = 1 << 7 // TWINT; set by hardware when a phase completes, written 1 to clear
	CtrlEnableAck = 1 << 6 // TWEA
	CtrlStart     = 1 << 5 // TWSTA
	CtrlStop      = 1 << 4 // TWSTO
	CtrlWriteCol  = 1 << 3 // TWWC
	CtrlEnable    = 1 << 2 // TWEN
	CtrlIntEnable = 1 << 0 // TWIE
)

// StatusMask selects the status bits of RegStatus.
const StatusMask = 0xF8

// prescalerMask selects the prescaler bits of RegStatus.
const prescalerMask = 0x03

// Status is the masked content of the status register.
type Status uint8

// Status codes of the master transmitter and master receiver modes.
const (
	StatusBusError        Status = 0x00
	StatusStart           Status = 0x08
	StatusRepeatedStart   Status = 0x10
	StatusAddrWriteAck    Status = 0x18
	StatusAddrWriteNack   Status = 0x20
	StatusDataWriteAck    Status = 0x28
	StatusDataWriteNack   Status = 0x30
	StatusArbitrationLost Status = 0x38
	StatusAddrReadAck     Status = 0x40
	StatusAddrReadNack    Status = 0x48
	StatusDataReadAck     Status = 0x50
	StatusDataReadNack    Status = 0x58
	StatusNoRelevantState Status = 0xF8
)

func (s Status) String() string {
	switch s {
	case StatusBusError:
		return "bus error"
	case StatusStart:
		return "start transmitted"
	case StatusRepeatedStart:
		return "repeated start transmitted"
	case StatusAddrWriteAck:
		return "SLA+W ACK"
	case StatusAddrWriteNack:
		return "SLA+W NACK"
	case StatusDataWriteAck:
		return "data ACK"
	case StatusDataWriteNack:
		return "data NACK"
	case StatusArbitrationLost:
		return "arbitration lost"
	case StatusAddrReadAck:
		return "SLA+R ACK"
	case StatusAddrReadNack:
		return "SLA+R NACK"
	case StatusDataReadAck:
		return "data received, ACK returned"
	case StatusDataReadNack:
		return "data received, NACK returned"
	case StatusNoRelevantState:
		return "no relevant state"
	default:
		return fmt.Sprintf("status 0x%02X", uint8(s))
	}
}

// Peripheral is the register file of a TWI bus master.
//
// Read and Write must not block. A Write to RegControl with CtrlInt set
// launches the phase encoded by the other control bits; completion is
// signaled by CtrlInt reading back as set.
type Peripheral interface {
	Read(r Reg) uint8
	Write(r Reg, v uint8)
}

// PullUpper is implemented by peripherals that own the bus lines' internal
// pull-up resistors.
type PullUpper interface {
	PullUp(enable bool) error
}
