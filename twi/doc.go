// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twi is a two-wire bus master engine driving a TWI peripheral at the
// register level.
//
// A transaction is the sequence start, address, data bytes, stop. Each phase
// is launched by writing the control register, waits for the peripheral's
// ready flag and classifies the status register as acknowledged, not
// acknowledged or unexpected. The engine keeps track of where it is in the
// transaction and refuses phases out of order.
//
// Bus also implements i2c.Bus so any periph device driver can run on it.
//
// The ready flag is polled through a Waiter. Spin never gives up, like the
// hardware; Bounded gives up after a fixed number of polls and is what tests
// and simulators use.
//
// # Datasheet
//
// ATmega328P, chapter 22 "2-wire Serial Interface":
// https://ww1.microchip.com/downloads/en/DeviceDoc/Atmel-7810-Automotive-Microcontrollers-ATmega328P_Datasheet.pdf
package twi
