// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"errors"
	"fmt"
)

// Phase is one atomic step of a bus transaction.
type Phase uint8

// Phases of a transaction, in the order they happen.
const (
	PhaseStart Phase = iota
	PhaseRepeatedStart
	PhaseAddress
	PhaseData
	PhaseReceive
	PhaseStop
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseRepeatedStart:
		return "repeated start"
	case PhaseAddress:
		return "address"
	case PhaseData:
		return "data"
	case PhaseReceive:
		return "receive"
	case PhaseStop:
		return "stop"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Outcome classifies a completed phase.
type Outcome uint8

// Possible outcomes.
const (
	Acknowledged Outcome = iota
	NotAcknowledged
	UnexpectedStatus
)

func (o Outcome) String() string {
	switch o {
	case Acknowledged:
		return "ACK"
	case NotAcknowledged:
		return "NACK"
	case UnexpectedStatus:
		return "unexpected status"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

var (
	// ErrNotAcknowledged is wrapped by a PhaseError when the receiver did
	// not acknowledge an address or data byte.
	ErrNotAcknowledged = errors.New("twi: not acknowledged")
	// ErrUnexpectedStatus is wrapped by a PhaseError when the status register
	// held neither the expected code nor the phase's NACK code. It indicates
	// bus contention or a wiring fault.
	ErrUnexpectedStatus = errors.New("twi: unexpected status")
	// ErrHang is returned by a bounded Waiter when the ready flag never set.
	ErrHang = errors.New("twi: ready flag never set")
	// ErrSequence is returned when a phase is issued out of order, for
	// example data before an acknowledged address.
	ErrSequence = errors.New("twi: phase out of sequence")
)

// PhaseError reports a phase that completed without acknowledgement.
type PhaseError struct {
	Phase   Phase
	Status  Status
	Outcome Outcome
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("twi: %s phase: %s (%s)", e.Phase, e.Outcome, e.Status)
}

// Unwrap returns ErrNotAcknowledged or ErrUnexpectedStatus.
func (e *PhaseError) Unwrap() error {
	if e.Outcome == NotAcknowledged {
		return ErrNotAcknowledged
	}
	return ErrUnexpectedStatus
}

// OutcomeOf maps the error returned by a phase back to its Outcome.
//
// nil is Acknowledged. Errors that are not phase failures, like ErrHang or
// ErrSequence, classify as UnexpectedStatus.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Acknowledged
	}
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Outcome
	}
	return UnexpectedStatus
}

// classify compares a status against the code expected for the phase and
// the phase's NACK code.
func classify(p Phase, s, ack, nack Status) error {
	switch s {
	case ack:
		return nil
	case nack:
		return &PhaseError{Phase: p, Status: s, Outcome: NotAcknowledged}
	}
	return &PhaseError{Phase: p, Status: s, Outcome: UnexpectedStatus}
}
