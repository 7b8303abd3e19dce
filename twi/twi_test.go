// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi_test

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/oledtwi/twi"
	"github.com/GermanBionicSystems/oledtwi/twi/twitest"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const sensorAddr = 0x48

func newBus(t *testing.T, sim *twitest.Sim) *twi.Bus {
	t.Helper()
	b, err := twi.New(sim, &twi.Opts{Wait: twi.Bounded(100)})
	if err != nil {
		t.Fatal(err)
	}
	sim.Reset()
	return b
}

func kinds(events []twitest.Event) []twitest.Kind {
	out := make([]twitest.Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestNew(t *testing.T) {
	sim := twitest.New()
	b, err := twi.New(sim, &twi.Opts{Name: "bus", Wait: twi.Bounded(1)})
	if err != nil {
		t.Fatal(err)
	}
	if s := b.String(); s != "bus" {
		t.Fatalf("String() = %q", s)
	}
	if !sim.PullUps {
		t.Fatal("pull-ups not enabled")
	}
	if v := sim.BitRate(); v != 72 {
		t.Fatalf("bit rate = %d, want 72", v)
	}
	if v := sim.Read(twi.RegStatus) & 3; v != 0 {
		t.Fatalf("prescaler = %d, want 0", v)
	}
	if v := sim.Read(twi.RegControl); v&twi.CtrlEnable == 0 || v&twi.CtrlEnableAck == 0 {
		t.Fatalf("control = 0x%02X, want EN|EA", v)
	}
	if b.Speed() != 100*physic.KiloHertz {
		t.Fatalf("Speed() = %s", b.Speed())
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if sim.PullUps {
		t.Fatal("pull-ups still enabled after Close")
	}
	if v := sim.Read(twi.RegControl); v != 0 {
		t.Fatalf("control = 0x%02X after Close", v)
	}
}

func TestBitRate(t *testing.T) {
	data := []struct {
		cpu, scl physic.Frequency
		want     uint8
		err      bool
	}{
		{16 * physic.MegaHertz, 100 * physic.KiloHertz, 72, false},
		{16 * physic.MegaHertz, 400 * physic.KiloHertz, 12, false},
		{8 * physic.MegaHertz, 100 * physic.KiloHertz, 32, false},
		{16 * physic.MegaHertz, 2 * physic.MegaHertz, 0, true},
		{16 * physic.MegaHertz, 10 * physic.KiloHertz, 0, true},
		{16 * physic.MegaHertz, 0, 0, true},
	}
	for _, line := range data {
		got, err := twi.BitRate(line.cpu, line.scl)
		if (err != nil) != line.err {
			t.Errorf("BitRate(%s, %s) error = %v", line.cpu, line.scl, err)
			continue
		}
		if got != line.want {
			t.Errorf("BitRate(%s, %s) = %d, want %d", line.cpu, line.scl, got, line.want)
		}
	}
}

func TestSetSpeed(t *testing.T) {
	sim := twitest.New()
	b := newBus(t, sim)
	if err := b.SetSpeed(400 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	if v := sim.BitRate(); v != 12 {
		t.Fatalf("bit rate = %d, want 12", v)
	}
	if err := b.SetSpeed(physic.KiloHertz); err == nil {
		t.Fatal("expected error")
	}
}

func TestTx_write(t *testing.T) {
	dev := &twitest.Device{Address: sensorAddr}
	sim := twitest.New(dev)
	b := newBus(t, sim)
	if err := b.Tx(sensorAddr, []byte{0x01, 0xAA, 0xBB}, nil); err != nil {
		t.Fatal(err)
	}
	if dev.Regs[1] != 0xAA || dev.Regs[2] != 0xBB {
		t.Fatalf("registers = %#v", dev.Regs[:3])
	}
	want := []twitest.Event{
		{Kind: twitest.Start, Status: twi.StatusStart},
		{Kind: twitest.Address, Byte: 0x90, Status: twi.StatusAddrWriteAck},
		{Kind: twitest.Write, Byte: 0x01, Status: twi.StatusDataWriteAck},
		{Kind: twitest.Write, Byte: 0xAA, Status: twi.StatusDataWriteAck},
		{Kind: twitest.Write, Byte: 0xBB, Status: twi.StatusDataWriteAck},
		{Kind: twitest.Stop, Status: twi.StatusNoRelevantState},
	}
	if diff := cmp.Diff(want, sim.Events); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestTx_read(t *testing.T) {
	dev := &twitest.Device{Address: sensorAddr}
	dev.Regs[5] = 0x12
	dev.Regs[6] = 0x34
	sim := twitest.New(dev)
	b := newBus(t, sim)
	r := make([]byte, 2)
	if err := b.Tx(sensorAddr, []byte{5}, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x12, 0x34}, r); diff != "" {
		t.Fatalf("read (-want +got):\n%s", diff)
	}
	want := []twitest.Event{
		{Kind: twitest.Start, Status: twi.StatusStart},
		{Kind: twitest.Address, Byte: 0x90, Status: twi.StatusAddrWriteAck},
		{Kind: twitest.Write, Byte: 0x05, Status: twi.StatusDataWriteAck},
		{Kind: twitest.RepeatedStart, Status: twi.StatusRepeatedStart},
		{Kind: twitest.Address, Byte: 0x91, Status: twi.StatusAddrReadAck},
		{Kind: twitest.Read, Byte: 0x12, Status: twi.StatusDataReadAck},
		{Kind: twitest.Read, Byte: 0x34, Status: twi.StatusDataReadNack},
		{Kind: twitest.Stop, Status: twi.StatusNoRelevantState},
	}
	if diff := cmp.Diff(want, sim.Events); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestTx_addressNack(t *testing.T) {
	sim := twitest.New()
	b := newBus(t, sim)
	err := b.Tx(0x3C, []byte{0x00, 0xAF}, nil)
	if !errors.Is(err, twi.ErrNotAcknowledged) {
		t.Fatalf("err = %v, want ErrNotAcknowledged", err)
	}
	var pe *twi.PhaseError
	if !errors.As(err, &pe) || pe.Phase != twi.PhaseAddress || pe.Status != twi.StatusAddrWriteNack {
		t.Fatalf("err = %#v", err)
	}
	if o := twi.OutcomeOf(err); o != twi.NotAcknowledged {
		t.Fatalf("OutcomeOf() = %s", o)
	}
	want := []twitest.Kind{twitest.Start, twitest.Address, twitest.Stop}
	if diff := cmp.Diff(want, kinds(sim.Events)); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestTx_dataNack(t *testing.T) {
	dev := &twitest.Device{Address: sensorAddr, NackAfter: 1}
	sim := twitest.New(dev)
	b := newBus(t, sim)
	err := b.Tx(sensorAddr, []byte{1, 2, 3}, nil)
	if !errors.Is(err, twi.ErrNotAcknowledged) {
		t.Fatalf("err = %v, want ErrNotAcknowledged", err)
	}
	if diff := cmp.Diff([]byte{1, 2}, sim.Written()); diff != "" {
		t.Fatalf("written (-want +got):\n%s", diff)
	}
	if n := sim.Count(twitest.Stop); n != 1 {
		t.Fatalf("%d stops, want 1", n)
	}
}

func TestTx_probe(t *testing.T) {
	sim := twitest.New(&twitest.Device{Address: sensorAddr})
	b := newBus(t, sim)
	if err := b.Tx(sensorAddr, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(sensorAddr+1, nil, nil); !errors.Is(err, twi.ErrNotAcknowledged) {
		t.Fatalf("err = %v", err)
	}
}

func TestTx_record(t *testing.T) {
	rec := &i2ctest.Record{}
	target := &twitest.BusTarget{Bus: rec, Address: 0x3C}
	sim := twitest.New(target)
	b := newBus(t, sim)
	if err := b.Tx(0x3C, []byte{0x00, 0xAE}, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x3C, []byte{0x40, 0xFF, 0x00}, nil); err != nil {
		t.Fatal(err)
	}
	if target.Err != nil {
		t.Fatal(target.Err)
	}
	want := []i2ctest.IO{
		{Addr: 0x3C, W: []byte{0x00, 0xAE}},
		{Addr: 0x3C, W: []byte{0x40, 0xFF, 0x00}},
	}
	if diff := cmp.Diff(want, rec.Ops); diff != "" {
		t.Fatalf("ops (-want +got):\n%s", diff)
	}
}

func TestSendStart_unexpected(t *testing.T) {
	sim := twitest.New(&twitest.Device{Address: sensorAddr})
	sim.Faults = []twitest.Fault{{Tx: 0, Index: 0, Status: twi.StatusArbitrationLost}}
	b := newBus(t, sim)
	err := b.SendStart()
	if !errors.Is(err, twi.ErrUnexpectedStatus) {
		t.Fatalf("err = %v, want ErrUnexpectedStatus", err)
	}
	if o := twi.OutcomeOf(err); o != twi.UnexpectedStatus {
		t.Fatalf("OutcomeOf() = %s", o)
	}
	if err := b.SendAddress(sensorAddr, twi.Write); !errors.Is(err, twi.ErrSequence) {
		t.Fatalf("err = %v, want ErrSequence", err)
	}
	b.SendStop()
	if err := b.SendStart(); err != nil {
		t.Fatal(err)
	}
	b.SendStop()
}

func TestSendByte_unexpected(t *testing.T) {
	sim := twitest.New(&twitest.Device{Address: sensorAddr})
	sim.Faults = []twitest.Fault{{Tx: 0, Index: 2, Status: twi.StatusBusError}}
	b := newBus(t, sim)
	if err := b.SendStart(); err != nil {
		t.Fatal(err)
	}
	if err := b.SendAddress(sensorAddr, twi.Write); err != nil {
		t.Fatal(err)
	}
	err := b.SendByte(0x01)
	var pe *twi.PhaseError
	if !errors.As(err, &pe) || pe.Outcome != twi.UnexpectedStatus || pe.Phase != twi.PhaseData {
		t.Fatalf("err = %v", err)
	}
	b.SendStop()
}

func TestSequence(t *testing.T) {
	sim := twitest.New()
	b := newBus(t, sim)
	if err := b.SendAddress(sensorAddr, twi.Write); !errors.Is(err, twi.ErrSequence) {
		t.Fatalf("address before start: %v", err)
	}
	if err := b.SendByte(0); !errors.Is(err, twi.ErrSequence) {
		t.Fatalf("data before start: %v", err)
	}
	if err := b.SendStart(); err != nil {
		t.Fatal(err)
	}
	if err := b.SendStart(); !errors.Is(err, twi.ErrSequence) {
		t.Fatalf("double start: %v", err)
	}
	if err := b.Tx(sensorAddr, []byte{1}, nil); !errors.Is(err, twi.ErrSequence) {
		t.Fatalf("Tx during a transaction: %v", err)
	}
	if err := b.SendAddress(0x80, twi.Write); err == nil {
		t.Fatal("expected invalid address error")
	}
	if err := b.SendAddress(sensorAddr, twi.Write); !errors.Is(err, twi.ErrNotAcknowledged) {
		t.Fatalf("err = %v", err)
	}
	if err := b.SendByte(0); !errors.Is(err, twi.ErrSequence) {
		t.Fatalf("data after address NACK: %v", err)
	}
	b.SendStop()
	if n := sim.Count(twitest.Write); n != 0 {
		t.Fatalf("%d bytes written", n)
	}
}

func TestWait_bounded(t *testing.T) {
	dev := &twitest.Device{Address: sensorAddr}
	sim := twitest.New(dev)
	sim.Latency = 3
	b, err := twi.New(sim, &twi.Opts{Wait: twi.Bounded(4)})
	if err != nil {
		t.Fatal(err)
	}
	sim.Reset()
	if err := b.Tx(sensorAddr, []byte{1, 2}, nil); err != nil {
		t.Fatal(err)
	}
	// start, address and two bytes each take Latency+1 polls.
	if sim.Polls != 4*4 {
		t.Fatalf("polls = %d, want 16", sim.Polls)
	}

	b, err = twi.New(sim, &twi.Opts{Wait: twi.Bounded(3)})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(sensorAddr, []byte{1}, nil); !errors.Is(err, twi.ErrHang) {
		t.Fatalf("err = %v, want ErrHang", err)
	}
}

func TestWait_hang(t *testing.T) {
	sim := twitest.New()
	sim.Hang = true
	b := newBus(t, sim)
	if err := b.Tx(sensorAddr, []byte{1}, nil); !errors.Is(err, twi.ErrHang) {
		t.Fatalf("err = %v, want ErrHang", err)
	}
	if sim.Polls != 100 {
		t.Fatalf("polls = %d, want 100", sim.Polls)
	}
	if n := sim.Count(twitest.Stop); n != 1 {
		t.Fatalf("%d stops, want 1", n)
	}
}

func TestStrings(t *testing.T) {
	if s := twi.StatusAddrWriteNack.String(); s != "SLA+W NACK" {
		t.Fatal(s)
	}
	if s := twi.Status(0x68).String(); s != "status 0x68" {
		t.Fatal(s)
	}
	if s := twi.RegControl.String(); s != "TWCR" {
		t.Fatal(s)
	}
	e := &twi.PhaseError{Phase: twi.PhaseData, Status: twi.StatusDataWriteNack, Outcome: twi.NotAcknowledged}
	if s := e.Error(); s != "twi: data phase: NACK (data NACK)" {
		t.Fatal(s)
	}
	if twi.OutcomeOf(nil) != twi.Acknowledged {
		t.Fatal("nil is not acknowledged")
	}
	if twi.OutcomeOf(twi.ErrHang) != twi.UnexpectedStatus {
		t.Fatal("ErrHang")
	}
}
