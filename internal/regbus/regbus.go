// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package regbus implements register read/write transactions against a
// single fixed-address device on a byte-oriented bus (I2C).
//
// Every write on the bus uses the buffer layout
//
//	[register, payload...]
//
// A read is a one-byte write selecting the register followed by a plain
// read of the requested length; the device auto-increments its register
// pointer for multi-byte reads.
package regbus

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// DefaultAddr is the 7-bit slave address of the MPU with AD0 low.
	DefaultAddr uint16 = 0x68

	// MaxRegister is the highest register index the device exposes (WHO_AM_I).
	MaxRegister byte = 0x75
)

var (
	ErrAddressMismatch = errors.New("regbus: slave address does not match device")
	ErrRegisterRange   = errors.New("regbus: register out of range")
	ErrEmptyBlock      = errors.New("regbus: zero-length block")
	ErrShortTransfer   = errors.New("regbus: short transfer")
	ErrClosed          = errors.New("regbus: device closed")
)

// Bus is an open connection already bound to the device's slave address.
// Write and Read report the number of bytes actually transferred, the way
// an i2c-dev file descriptor does.
type Bus interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
}

// TransferError reports a bus transaction that failed or moved fewer bytes
// than expected. It is never retried.
type TransferError struct {
	Op   string // "select", "read" or "write"
	Reg  byte
	Want int
	Got  int
	Err  error // underlying bus error, may be nil for a plain short transfer
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("regbus: %s reg 0x%02X: %d/%d bytes: %v", e.Op, e.Reg, e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("regbus: %s reg 0x%02X: %d/%d bytes", e.Op, e.Reg, e.Got, e.Want)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is makes every TransferError match ErrShortTransfer.
func (e *TransferError) Is(target error) bool { return target == ErrShortTransfer }

// Device is the handle for one slave on one bus. It owns the Bus for its
// lifetime. Transactions are serialised so a register select is never
// interleaved with another caller's read.
type Device struct {
	mu     sync.Mutex
	bus    Bus
	addr   uint16
	closed bool
}

// NewDevice binds bus to the slave address addr.
func NewDevice(bus Bus, addr uint16) *Device {
	return &Device{bus: bus, addr: addr}
}

// Addr returns the slave address the device was bound to.
func (d *Device) Addr() uint16 { return d.addr }

// Close releases the underlying bus if it is an io.Closer. Only the first
// call has an effect.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if c, ok := d.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Device) check(addr uint16, reg byte) error {
	if addr != d.addr {
		return fmt.Errorf("%w: got 0x%02X, device is 0x%02X", ErrAddressMismatch, addr, d.addr)
	}
	if reg > MaxRegister {
		return fmt.Errorf("%w: 0x%02X > 0x%02X", ErrRegisterRange, reg, MaxRegister)
	}
	return nil
}

// ReadRegister reads a single register.
func (d *Device) ReadRegister(addr uint16, reg byte) (byte, error) {
	b, err := d.ReadBlock(addr, reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteRegister writes one byte to reg and returns the number of bytes the
// bus accepted (2 on success). A short write also returns a TransferError.
func (d *Device) WriteRegister(addr uint16, reg, value byte) (int, error) {
	return d.WriteBlock(addr, reg, []byte{value})
}

// ReadBlock selects reg and reads n consecutive bytes.
func (d *Device) ReadBlock(addr uint16, reg byte, n int) ([]byte, error) {
	if err := d.check(addr, reg); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: read of %d bytes at 0x%02X", ErrEmptyBlock, n, reg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	got, err := d.bus.Write([]byte{reg})
	if err != nil || got != 1 {
		return nil, &TransferError{Op: "select", Reg: reg, Want: 1, Got: got, Err: err}
	}

	buf := make([]byte, n)
	got, err = d.bus.Read(buf)
	if err != nil || got != n {
		return nil, &TransferError{Op: "read", Reg: reg, Want: n, Got: got, Err: err}
	}
	return buf, nil
}

// WriteBlock writes data to consecutive registers starting at reg as one
// bus write of len(data)+1 bytes. It returns the byte count the bus accepted.
func (d *Device) WriteBlock(addr uint16, reg byte, data []byte) (int, error) {
	if err := d.check(addr, reg); err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: write at 0x%02X", ErrEmptyBlock, reg)
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reg)
	buf = append(buf, data...)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}

	got, err := d.bus.Write(buf)
	if err != nil || got != len(buf) {
		return got, &TransferError{Op: "write", Reg: reg, Want: len(buf), Got: got, Err: err}
	}
	return got, nil
}
