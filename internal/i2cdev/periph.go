// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package i2cdev

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Periph adapts a periph.io I2C bus to regbus.Bus. periph transactions are
// all-or-nothing, so a successful Tx counts as a full transfer and a failed
// one as zero bytes.
type Periph struct {
	dev    i2c.Dev
	closer io.Closer
}

// NewPeriph binds an already open periph bus to addr. The caller keeps
// ownership of bus.
func NewPeriph(bus i2c.Bus, addr uint16) *Periph {
	return &Periph{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// OpenPeriph initialises the periph host drivers and opens the named bus
// ("" selects the first one). Close releases the bus.
func OpenPeriph(name string, addr uint16) (*Periph, error) {
	bus, err := OpenPeriphBus(name)
	if err != nil {
		return nil, err
	}
	p := NewPeriph(bus, addr)
	p.closer = bus
	return p, nil
}

// OpenPeriphBus opens a shared periph bus, for devices that are not driven
// through regbus (the BMP280 next to the IMU).
func OpenPeriphBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2cdev: periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open periph bus %q: %w", name, err)
	}
	return bus, nil
}

func (p *Periph) Write(b []byte) (int, error) {
	if err := p.dev.Tx(b, nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *Periph) Read(b []byte) (int, error) {
	if err := p.dev.Tx(nil, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *Periph) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *Periph) String() string { return p.dev.String() }
