// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package i2cdev provides the bus handles consumed by regbus: a Linux
// i2c-dev character device, or any periph.io I2C bus.
package i2cdev

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/imu_stream/internal/regbus"
)

// DefaultPath is the bus the IMU board is wired to on the BeagleBone / Pi.
const DefaultPath = "/dev/i2c-1"

// Driver selects which bus implementation Open uses.
type Driver string

const (
	DriverDev    Driver = "dev"    // raw /dev/i2c-N file
	DriverPeriph Driver = "periph" // periph.io i2creg
)

// BusCloser is a regbus.Bus that owns an OS resource.
type BusCloser interface {
	regbus.Bus
	Close() error
}

// Open opens the bus with the requested driver, bound to addr.
func Open(driver Driver, path string, addr uint16) (BusCloser, error) {
	switch driver {
	case DriverDev, "":
		return OpenDev(path, addr)
	case DriverPeriph:
		return OpenPeriph(PeriphBusName(path), addr)
	default:
		return nil, fmt.Errorf("i2cdev: unknown driver %q", driver)
	}
}

// PeriphBusName maps a /dev/i2c-N path to the periph bus name "N". Other
// names are returned unchanged.
func PeriphBusName(path string) string {
	return strings.TrimPrefix(path, "/dev/i2c-")
}
