// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build linux

package i2cdev

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ioctl requests from <linux/i2c-dev.h>.
const (
	ioctlI2CSlave  = 0x0703
	ioctlI2CTenBit = 0x0704
)

// Dev is an open /dev/i2c-N file bound to one slave address with 7-bit
// addressing. Read and Write map to single read(2)/write(2) calls, so the
// byte counts they return are what the adapter actually transferred.
type Dev struct {
	path string
	fd   int
}

// OpenDev opens path and binds it to addr.
func OpenDev(path string, addr uint16) (*Dev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s: %w", path, err)
	}

	if err := unix.IoctlSetInt(fd, ioctlI2CTenBit, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("i2cdev: %s: set 7-bit addressing: %w", path, err)
	}

	if err := unix.IoctlSetInt(fd, ioctlI2CSlave, int(addr)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("i2cdev: %s: acquire slave 0x%02X: %w", path, addr, err)
	}

	return &Dev{path: path, fd: fd}, nil
}

func (d *Dev) Write(p []byte) (int, error) {
	n, err := unix.Write(d.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *Dev) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *Dev) Close() error {
	if err := unix.Close(d.fd); err != nil {
		return fmt.Errorf("i2cdev: close %s: %w", d.path, err)
	}
	return nil
}

func (d *Dev) String() string { return d.path }
