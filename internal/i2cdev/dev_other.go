// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !linux

package i2cdev

import "errors"

// Dev is only available on Linux.
type Dev struct{}

func OpenDev(path string, addr uint16) (*Dev, error) {
	return nil, errors.New("i2cdev: i2c-dev is only supported on linux")
}

func (d *Dev) Write(p []byte) (int, error) { return 0, errors.New("i2cdev: unsupported") }
func (d *Dev) Read(p []byte) (int, error)  { return 0, errors.New("i2cdev: unsupported") }
func (d *Dev) Close() error                { return nil }
