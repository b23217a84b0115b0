// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package regbus

import (
	"errors"
	"sync"
)

// Loopback is an in-memory register file that behaves like a device on the
// bus: the first byte of every write selects the register pointer, the rest
// are stored from there on, and reads continue from the pointer. Both
// directions auto-increment and wrap at MaxRegister. A register with a
// queue (see Queue) behaves like a FIFO port: reads drain the queue and the
// pointer stays put.
//
// It backs the mock mode of the tools and the transport tests.
type Loopback struct {
	mu     sync.Mutex
	regs   [int(MaxRegister) + 1]byte
	ptr    byte
	reads  int
	writes int

	// ShortBy, when > 0, makes every transfer move that many bytes fewer
	// than requested.
	ShortBy int
	// Fail, when non-nil, is returned by every transfer.
	Fail error

	queues map[byte][]byte
}

var errNoData = errors.New("loopback: empty transfer")

// NewLoopback returns a register file preset with the given values.
func NewLoopback(preset map[byte]byte) *Loopback {
	l := &Loopback{}
	for reg, v := range preset {
		if reg <= MaxRegister {
			l.regs[reg] = v
		}
	}
	return l
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes++
	if l.Fail != nil {
		return 0, l.Fail
	}
	if len(p) == 0 {
		return 0, errNoData
	}
	n := len(p) - l.ShortBy
	if n < 0 {
		n = 0
	}
	if n == 0 {
		return 0, nil
	}
	if p[0] > MaxRegister {
		return 0, ErrRegisterRange
	}
	l.ptr = p[0]
	for _, b := range p[1:n] {
		l.regs[l.ptr] = b
		l.advance()
	}
	return n, nil
}

func (l *Loopback) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	if l.Fail != nil {
		return 0, l.Fail
	}
	n := len(p) - l.ShortBy
	if n < 0 {
		n = 0
	}
	if q, ok := l.queues[l.ptr]; ok {
		for i := 0; i < n; i++ {
			if len(q) == 0 {
				l.queues[l.ptr] = q
				return i, nil
			}
			p[i], q = q[0], q[1:]
		}
		l.queues[l.ptr] = q
		return n, nil
	}
	for i := 0; i < n; i++ {
		p[i] = l.regs[l.ptr]
		l.advance()
	}
	return n, nil
}

func (l *Loopback) advance() {
	if l.ptr >= MaxRegister {
		l.ptr = 0
		return
	}
	l.ptr++
}

// Queue appends data to the FIFO port at reg.
func (l *Loopback) Queue(reg byte, data ...byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queues == nil {
		l.queues = make(map[byte][]byte)
	}
	l.queues[reg] = append(l.queues[reg], data...)
}

// Reg returns the current content of a register.
func (l *Loopback) Reg(reg byte) byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.regs[reg]
}

// SetReg overwrites a register without counting as a bus transfer.
func (l *Loopback) SetReg(reg, v byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.regs[reg] = v
}

// Reads returns how many Read calls reached the bus.
func (l *Loopback) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Writes returns how many Write calls reached the bus.
func (l *Loopback) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}
