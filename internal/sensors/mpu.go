// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/orientation"
	"github.com/relabs-tech/imu_stream/internal/regbus"
)

// QuatPacketSize is the size of the quaternion at the head of every DMP
// FIFO packet: four big-endian Q30 int32 values.
const QuatPacketSize = 16

var (
	ErrUnknownDevice = errors.New("sensors: unknown WHO_AM_I")
	ErrNoSample      = errors.New("sensors: no complete FIFO packet")
	ErrFIFOOverflow  = errors.New("sensors: FIFO overflow, FIFO reset")
)

// KnownDevices maps WHO_AM_I values to part names.
var KnownDevices = map[byte]string{
	0x68: "MPU-6050",
	0x70: "MPU-6500",
	0x71: "MPU-9250",
	0x73: "MPU-9255",
}

// MPUOpts configures the device at bring-up.
type MPUOpts struct {
	SampleRateHz   int  // output data rate, 4..1000 Hz
	DLPF           byte // CONFIG.DLPF_CFG, 0..6
	AccelRange     byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	GyroRange      byte // 0=±250°/s .. 3=±2000°/s
	FIFOPacketSize int  // DMP packet size; the quaternion comes first
}

// DefaultMPUOpts matches the 100 Hz DMP output the firmware is built for.
var DefaultMPUOpts = MPUOpts{
	SampleRateHz:   100,
	DLPF:           3,
	AccelRange:     0,
	GyroRange:      3,
	FIFOPacketSize: QuatPacketSize,
}

func (o MPUOpts) validate() error {
	if o.SampleRateHz < 4 || o.SampleRateHz > 1000 {
		return fmt.Errorf("sample rate must be 4-1000 Hz, got %d", o.SampleRateHz)
	}
	if o.DLPF > 6 {
		return fmt.Errorf("DLPF must be 0-6, got %d", o.DLPF)
	}
	if o.AccelRange > 3 {
		return fmt.Errorf("accel range must be 0-3, got %d", o.AccelRange)
	}
	if o.GyroRange > 3 {
		return fmt.Errorf("gyro range must be 0-3, got %d", o.GyroRange)
	}
	if o.FIFOPacketSize < QuatPacketSize {
		return fmt.Errorf("FIFO packet size must be >= %d, got %d", QuatPacketSize, o.FIFOPacketSize)
	}
	return nil
}

// MPU drives an InvenSense MPU over a regbus.Device.
type MPU struct {
	name       string
	dev        *regbus.Device
	whoAmI     byte
	packetSize int
}

// NewMPU identifies the device and applies opts.
func NewMPU(dev *regbus.Device, opts MPUOpts) (*MPU, error) {
	name := fmt.Sprintf("mpu@0x%02X", dev.Addr())
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	m := &MPU{name: name, dev: dev, packetSize: opts.FIFOPacketSize}

	who, err := m.readReg(RegWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("%s: read WHO_AM_I: %w", name, err)
	}
	part, ok := KnownDevices[who]
	if !ok {
		return nil, fmt.Errorf("%s: %w 0x%02X", name, ErrUnknownDevice, who)
	}
	m.whoAmI = who
	log.Printf("%s: detected %s (WHO_AM_I=0x%02X)", name, part, who)

	// Wake up, clock from the gyro PLL.
	if err := m.writeReg(RegPwrMgmt1, pwrMgmt1ClkPLL); err != nil {
		return nil, err
	}

	div := byte(1000/opts.SampleRateHz - 1)
	if err := m.writeReg(RegSmplrtDiv, div); err != nil {
		return nil, err
	}
	log.Printf("%s: sample rate divider set to %d (output rate: %d Hz)", name, div, 1000/(1+int(div)))

	if err := m.writeReg(RegConfig, opts.DLPF&0x07); err != nil {
		return nil, err
	}
	log.Printf("%s: DLPF config set to %d", name, opts.DLPF)

	if err := m.writeReg(RegGyroConfig, opts.GyroRange<<3); err != nil {
		return nil, err
	}
	log.Printf("%s: gyroscope range set to %d (±%d°/s)", name, opts.GyroRange, []int{250, 500, 1000, 2000}[opts.GyroRange])

	if err := m.writeReg(RegAccelConfig, opts.AccelRange<<3); err != nil {
		return nil, err
	}
	log.Printf("%s: accelerometer range set to %d (±%dg)", name, opts.AccelRange, []int{2, 4, 8, 16}[opts.AccelRange])

	return m, nil
}

// Name returns the label used in logs and samples.
func (m *MPU) Name() string { return m.name }

// WhoAmI returns the identity byte read at bring-up.
func (m *MPU) WhoAmI() byte { return m.whoAmI }

// Device returns the register transport the driver uses.
func (m *MPU) Device() *regbus.Device { return m.dev }

func (m *MPU) readReg(reg byte) (byte, error) {
	return m.dev.ReadRegister(m.dev.Addr(), reg)
}

func (m *MPU) writeReg(reg, v byte) error {
	if _, err := m.dev.WriteRegister(m.dev.Addr(), reg, v); err != nil {
		return fmt.Errorf("%s: write 0x%02X to reg 0x%02X: %w", m.name, v, reg, err)
	}
	return nil
}

// ReadRaw reads accelerometer, temperature and gyroscope in one burst.
func (m *MPU) ReadRaw() (imu_raw.IMURaw, error) {
	b, err := m.dev.ReadBlock(m.dev.Addr(), RegAccelXoutH, 14)
	if err != nil {
		return imu_raw.IMURaw{}, fmt.Errorf("%s: motion burst: %w", m.name, err)
	}
	be := func(i int) int16 { return int16(binary.BigEndian.Uint16(b[i:])) }
	return imu_raw.IMURaw{
		Source: m.name,
		Ax:     be(0),
		Ay:     be(2),
		Az:     be(4),
		Temp:   be(6),
		Gx:     be(8),
		Gy:     be(10),
		Gz:     be(12),
	}, nil
}

// EnableDMP turns on the FIFO and the DMP and flushes the FIFO. The DMP
// firmware must already be loaded.
func (m *MPU) EnableDMP() error {
	if err := m.writeReg(RegUserCtrl, userCtrlDMPEn|userCtrlFIFOEn|userCtrlFIFORst|userCtrlDMPRst); err != nil {
		return err
	}
	log.Printf("%s: DMP and FIFO enabled", m.name)
	return nil
}

// ResetFIFO flushes the FIFO, keeping the enable bits as they are.
func (m *MPU) ResetFIFO() error {
	ctrl, err := m.readReg(RegUserCtrl)
	if err != nil {
		return fmt.Errorf("%s: read USER_CTRL: %w", m.name, err)
	}
	return m.writeReg(RegUserCtrl, ctrl|userCtrlFIFORst)
}

// FIFOCount returns the number of bytes waiting in the FIFO.
func (m *MPU) FIFOCount() (int, error) {
	b, err := m.dev.ReadBlock(m.dev.Addr(), RegFIFOCountH, 2)
	if err != nil {
		return 0, fmt.Errorf("%s: FIFO count: %w", m.name, err)
	}
	return int(binary.BigEndian.Uint16(b) & 0x1FFF), nil
}

// ReadFIFOQuaternion returns the newest quaternion in the FIFO, dropping
// older packets. It returns ErrNoSample when no full packet is available
// and ErrFIFOOverflow (after resetting the FIFO) when data was lost.
func (m *MPU) ReadFIFOQuaternion() (orientation.RawQuaternion, error) {
	status, err := m.readReg(RegIntStatus)
	if err != nil {
		return orientation.RawQuaternion{}, fmt.Errorf("%s: read INT_STATUS: %w", m.name, err)
	}
	if status&intStatusFIFOOvf != 0 {
		if err := m.ResetFIFO(); err != nil {
			return orientation.RawQuaternion{}, err
		}
		return orientation.RawQuaternion{}, ErrFIFOOverflow
	}

	count, err := m.FIFOCount()
	if err != nil {
		return orientation.RawQuaternion{}, err
	}
	if count < m.packetSize {
		return orientation.RawQuaternion{}, ErrNoSample
	}

	for ; count >= 2*m.packetSize; count -= m.packetSize {
		if _, err := m.dev.ReadBlock(m.dev.Addr(), RegFIFORW, m.packetSize); err != nil {
			return orientation.RawQuaternion{}, fmt.Errorf("%s: drain FIFO: %w", m.name, err)
		}
	}

	pkt, err := m.dev.ReadBlock(m.dev.Addr(), RegFIFORW, m.packetSize)
	if err != nil {
		return orientation.RawQuaternion{}, fmt.Errorf("%s: read FIFO: %w", m.name, err)
	}
	return DecodeRawQuaternion(pkt[:QuatPacketSize])
}

// DecodeRawQuaternion parses the 16-byte DMP quaternion.
func DecodeRawQuaternion(b []byte) (orientation.RawQuaternion, error) {
	if len(b) != QuatPacketSize {
		return orientation.RawQuaternion{}, fmt.Errorf("quaternion packet: want %d bytes, got %d", QuatPacketSize, len(b))
	}
	be := func(i int) int32 { return int32(binary.BigEndian.Uint32(b[i*4:])) }
	return orientation.RawQuaternion{Q0: be(0), Q1: be(1), Q2: be(2), Q3: be(3)}, nil
}

// DumpRegisters reads every register in the map that can be read without
// side effects.
func DumpRegisters(dev *regbus.Device) (map[byte]byte, error) {
	out := make(map[byte]byte)
	for _, r := range registerMap {
		if !r.Readable() {
			continue
		}
		v, err := dev.ReadRegister(dev.Addr(), r.Reg)
		if err != nil {
			return out, fmt.Errorf("dump %s (%s): %w", r.Name, r.Address, err)
		}
		out[r.Reg] = v
	}
	return out, nil
}

// DumpRegisters reads the mapped registers of this device.
func (m *MPU) DumpRegisters() (map[byte]byte, error) {
	regs, err := DumpRegisters(m.dev)
	if err != nil {
		return regs, fmt.Errorf("%s: %w", m.name, err)
	}
	return regs, nil
}

type dmpSource struct {
	mpu *MPU
}

// NewDMPSource returns an orientation.Source reading the DMP FIFO.
func NewDMPSource(m *MPU) orientation.Source {
	return &dmpSource{mpu: m}
}

func (s *dmpSource) Next() (orientation.Quaternion, error) {
	raw, err := s.mpu.ReadFIFOQuaternion()
	if err != nil {
		return orientation.Quaternion{}, err
	}
	return raw.Quaternion(), nil
}
