// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "fmt"

// MPU-6050/9250 register indices used by this driver.
const (
	RegSmplrtDiv    = 0x19
	RegConfig       = 0x1A
	RegGyroConfig   = 0x1B
	RegAccelConfig  = 0x1C
	RegAccelConfig2 = 0x1D
	RegFIFOEn       = 0x23
	RegIntPinCfg    = 0x37
	RegIntEnable    = 0x38
	RegIntStatus    = 0x3A
	RegAccelXoutH   = 0x3B // 14-byte burst: accel XYZ, temp, gyro XYZ
	RegTempOutH     = 0x41
	RegGyroXoutH    = 0x43
	RegUserCtrl     = 0x6A
	RegPwrMgmt1     = 0x6B
	RegPwrMgmt2     = 0x6C
	RegFIFOCountH   = 0x72
	RegFIFOCountL   = 0x73
	RegFIFORW       = 0x74
	RegWhoAmI       = 0x75
)

// Bits.
const (
	userCtrlDMPEn    = 1 << 7
	userCtrlFIFOEn   = 1 << 6
	userCtrlFIFORst  = 1 << 2
	userCtrlDMPRst   = 1 << 3
	intStatusFIFOOvf = 1 << 4
	pwrMgmt1ClkPLL   = 0x01
)

// BitField describes one field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is the metadata shown by the register debugger.
type RegisterInfo struct {
	Reg         byte       `json:"-"`
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// Readable reports whether reading the register is side-effect free, so it
// can be included in a dump. Reading FIFO_R_W pops data and reading
// INT_STATUS clears it.
func (r RegisterInfo) Readable() bool {
	if r.Reg == RegFIFORW || r.Reg == RegIntStatus {
		return false
	}
	return r.Access == "R" || r.Access == "RW"
}

func info(reg byte, name, desc, access, def string, fields ...BitField) RegisterInfo {
	return RegisterInfo{
		Reg:         reg,
		Address:     fmt.Sprintf("0x%02X", reg),
		Name:        name,
		Description: desc,
		Access:      access,
		Default:     def,
		BitFields:   fields,
	}
}

var registerMap = []RegisterInfo{
	// Configuration
	info(RegSmplrtDiv, "SMPLRT_DIV", "Sample Rate Divider", "RW", "0x00",
		BitField{"7:0", "SMPLRT_DIV", "Sample Rate = Internal_Sample_Rate / (1 + SMPLRT_DIV)", "0-255"}),
	info(RegConfig, "CONFIG", "Configuration (DLPF)", "RW", "0x00",
		BitField{"6", "FIFO_MODE", "FIFO mode", "0=Overwrite, 1=Block new data"},
		BitField{"2:0", "DLPF_CFG", "Digital Low Pass Filter", "0=250Hz, 1=184Hz, 2=92Hz, 3=41Hz, 4=20Hz, 5=10Hz, 6=5Hz"}),
	info(RegGyroConfig, "GYRO_CONFIG", "Gyroscope Configuration", "RW", "0x00",
		BitField{"4:3", "GYRO_FS_SEL", "Gyro Full Scale Range", "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"}),
	info(RegAccelConfig, "ACCEL_CONFIG", "Accelerometer Configuration", "RW", "0x00",
		BitField{"4:3", "ACCEL_FS_SEL", "Accel Full Scale Range", "0=±2g, 1=±4g, 2=±8g, 3=±16g"}),
	info(RegAccelConfig2, "ACCEL_CONFIG2", "Accelerometer Configuration 2", "RW", "0x00",
		BitField{"2:0", "A_DLPFCFG", "Accel DLPF Config", "0=460Hz ... 6=5Hz"}),
	info(RegFIFOEn, "FIFO_EN", "FIFO Enable", "RW", "0x00",
		BitField{"6:3", "GYRO/ACCEL", "Sensor data written to FIFO", ""}),

	// Interrupts
	info(RegIntPinCfg, "INT_PIN_CFG", "INT Pin / Bypass Enable Configuration", "RW", "0x00",
		BitField{"5", "LATCH_INT_EN", "Latch INT pin", "0=50us pulse, 1=Latch until cleared"},
		BitField{"1", "BYPASS_EN", "I2C bypass enable", "0=Disabled, 1=Enabled"}),
	info(RegIntEnable, "INT_ENABLE", "Interrupt Enable", "RW", "0x00",
		BitField{"4", "FIFO_OVERFLOW_EN", "FIFO overflow interrupt", "0=Disabled, 1=Enabled"},
		BitField{"1", "DMP_INT_EN", "DMP interrupt", "0=Disabled, 1=Enabled"},
		BitField{"0", "RAW_RDY_EN", "Raw data ready interrupt", "0=Disabled, 1=Enabled"}),
	info(RegIntStatus, "INT_STATUS", "Interrupt Status", "R", "0x00",
		BitField{"4", "FIFO_OVERFLOW_INT", "FIFO overflow", ""},
		BitField{"1", "DMP_INT", "DMP packet ready", ""},
		BitField{"0", "RAW_DATA_RDY_INT", "Raw data ready", ""}),

	// Sensor data
	info(0x3B, "ACCEL_XOUT_H", "Accelerometer X-Axis High Byte", "R", ""),
	info(0x3C, "ACCEL_XOUT_L", "Accelerometer X-Axis Low Byte", "R", ""),
	info(0x3D, "ACCEL_YOUT_H", "Accelerometer Y-Axis High Byte", "R", ""),
	info(0x3E, "ACCEL_YOUT_L", "Accelerometer Y-Axis Low Byte", "R", ""),
	info(0x3F, "ACCEL_ZOUT_H", "Accelerometer Z-Axis High Byte", "R", ""),
	info(0x40, "ACCEL_ZOUT_L", "Accelerometer Z-Axis Low Byte", "R", ""),
	info(0x41, "TEMP_OUT_H", "Temperature High Byte", "R", ""),
	info(0x42, "TEMP_OUT_L", "Temperature Low Byte", "R", ""),
	info(0x43, "GYRO_XOUT_H", "Gyroscope X-Axis High Byte", "R", ""),
	info(0x44, "GYRO_XOUT_L", "Gyroscope X-Axis Low Byte", "R", ""),
	info(0x45, "GYRO_YOUT_H", "Gyroscope Y-Axis High Byte", "R", ""),
	info(0x46, "GYRO_YOUT_L", "Gyroscope Y-Axis Low Byte", "R", ""),
	info(0x47, "GYRO_ZOUT_H", "Gyroscope Z-Axis High Byte", "R", ""),
	info(0x48, "GYRO_ZOUT_L", "Gyroscope Z-Axis Low Byte", "R", ""),

	// Control
	info(RegUserCtrl, "USER_CTRL", "User Control", "RW", "0x00",
		BitField{"7", "DMP_EN", "Enable DMP", "0=Disabled, 1=Enabled"},
		BitField{"6", "FIFO_EN", "Enable FIFO", "0=Disabled, 1=Enabled"},
		BitField{"3", "DMP_RST", "Reset DMP", "self-clearing"},
		BitField{"2", "FIFO_RST", "Reset FIFO", "self-clearing"}),
	info(RegPwrMgmt1, "PWR_MGMT_1", "Power Management 1", "RW", "0x01",
		BitField{"7", "H_RESET", "Device reset", "self-clearing"},
		BitField{"6", "SLEEP", "Sleep mode", "0=Awake, 1=Sleep"},
		BitField{"2:0", "CLKSEL", "Clock source", "0=Internal 20MHz, 1=Auto select PLL"}),
	info(RegPwrMgmt2, "PWR_MGMT_2", "Power Management 2", "RW", "0x00",
		BitField{"5:0", "DISABLE_XYZA/XYZG", "Disable individual axes", "0=Enabled"}),

	// FIFO
	info(RegFIFOCountH, "FIFO_COUNTH", "FIFO Count High Byte", "R", "0x00",
		BitField{"4:0", "FIFO_CNT[12:8]", "Bytes in FIFO, high bits", ""}),
	info(RegFIFOCountL, "FIFO_COUNTL", "FIFO Count Low Byte", "R", "0x00"),
	info(RegFIFORW, "FIFO_R_W", "FIFO Read/Write port", "RW", ""),

	info(RegWhoAmI, "WHO_AM_I", "Device identity", "R", "0x71",
		BitField{"7:0", "WHOAMI", "Identity", "0x68=MPU-6050, 0x70=MPU-6500, 0x71=MPU-9250, 0x73=MPU-9255"}),
}

// RegisterMap returns metadata for every register the driver knows about.
func RegisterMap() []RegisterInfo {
	out := make([]RegisterInfo, len(registerMap))
	copy(out, registerMap)
	return out
}

// LookupRegister returns the metadata for reg, if known.
func LookupRegister(reg byte) (RegisterInfo, bool) {
	for _, r := range registerMap {
		if r.Reg == reg {
			return r, true
		}
	}
	return RegisterInfo{}, false
}
