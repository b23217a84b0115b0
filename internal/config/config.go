// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration values.
type Config struct {
	// I2C
	I2CBus    string // /dev/i2c-N path, or a periph bus name
	I2CDriver string // "dev" or "periph"

	// IMU
	IMUI2CAddr      uint16
	IMUSampleRateHz int
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange  byte
	IMUDLPFConfig byte // 0-6
	IMUUseDMP     bool
	GimbalEpsilon float64

	// BMP (0 disables the env sensor)
	BMPI2CAddr uint16

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string

	// Topics
	TopicAttitude string
	TopicIMURaw   string
	TopicEnv      string

	// Timing
	ConsoleLogInterval int // milliseconds

	// Register debugger
	RegDebugListen     string
	RegDebugAllowWrite bool

	LogLevel string
}

// Default returns a configuration that works against a single MPU on
// /dev/i2c-1 and a local broker.
func Default() *Config {
	return &Config{
		I2CBus:               "/dev/i2c-1",
		I2CDriver:            "dev",
		IMUI2CAddr:           0x68,
		IMUSampleRateHz:      100,
		IMUAccelRange:        0,
		IMUGyroRange:         3,
		IMUDLPFConfig:        3,
		IMUUseDMP:            true,
		GimbalEpsilon:        0.0001,
		BMPI2CAddr:           0,
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "imu-stream-producer",
		MQTTClientIDConsole:  "imu-stream-console",
		TopicAttitude:        "imu/attitude",
		TopicIMURaw:          "imu/raw",
		TopicEnv:             "imu/env",
		ConsoleLogInterval:   1000,
		RegDebugListen:       ":8081",
		RegDebugAllowWrite:   false,
		LogLevel:             "info",
	}
}

// Package-level state for the process-wide configuration. InitGlobal sets
// it once, Get reads it under the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines. Empty lines and lines starting with # are
// skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRange(key, value string, max int) (byte, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < 0 || val > max {
		return 0, fmt.Errorf("%s must be 0-%d, got %d", key, max, val)
	}
	return byte(val), nil
}

func parseAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// I2C
	case "I2C_BUS":
		c.I2CBus = value
	case "I2C_DRIVER":
		if value != "dev" && value != "periph" {
			return fmt.Errorf("I2C_DRIVER must be dev or periph, got %q", value)
		}
		c.I2CDriver = value

	// IMU
	case "IMU_I2C_ADDR":
		c.IMUI2CAddr, err = parseAddr(key, value)
	case "IMU_SAMPLE_RATE_HZ":
		rate, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid IMU_SAMPLE_RATE_HZ %q: %w", value, perr)
		}
		if rate < 4 || rate > 1000 {
			return fmt.Errorf("IMU_SAMPLE_RATE_HZ must be 4-1000, got %d", rate)
		}
		c.IMUSampleRateHz = rate
	case "IMU_ACCEL_RANGE":
		c.IMUAccelRange, err = parseRange(key, value, 3)
	case "IMU_GYRO_RANGE":
		c.IMUGyroRange, err = parseRange(key, value, 3)
	case "IMU_DLPF_CFG":
		c.IMUDLPFConfig, err = parseRange(key, value, 6)
	case "IMU_USE_DMP":
		c.IMUUseDMP, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_USE_DMP %q: %w", value, err)
		}
	case "GIMBAL_EPSILON":
		eps, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid GIMBAL_EPSILON %q: %w", value, perr)
		}
		if eps < 0 || eps >= 1 {
			return fmt.Errorf("GIMBAL_EPSILON must be in [0, 1), got %g", eps)
		}
		c.GimbalEpsilon = eps

	// BMP
	case "BMP_I2C_ADDR":
		c.BMPI2CAddr, err = parseAddr(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_ATTITUDE":
		c.TopicAttitude = value
	case "TOPIC_IMU_RAW":
		c.TopicIMURaw = value
	case "TOPIC_ENV":
		c.TopicEnv = value

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		interval, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, perr)
		}
		c.ConsoleLogInterval = interval

	// Register debugger
	case "REGDEBUG_LISTEN":
		c.RegDebugListen = value
	case "REGDEBUG_ALLOW_WRITE":
		c.RegDebugAllowWrite, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REGDEBUG_ALLOW_WRITE %q: %w", value, err)
		}

	case "LOG_LEVEL":
		if _, perr := log.ParseLevel(value); perr != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, perr)
		}
		c.LogLevel = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.I2CBus == "" {
		return fmt.Errorf("I2C_BUS is required")
	}
	if c.IMUI2CAddr == 0 {
		return fmt.Errorf("IMU_I2C_ADDR is required")
	}
	if c.BMPI2CAddr != 0 && c.BMPI2CAddr == c.IMUI2CAddr {
		return fmt.Errorf("BMP_I2C_ADDR 0x%02X collides with IMU_I2C_ADDR", c.BMPI2CAddr)
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicAttitude == "" {
		return fmt.Errorf("TOPIC_ATTITUDE is required")
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", c.ConsoleLogInterval)
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Only the
// first call has an effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// SetGlobal installs cfg as the global configuration unless InitGlobal
// already ran. Used when no config file is given.
func SetGlobal(cfg *Config) {
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig = cfg
	})
}

// Get returns the global configuration instance.
// InitGlobal or SetGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
