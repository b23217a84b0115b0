package sensors

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_stream/internal/env"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// DefaultBMPAddr is the BMP280 address on GY-91 boards (SDO low).
const DefaultBMPAddr = 0x76

// EnvSensor reads the barometer that shares the bus with the IMU.
type EnvSensor struct {
	name string
	dev  *bmxx80.Dev
}

// NewEnvSensor initialises a BMP180/280/BME280 at addr on bus.
func NewEnvSensor(bus i2c.Bus, addr uint16) (*EnvSensor, error) {
	name := fmt.Sprintf("bmp@0x%02X", addr)
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("%s init: %w", name, err)
	}
	log.Printf("%s: initialized (%s)", name, dev)
	return &EnvSensor{name: name, dev: dev}, nil
}

// Read takes one temperature + pressure measurement.
func (s *EnvSensor) Read() (env.Sample, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("%s sense: %w", s.name, err)
	}

	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return env.Sample{
		Source:      s.name,
		Temperature: e.Temperature.Celsius(),
		Pressure:    pressurePa,
		PressureHPa: pressurePa / 100.0, // 1 hPa = 100 Pa
	}, nil
}

// Halt puts the sensor back to sleep.
func (s *EnvSensor) Halt() error {
	return s.dev.Halt()
}
