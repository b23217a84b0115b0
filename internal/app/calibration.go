// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
)

// CalibrationResult is the static bias estimate written by the calibrate
// command. Biases are in raw counts.
type CalibrationResult struct {
	Version   int       `json:"version"`
	Device    string    `json:"device"`
	Timestamp time.Time `json:"timestamp"`

	GyroBiasX        float64 `json:"gyro_bias_x"`
	GyroBiasY        float64 `json:"gyro_bias_y"`
	GyroBiasZ        float64 `json:"gyro_bias_z"`
	GyroStaticStdDev float64 `json:"gyro_static_stddev"`
	GyroConfidence   float64 `json:"gyro_confidence"`

	// Device lying flat: x and y read 0 g, z reads +1 g.
	AccelBiasX      float64 `json:"accel_bias_x"`
	AccelBiasY      float64 `json:"accel_bias_y"`
	AccelBiasZ      float64 `json:"accel_bias_z"`
	AccelAvgStdDev  float64 `json:"accel_avg_stddev"`
	AccelConfidence float64 `json:"accel_confidence"`

	TotalSamples int `json:"total_samples"`
}

// AccelCountsPerG returns the accelerometer sensitivity for a full-scale
// range setting (0=±2g .. 3=±16g).
func AccelCountsPerG(accelRange byte) float64 {
	return float64(int(16384) >> (accelRange & 0x03))
}

// CalibrateStatic averages n motion bursts taken every interval while the
// device lies still and flat.
func CalibrateStatic(src imu_raw.IMURawSource, n int, interval time.Duration, accelRange byte) (CalibrationResult, error) {
	if n < 2 {
		return CalibrationResult{}, errors.New("calibration: need at least 2 samples")
	}

	var gx, gy, gz, ax, ay, az []float64
	var device string
	for i := 0; i < n; i++ {
		r, err := src.ReadRaw()
		if err != nil {
			return CalibrationResult{}, fmt.Errorf("calibration: sample %d: %w", i, err)
		}
		device = r.Source
		gx = append(gx, float64(r.Gx))
		gy = append(gy, float64(r.Gy))
		gz = append(gz, float64(r.Gz))
		ax = append(ax, float64(r.Ax))
		ay = append(ay, float64(r.Ay))
		az = append(az, float64(r.Az))
		if interval > 0 && i < n-1 {
			time.Sleep(interval)
		}
	}

	res := CalibrationResult{Version: 1, Device: device, Timestamp: time.Now(), TotalSamples: n}

	var sx, sy, sz float64
	res.GyroBiasX, sx = stat.MeanStdDev(gx, nil)
	res.GyroBiasY, sy = stat.MeanStdDev(gy, nil)
	res.GyroBiasZ, sz = stat.MeanStdDev(gz, nil)
	res.GyroStaticStdDev = (sx + sy + sz) / 3.0
	res.GyroConfidence = confidence(res.GyroStaticStdDev)

	oneG := AccelCountsPerG(accelRange)
	res.AccelBiasX, sx = stat.MeanStdDev(ax, nil)
	res.AccelBiasY, sy = stat.MeanStdDev(ay, nil)
	res.AccelBiasZ, sz = stat.MeanStdDev(az, nil)
	res.AccelBiasZ -= oneG
	res.AccelAvgStdDev = (sx + sy + sz) / 3.0
	res.AccelConfidence = confidence(res.AccelAvgStdDev / oneG * 1000)

	log.Printf("calibration: %s gyro bias=(%.1f %.1f %.1f) σ=%.2f | accel bias=(%.1f %.1f %.1f) σ=%.2f | %d samples",
		device,
		res.GyroBiasX, res.GyroBiasY, res.GyroBiasZ, res.GyroStaticStdDev,
		res.AccelBiasX, res.AccelBiasY, res.AccelBiasZ, res.AccelAvgStdDev,
		n,
	)
	return res, nil
}

// confidence maps noise to a 0-100 score; a still sensor scores near 100.
func confidence(stddev float64) float64 {
	return 100.0 / (1.0 + stddev/10.0)
}
