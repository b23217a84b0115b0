// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/num/quat"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a source that generates a smoothly changing
// rotation: slow yaw spin with gentle pitch and roll oscillation.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Quaternion, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	roll := 20 * math.Pi / 180 * math.Sin(elapsed)
	pitch := 15 * math.Pi / 180 * math.Cos(elapsed*0.7)
	yaw := math.Mod(elapsed*30, 360) * math.Pi / 180

	return FromAxisRotations(roll, pitch, yaw), nil
}

// FromAxisRotations composes rotations about z (yaw), y (pitch) and
// x (roll), in that order, into a unit quaternion.
func FromAxisRotations(roll, pitch, yaw float64) Quaternion {
	qx := axisRotation(quat.Number{Imag: 1}, roll)
	qy := axisRotation(quat.Number{Jmag: 1}, pitch)
	qz := axisRotation(quat.Number{Kmag: 1}, yaw)
	return fromNumber(quat.Mul(qz, quat.Mul(qy, qx)))
}

// axisRotation is cos(angle/2) + sin(angle/2)·axis for a unit
// pure-imaginary axis.
func axisRotation(axis quat.Number, angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Add(quat.Number{Real: c}, quat.Scale(s, axis))
}
