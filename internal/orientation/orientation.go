// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation turns quaternion samples into gravity vectors and
// attitude angles. Everything here is pure and safe for concurrent use.
package orientation

import (
	"math"
)

// Pose is the human-readable attitude in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide quaternion samples over time:
// the DMP FIFO, the mock source, a replay.
type Source interface {
	Next() (Quaternion, error)
}

func deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// PoseFromEuler maps the direct conversion onto roll/pitch/yaw degrees
// (phi, theta, psi).
func PoseFromEuler(e Euler) Pose {
	return Pose{
		Roll:  deg(e.Phi),
		Pitch: deg(e.Theta),
		Yaw:   deg(e.Psi),
	}
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only,
// used when the DMP is not running. Yaw is 0.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  deg(rollRad),
		Pitch: deg(pitchRad),
		Yaw:   0,
	}
}

// AccelQuaternion builds the quaternion for the accelerometer-only tilt
// (roll about x, then pitch about y, no yaw).
func AccelQuaternion(ax, ay, az float64) Quaternion {
	roll := math.Atan2(ay, az)
	pitch := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
	return FromAxisRotations(roll, pitch, 0)
}
