// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "math"

// GimbalLockEpsilon is the width of the band around ±0.5 of the
// x·z − w·y term inside which ToAxisAngles uses its pole solution.
const GimbalLockEpsilon = 0.0001

// Vector is a body-frame 3-vector.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Euler holds the angles of the direct quaternion conversion, in radians.
type Euler struct {
	Psi   float64 `json:"psi"`
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// YawPitchRoll holds the gravity-based angles, in radians.
type YawPitchRoll struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// AxisAngles holds the gimbal-lock-aware rotation angles, in radians.
type AxisAngles struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Gravity projects the world down direction into the body frame. The result
// scales with |q|².
func Gravity(q Quaternion) Vector {
	return Vector{
		X: 2 * (q.X*q.Z - q.W*q.Y),
		Y: 2 * (q.W*q.X + q.Y*q.Z),
		Z: q.W*q.W - q.X*q.X - q.Y*q.Y + q.Z*q.Z,
	}
}

// EulerFromQuaternion converts q directly to psi/theta/phi. A noisy or
// unnormalized q that pushes the asin argument past ±1 yields theta = ∓π/2
// instead of NaN.
func EulerFromQuaternion(q Quaternion) Euler {
	return Euler{
		Psi:   math.Atan2(2*q.X*q.Y-2*q.W*q.Z, 2*q.W*q.W+2*q.X*q.X-1),
		Theta: -asinClamped(2*q.X*q.Z + 2*q.W*q.Y),
		Phi:   math.Atan2(2*q.Y*q.Z-2*q.W*q.X, 2*q.W*q.W+2*q.Z*q.Z-1),
	}
}

func asinClamped(v float64) float64 {
	switch {
	case v >= 1:
		return math.Pi / 2
	case v <= -1:
		return -math.Pi / 2
	}
	return math.Asin(v)
}

// ComputeYawPitchRoll derives yaw from q and pitch/roll from the gravity
// vector g (normally Gravity(q)).
//
// Pitch and roll are folded into [0, 2π): a positive tilt t becomes 2π − t
// and a negative one |t|.
func ComputeYawPitchRoll(q Quaternion, g Vector) YawPitchRoll {
	return YawPitchRoll{
		Yaw:   2 * math.Atan2(2*q.X*q.Y-2*q.W*q.Z, 2*q.W*q.W+2*q.X*q.X-1),
		Pitch: foldTilt(g.X, g.Y, g.Z),
		Roll:  foldTilt(g.Y, g.X, g.Z),
	}
}

// foldTilt returns the tilt of component a against the plane spanned by b
// and z, mirrored unless the device is upright (z > 0).
func foldTilt(a, b, z float64) float64 {
	var t float64
	if z > 0 {
		t = math.Atan(a / math.Sqrt(b*b+z*z))
	} else {
		t = -math.Pi - math.Atan(a/math.Sqrt(b*b+z*z))
	}
	if t > 0 {
		t -= 2 * math.Pi
	}
	if t < 0 {
		t = -t
	}
	return t
}

// ToAxisAngles converts q to rotation angles, switching to the pole
// solution when the device is within GimbalLockEpsilon of gimbal lock.
func ToAxisAngles(q Quaternion) AxisAngles {
	return ToAxisAnglesEps(q, GimbalLockEpsilon)
}

// ToAxisAnglesEps is ToAxisAngles with an explicit detection threshold.
func ToAxisAnglesEps(q Quaternion, eps float64) AxisAngles {
	test := q.X*q.Z - q.W*q.Y

	switch {
	case test > 0.5-eps: // north pole
		return AxisAngles{X: 2 * math.Atan2(q.Y, q.W), Y: math.Pi / 2, Z: 0}
	case test < -0.5+eps: // south pole
		return AxisAngles{X: -2 * math.Atan2(q.Y, q.W), Y: -math.Pi / 2, Z: 0}
	}

	sqy := q.Y * q.Y
	sqz := q.Z * q.Z
	sqw := q.W * q.W
	return AxisAngles{
		X: math.Atan2(2*(q.X*q.W+q.Y*q.Z), 1-2*(sqz+sqw)),
		Y: math.Asin(2 * test),
		Z: math.Atan2(2*(q.X*q.Y-q.Z*q.W), 1-2*(sqy+sqz)),
	}
}
