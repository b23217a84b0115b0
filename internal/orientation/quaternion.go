// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// DMPQuatScale is the Q30 fixed-point scale of DMP quaternion components:
// a raw value of 1<<30 is 1.0.
const DMPQuatScale = 1 << 30

// Quaternion is a rotation ordered {w,x,y,z}. The math in this package
// expects it normalized but does not enforce it.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Identity is the no-rotation quaternion.
var Identity = Quaternion{W: 1}

// RawQuaternion is one DMP sample in Q30 fixed point, q0 being w.
type RawQuaternion struct {
	Q0 int32 `json:"q0"`
	Q1 int32 `json:"q1"`
	Q2 int32 `json:"q2"`
	Q3 int32 `json:"q3"`
}

// Quaternion scales the fixed-point sample to floating point.
func (r RawQuaternion) Quaternion() Quaternion {
	return Quaternion{
		W: float64(r.Q0) / DMPQuatScale,
		X: float64(r.Q1) / DMPQuatScale,
		Y: float64(r.Q2) / DMPQuatScale,
		Z: float64(r.Q3) / DMPQuatScale,
	}
}

// Number converts to gonum's quaternion type.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// Norm returns |q|.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.Number())
}

// Normalize returns q scaled to unit length. The zero quaternion is
// returned unchanged.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return fromNumber(quat.Scale(1/n, q.Number()))
}

// DecodeFloatQuaternion decodes a device packet of four little-endian
// float32 values in {w,x,y,z} order.
func DecodeFloatQuaternion(b []byte) (Quaternion, error) {
	if len(b) != 16 {
		return Quaternion{}, fmt.Errorf("float quaternion: want 16 bytes, got %d", len(b))
	}
	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return Quaternion{W: f(0), X: f(1), Y: f(2), Z: f(3)}, nil
}
