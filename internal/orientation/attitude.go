// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "time"

// Attitude is everything derived from one quaternion sample.
type Attitude struct {
	Time         time.Time    `json:"time"`
	Quaternion   Quaternion   `json:"quaternion"`
	Gravity      Vector       `json:"gravity"`
	Euler        Euler        `json:"euler"`
	YawPitchRoll YawPitchRoll `json:"ypr"`
	Axis         AxisAngles   `json:"axis"`
	Pose         Pose         `json:"pose"`
}

// ComputeAttitude runs every conversion on q. eps is the gimbal-lock
// threshold; pass GimbalLockEpsilon for the default.
func ComputeAttitude(t time.Time, q Quaternion, eps float64) Attitude {
	g := Gravity(q)
	e := EulerFromQuaternion(q)
	return Attitude{
		Time:         t,
		Quaternion:   q,
		Gravity:      g,
		Euler:        e,
		YawPitchRoll: ComputeYawPitchRoll(q, g),
		Axis:         ToAxisAnglesEps(q, eps),
		Pose:         PoseFromEuler(e),
	}
}
