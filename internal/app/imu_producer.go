// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_stream/internal/env"
	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/orientation"
	"github.com/relabs-tech/imu_stream/internal/sensors"
)

// ErrDegenerateSample is returned by Step for a quaternion with zero or NaN
// norm (e.g. an all-zero FIFO packet). Nothing is published for it.
var ErrDegenerateSample = errors.New("degenerate quaternion")

// NoSampleWarnTicks is how many consecutive ticks without a FIFO sample Run
// waits before warning.
const NoSampleWarnTicks = 100

// AttitudeSink receives what the producer derives on every tick.
type AttitudeSink interface {
	PublishAttitude(orientation.Attitude) error
	PublishRaw(imu_raw.IMURaw) error
	PublishEnv(env.Sample) error
}

// EnvReader is the barometer next to the IMU.
type EnvReader interface {
	Read() (env.Sample, error)
}

// Producer turns sensor reads into attitudes. Only Sink is required; with
// no Source the attitude comes from the accelerometer alone.
type Producer struct {
	Source  orientation.Source
	Raw     imu_raw.IMURawSource
	Env     EnvReader
	Sink    AttitudeSink
	Epsilon float64

	// LogInterval throttles the tick summary; 0 disables it.
	LogInterval time.Duration

	lastLog  time.Time
	ticks    int
	noSample int
}

// Step runs one tick at time t.
func (p *Producer) Step(t time.Time) error {
	if p.Sink == nil {
		return errors.New("producer: no sink")
	}

	var (
		raw    imu_raw.IMURaw
		rawErr error
	)
	if p.Raw != nil {
		raw, rawErr = p.Raw.ReadRaw()
	}

	var att orientation.Attitude
	switch {
	case p.Source != nil:
		q, err := p.Source.Next()
		if err != nil {
			return fmt.Errorf("producer: orientation: %w", err)
		}
		if n := q.Norm(); n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("producer: orientation: %w %+v", ErrDegenerateSample, q)
		}
		att = orientation.ComputeAttitude(t, q, p.Epsilon)
	case p.Raw != nil:
		if rawErr != nil {
			return fmt.Errorf("producer: raw read: %w", rawErr)
		}
		ax, ay, az := float64(raw.Ax), float64(raw.Ay), float64(raw.Az)
		att = orientation.ComputeAttitude(t, orientation.AccelQuaternion(ax, ay, az), p.Epsilon)
		att.Pose = orientation.ComputePoseFromAccel(ax, ay, az)
	default:
		return errors.New("producer: no orientation source and no raw reader")
	}

	if err := p.Sink.PublishAttitude(att); err != nil {
		return fmt.Errorf("producer: publish attitude: %w", err)
	}

	if p.Raw != nil {
		if rawErr != nil {
			log.Warnf("producer: raw read: %v", rawErr)
		} else if err := p.Sink.PublishRaw(raw); err != nil {
			log.Warnf("producer: publish raw: %v", err)
		}
	}

	if p.Env != nil {
		if s, err := p.Env.Read(); err != nil {
			log.Warnf("producer: env read: %v", err)
		} else if err := p.Sink.PublishEnv(s); err != nil {
			log.Warnf("producer: publish env: %v", err)
		}
	}

	p.ticks++
	p.logTick(t, att, raw)
	return nil
}

func (p *Producer) logTick(t time.Time, att orientation.Attitude, raw imu_raw.IMURaw) {
	if p.LogInterval <= 0 || t.Sub(p.lastLog) < p.LogInterval {
		return
	}
	p.lastLog = t
	log.Printf("%s tick %d: pose R=%.2f P=%.2f Y=%.2f | g=(%.3f %.3f %.3f) | accel ax=%d ay=%d az=%d | gyro gx=%d gy=%d gz=%d",
		t.Format(time.RFC3339), p.ticks,
		att.Pose.Roll, att.Pose.Pitch, att.Pose.Yaw,
		att.Gravity.X, att.Gravity.Y, att.Gravity.Z,
		raw.Ax, raw.Ay, raw.Az,
		raw.Gx, raw.Gy, raw.Gz,
	)
}

// Ticks returns how many ticks completed.
func (p *Producer) Ticks() int { return p.ticks }

// Run calls Step on every tick of interval until ctx is done. Tick errors
// are logged and the loop continues.
func (p *Producer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("producer: interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("producer: running every %v", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("producer: stopping after %d ticks", p.ticks)
			return nil
		case t := <-ticker.C:
			p.tickDone(p.Step(t))
		}
	}
}

// tickDone logs a tick error. An empty FIFO is normal between DMP packets
// and only logged at debug level, unless it lasts NoSampleWarnTicks ticks.
func (p *Producer) tickDone(err error) {
	if !errors.Is(err, sensors.ErrNoSample) {
		p.noSample = 0
		if err != nil {
			log.Warnf("%v", err)
		}
		return
	}
	p.noSample++
	if p.noSample%NoSampleWarnTicks == 0 {
		log.Warnf("producer: no FIFO sample for %d ticks; is the DMP firmware loaded?", p.noSample)
		return
	}
	log.Debugf("%v", err)
}

// IntervalForRate converts a sample rate to a tick interval.
func IntervalForRate(hz int) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}
