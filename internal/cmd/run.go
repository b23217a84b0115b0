// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/imu_stream/internal/app"
	"github.com/relabs-tech/imu_stream/internal/config"
	"github.com/relabs-tech/imu_stream/internal/i2cdev"
	"github.com/relabs-tech/imu_stream/internal/orientation"
	"github.com/relabs-tech/imu_stream/internal/regbus"
	"github.com/relabs-tech/imu_stream/internal/sensors"
)

// mockRegisters is the power-on state of the in-memory device: an MPU-9250
// lying flat (+1 g on z at ±2g).
func mockRegisters() map[byte]byte {
	return map[byte]byte{
		sensors.RegWhoAmI:   0x71,
		sensors.RegPwrMgmt1: 0x01,
		0x3F:                0x40, // ACCEL_ZOUT_H
	}
}

// openDevice opens the IMU register transport.
func openDevice(cfg *config.Config, mock bool) (*regbus.Device, error) {
	if mock {
		log.Println("using in-memory mock device")
		return regbus.NewDevice(regbus.NewLoopback(mockRegisters()), cfg.IMUI2CAddr), nil
	}
	bus, err := i2cdev.Open(i2cdev.Driver(cfg.I2CDriver), cfg.I2CBus, cfg.IMUI2CAddr)
	if err != nil {
		return nil, err
	}
	log.Printf("opened %s bus %s for 0x%02X", cfg.I2CDriver, cfg.I2CBus, cfg.IMUI2CAddr)
	return regbus.NewDevice(bus, cfg.IMUI2CAddr), nil
}

func mpuOpts(cfg *config.Config) sensors.MPUOpts {
	return sensors.MPUOpts{
		SampleRateHz:   cfg.IMUSampleRateHz,
		DLPF:           cfg.IMUDLPFConfig,
		AccelRange:     cfg.IMUAccelRange,
		GyroRange:      cfg.IMUGyroRange,
		FIFOPacketSize: sensors.QuatPacketSize,
	}
}

func openMPU(cfg *config.Config, mock bool) (*sensors.MPU, error) {
	dev, err := openDevice(cfg, mock)
	if err != nil {
		return nil, err
	}
	mpu, err := sensors.NewMPU(dev, mpuOpts(cfg))
	if err != nil {
		dev.Close()
		return nil, err
	}
	return mpu, nil
}

func isMock(cmd *cobra.Command) bool {
	mock, _ := cmd.Flags().GetBool("mock")
	return mock
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		log.Printf("HTTP listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server: %v", err)
		}
	}()
}

func runProduce(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	mock := isMock(cmd)

	mpu, err := openMPU(cfg, mock)
	if err != nil {
		return err
	}
	defer mpu.Device().Close()

	p := &app.Producer{
		Raw:         mpu,
		Epsilon:     cfg.GimbalEpsilon,
		LogInterval: time.Duration(cfg.ConsoleLogInterval) * time.Millisecond,
	}

	switch {
	case mock:
		log.Println("using mock orientation source")
		p.Source = orientation.NewMockSource()
	case cfg.IMUUseDMP:
		if err := mpu.EnableDMP(); err != nil {
			return err
		}
		p.Source = sensors.NewDMPSource(mpu)
	default:
		log.Println("DMP disabled, attitude from accelerometer only")
	}

	if !mock && cfg.BMPI2CAddr != 0 {
		bus, err := i2cdev.OpenPeriphBus(i2cdev.PeriphBusName(cfg.I2CBus))
		if err != nil {
			log.Warnf("env sensor disabled: %v", err)
		} else {
			defer bus.Close()
			envSensor, err := sensors.NewEnvSensor(bus, cfg.BMPI2CAddr)
			if err != nil {
				log.Warnf("env sensor disabled: %v", err)
			} else {
				defer envSensor.Halt()
				p.Env = envSensor
			}
		}
	}

	topics := app.Topics{Attitude: cfg.TopicAttitude, IMURaw: cfg.TopicIMURaw, Env: cfg.TopicEnv}
	var sinks app.MultiSink

	if noMQTT, _ := cmd.Flags().GetBool("no-mqtt"); !noMQTT {
		client, err := app.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
		if err != nil {
			return err
		}
		mqttSink := app.NewMQTTSink(client, topics)
		defer mqttSink.Close()
		sinks = append(sinks, mqttSink)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if addr, _ := cmd.Flags().GetString("http"); addr != "" {
		latest := &app.LatestSamples{}
		sinks = append(sinks, latest)
		serveHTTP(ctx, addr, latest.Handler())
	}
	if len(sinks) == 0 {
		return errors.New("produce: nothing to publish to (--no-mqtt without --http)")
	}
	p.Sink = sinks

	return p.Run(ctx, app.IntervalForRate(cfg.IMUSampleRateHz))
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	ctx, cancel := signalContext()
	defer cancel()

	if isMock(cmd) {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
		}
		return app.RunMockConsole(ctx, orientation.NewMockSource(), interval, cfg.GimbalEpsilon, cmd.OutOrStdout())
	}

	client, err := app.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	topics := app.Topics{Attitude: cfg.TopicAttitude, IMURaw: cfg.TopicIMURaw, Env: cfg.TopicEnv}
	return app.RunConsoleMQTT(ctx, client, topics, cmd.OutOrStdout())
}

func runRegDebug(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	mpu, err := openMPU(cfg, isMock(cmd))
	if err != nil {
		return err
	}
	defer mpu.Device().Close()

	s := app.NewRegisterDebugServer(mpu.Device(), cfg.RegDebugAllowWrite, mpu)
	if cfg.RegDebugAllowWrite {
		log.Printf("register writes enabled for %v", app.WritableRegisters())
	}

	log.Printf("register debug tool listening on %s", cfg.RegDebugListen)
	return http.ListenAndServe(cfg.RegDebugListen, s.Handler())
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	mpu, err := openMPU(cfg, isMock(cmd))
	if err != nil {
		return err
	}
	defer mpu.Device().Close()

	regs, err := mpu.DumpRegisters()
	if err != nil {
		return err
	}
	return printDump(cmd.OutOrStdout(), regs)
}

func printDump(w io.Writer, regs map[byte]byte) error {
	addrs := make([]int, 0, len(regs))
	for reg := range regs {
		addrs = append(addrs, int(reg))
	}
	sort.Ints(addrs)
	for _, a := range addrs {
		reg := byte(a)
		name := "?"
		if info, ok := sensors.LookupRegister(reg); ok {
			name = info.Name
		}
		if _, err := fmt.Fprintf(w, "0x%02X  %-14s 0x%02X\n", reg, name, regs[reg]); err != nil {
			return err
		}
	}
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	mpu, err := openMPU(cfg, isMock(cmd))
	if err != nil {
		return err
	}
	defer mpu.Device().Close()

	n, _ := cmd.Flags().GetInt("samples")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 && !isMock(cmd) {
		interval = app.IntervalForRate(cfg.IMUSampleRateHz)
	}

	res, err := app.CalibrateStatic(mpu, n, interval, cfg.IMUAccelRange)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		log.Printf("calibration written to %s", path)
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
