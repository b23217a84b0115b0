// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/imu_stream/internal/config"
)

var RootCmd = &cobra.Command{
	Use:   "imustream",
	Short: "stream attitude from an MPU over I2C",
	Long: `imustream reads quaternions from an InvenSense MPU over I2C, converts them
to gravity, Euler, yaw/pitch/roll and gimbal-aware axis angles, and publishes
the result over MQTT.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func RootCmdFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "KEY=VALUE configuration file (defaults when empty)")
	cmd.PersistentFlags().Bool("mock", false, "use an in-memory device instead of the I2C bus")
	cmd.PersistentFlags().Bool("debug", false, "toggle debug logging")
}

// setup loads the configuration and the log level before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		if err := config.InitGlobal(path); err != nil {
			return err
		}
	} else {
		config.SetGlobal(config.Default())
	}
	cfg := config.Get()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.Debugf("config: %+v", *cfg)
	return nil
}

func ProduceCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-mqtt", false, "do not publish to the broker")
	cmd.Flags().String("http", "", "serve the latest samples on this address (e.g. :8080)")
}

var ProduceCmd = &cobra.Command{
	Use: "produce",
	SuggestFor: []string{
		"prod", "pro", "run",
	},
	Short: "produce attitudes from the IMU and publish them",
	Long: `produce brings up the IMU, then on every sample period reads a quaternion
(from the DMP FIFO, or the accelerometer when IMU_USE_DMP=false), computes the
attitude and publishes it to TOPIC_ATTITUDE, with raw and env samples to
TOPIC_IMU_RAW and TOPIC_ENV.
The DMP path needs the DMP firmware already loaded into the MPU; without it
the FIFO stays empty and a warning is logged every 100 ticks. Set
IMU_USE_DMP=false to use the accelerometer instead.
With --mock the quaternions come from a synthetic smooth rotation.`,
	Example: `  imustream produce --config=/etc/imu_stream.txt
  imustream produce --mock --no-mqtt --http :8080`,
	RunE: runProduce,
}

func ConsoleCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("interval", 0, "mock console print interval (defaults to CONSOLE_LOG_INTERVAL)")
}

var ConsoleCmd = &cobra.Command{
	Use: "console",
	SuggestFor: []string{
		"con", "cons",
	},
	Short: "print attitudes published on the broker",
	Long: `console subscribes to TOPIC_ATTITUDE, TOPIC_IMU_RAW and TOPIC_ENV and prints
every message. With --mock it prints synthetic attitudes without a broker.`,
	Example: `  imustream console
  imustream console --mock --interval 100ms`,
	RunE: runConsole,
}

var RegDebugCmd = &cobra.Command{
	Use: "regdebug",
	SuggestFor: []string{
		"reg", "debug",
	},
	Short: "serve the register debugger websocket",
	Long: `regdebug serves /ws (register get_map, read, read_block, read_all, write,
export_config) and /api/imu on REGDEBUG_LISTEN. Writes are refused unless
REGDEBUG_ALLOW_WRITE=true.`,
	Example: `  imustream regdebug --mock`,
	RunE:    runRegDebug,
}

var DumpCmd = &cobra.Command{
	Use: "dump",
	SuggestFor: []string{
		"du", "regs",
	},
	Short:   "print every readable register",
	Example: `  imustream dump`,
	RunE:    runDump,
}

func CalibrateCmdFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("samples", "n", 100, "number of motion bursts to average")
	cmd.Flags().Duration("interval", 0, "delay between bursts (defaults to the sample period)")
	cmd.Flags().StringP("output", "o", "", "write the JSON result to this file instead of stdout")
}

var CalibrateCmd = &cobra.Command{
	Use: "calibrate",
	SuggestFor: []string{
		"cal", "calib",
	},
	Short: "estimate gyro and accel bias with the device lying still and flat",
	Example: `  imustream calibrate -n 200 -o bias.json`,
	RunE:    runCalibrate,
}

var rootOnce sync.Once

func getRootCmd() *cobra.Command {
	rootOnce.Do(registerCommands)
	return RootCmd
}

func registerCommands() {
	RootCmdFlags(RootCmd)

	ProduceCmdFlags(ProduceCmd)
	RootCmd.AddCommand(ProduceCmd)

	ConsoleCmdFlags(ConsoleCmd)
	RootCmd.AddCommand(ConsoleCmd)

	RootCmd.AddCommand(RegDebugCmd)
	RootCmd.AddCommand(DumpCmd)

	CalibrateCmdFlags(CalibrateCmd)
	RootCmd.AddCommand(CalibrateCmd)
}

func Execute() {
	rootCmd := getRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
