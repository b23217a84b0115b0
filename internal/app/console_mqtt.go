package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_stream/internal/env"
	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/orientation"
)

func formatAttitude(a orientation.Attitude) string {
	return fmt.Sprintf(
		"[ATT ] ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  |  g=(%6.3f %6.3f %6.3f)  ypr=(%6.3f %6.3f %6.3f)",
		a.Pose.Roll, a.Pose.Pitch, a.Pose.Yaw,
		a.Gravity.X, a.Gravity.Y, a.Gravity.Z,
		a.YawPitchRoll.Yaw, a.YawPitchRoll.Pitch, a.YawPitchRoll.Roll,
	)
}

func formatRaw(s imu_raw.IMURaw) string {
	return fmt.Sprintf(
		"[IMU ] ax=%6d ay=%6d az=%6d  gx=%6d gy=%6d gz=%6d  t=%.1f°C",
		s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz, s.TempC(),
	)
}

func formatEnv(e env.Sample) string {
	return fmt.Sprintf("[ENV ] %s temp=%.2f°C pressure=%.2fhPa", e.Source, e.Temperature, e.PressureHPa)
}

// consoleHandler decodes a payload into T and prints it.
func consoleHandler[T any](out io.Writer, what string, format func(T) string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("console: %s unmarshal error: %v", what, err)
			return
		}
		fmt.Fprintln(out, format(v))
	}
}

// RunConsoleMQTT prints every sample published on topics until ctx is done.
func RunConsoleMQTT(ctx context.Context, client mqtt.Client, topics Topics, out io.Writer) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.Attitude, consoleHandler(out, "attitude", formatAttitude)},
		{topics.IMURaw, consoleHandler(out, "imu", formatRaw)},
		{topics.Env, consoleHandler(out, "env", formatEnv)},
	}
	for _, s := range subs {
		if s.topic == "" {
			continue
		}
		token := client.Subscribe(s.topic, 0, s.handler)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("console: subscribe %s: %w", s.topic, token.Error())
		}
		log.Printf("console: subscribed to %s", s.topic)
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
