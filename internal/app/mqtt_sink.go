// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_stream/internal/env"
	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/orientation"
)

// Topics names where each kind of sample goes. An empty topic is not
// published.
type Topics struct {
	Attitude string
	IMURaw   string
	Env      string
}

// MQTTSink publishes samples as retained JSON messages.
type MQTTSink struct {
	client mqtt.Client
	topics Topics
}

// ConnectMQTT connects a client to broker.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// NewMQTTSink publishes through an already connected client.
func NewMQTTSink(client mqtt.Client, topics Topics) *MQTTSink {
	return &MQTTSink{client: client, topics: topics}
}

func (s *MQTTSink) publish(topic string, v any) error {
	if topic == "" {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	token := s.client.Publish(topic, 0, true, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, err)
	}
	return nil
}

func (s *MQTTSink) PublishAttitude(a orientation.Attitude) error {
	return s.publish(s.topics.Attitude, a)
}

func (s *MQTTSink) PublishRaw(r imu_raw.IMURaw) error {
	return s.publish(s.topics.IMURaw, r)
}

func (s *MQTTSink) PublishEnv(e env.Sample) error {
	return s.publish(s.topics.Env, e)
}

// Close disconnects the client.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

// MultiSink fans every sample out to all sinks.
type MultiSink []AttitudeSink

func (m MultiSink) PublishAttitude(a orientation.Attitude) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishAttitude(a))
	}
	return errors.Join(errs...)
}

func (m MultiSink) PublishRaw(r imu_raw.IMURaw) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishRaw(r))
	}
	return errors.Join(errs...)
}

func (m MultiSink) PublishEnv(e env.Sample) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishEnv(e))
	}
	return errors.Join(errs...)
}
