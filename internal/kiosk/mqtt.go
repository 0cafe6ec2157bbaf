// Package kiosk ingests heartbeats that check-in kiosks publish over MQTT.
package kiosk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
	"github.com/hackgods/clinic-queue/internal/config"
)

const handleTimeout = 5 * time.Second

// HeartbeatRecorder is the part of the clinic service the subscriber needs.
type HeartbeatRecorder interface {
	RecordHeartbeat(ctx context.Context, in clinic.HeartbeatInput) (*clinic.SensorLog, error)
}

// NewMessageHandler decodes a heartbeat payload and records it. Malformed
// payloads are logged and skipped.
func NewMessageHandler(rec HeartbeatRecorder, logger *zap.Logger) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		var in clinic.HeartbeatInput
		if len(msg.Payload()) > 0 {
			if err := json.Unmarshal(msg.Payload(), &in); err != nil {
				logger.Warn("invalid heartbeat payload", zap.String("topic", msg.Topic()), zap.Error(err))
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		log, err := rec.RecordHeartbeat(ctx, in)
		if err != nil {
			logger.Warn("record heartbeat", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		logger.Debug("heartbeat recorded",
			zap.String("pi", log.PiIdentifier),
			zap.String("status", log.Status),
		)
	}
}

// Connect dials the broker and subscribes to the heartbeat topic. The
// subscription is renewed on every reconnect.
func Connect(cfg config.Config, rec HeartbeatRecorder, logger *zap.Logger) (mqtt.Client, error) {
	logger = logger.Named("mqtt")
	handler := NewMessageHandler(rec, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))
		token := client.Subscribe(cfg.MQTTHeartbeatTopic, 1, handler)
		if token.Wait() && token.Error() != nil {
			logger.Error("subscribe heartbeat topic", zap.String("topic", cfg.MQTTHeartbeatTopic), zap.Error(token.Error()))
			return
		}
		logger.Info("subscribed", zap.String("topic", cfg.MQTTHeartbeatTopic))
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.MQTTBroker, token.Error())
	}

	return client, nil
}
