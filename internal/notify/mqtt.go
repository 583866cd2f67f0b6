package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/pkg/core"
	"github.com/bonvoyage/voyage/pkg/streaming"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var errNotConnected = errors.New("mqtt client not connected")

// MQTTSink publishes streaming envelopes to <prefix>/<vehicle id>/<type>.
type MQTTSink struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	outbox *Outbox
	logger *slog.Logger
}

// NewMQTT connects to the configured broker and starts the outbox.
func NewMQTT(cfg config.MQTTConfig, logger *slog.Logger) (*MQTTSink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker not configured")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}

	return NewMQTTWithClient(client, cfg, logger), nil
}

// NewMQTTWithClient wraps an existing client and starts the outbox.
func NewMQTTWithClient(client mqtt.Client, cfg config.MQTTConfig, logger *slog.Logger) *MQTTSink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "voyage"
	}
	s := &MQTTSink{client: client, cfg: cfg, logger: logger}
	s.outbox = NewOutbox(cfg.OutboxSize, 0, s.publish, logger)
	s.outbox.Start()
	return s
}

// Topic returns the topic of a message type for one vehicle.
func (s *MQTTSink) Topic(vehicleID, msgType string) string {
	return fmt.Sprintf("%s/%s/%s", s.cfg.TopicPrefix, vehicleID, msgType)
}

func (s *MQTTSink) publish(m Message) error {
	if !s.client.IsConnectionOpen() {
		return errNotConnected
	}
	token := s.client.Publish(m.Topic, s.cfg.QoS, s.cfg.Retain, m.Payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timed out")
	}
	return token.Error()
}

func (s *MQTTSink) enqueue(vehicleID, msgType string, payload any) {
	data, err := streaming.Encode(msgType, payload)
	if err != nil {
		s.logger.Error("failed to encode notification", "type", msgType, "vehicle", vehicleID, "error", err)
		return
	}
	s.outbox.Enqueue(Message{Topic: s.Topic(vehicleID, msgType), Payload: data})
}

func (s *MQTTSink) Arrived(e core.ArrivalEvent) {
	s.enqueue(e.VehicleID, streaming.TypeArrival, e)
}

func (s *MQTTSink) Stopped(e core.StopEvent) {
	s.enqueue(e.VehicleID, streaming.TypeStop, e)
}

func (s *MQTTSink) RecordProgress(e core.ProgressEvent) {
	s.enqueue(e.VehicleID, streaming.TypeProgress, e)
}

// PublishStatus queues a fleet status message for one vehicle.
func (s *MQTTSink) PublishStatus(p streaming.StatusPayload) {
	s.enqueue(p.VehicleID, streaming.TypeStatus, p)
}

// Pending returns the number of undelivered messages.
func (s *MQTTSink) Pending() int {
	return s.outbox.Pending()
}

// Close delivers what it can and disconnects.
func (s *MQTTSink) Close() error {
	err := s.outbox.Close()
	s.client.Disconnect(250)
	return err
}
