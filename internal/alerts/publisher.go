package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const defaultAlertTopic = "emergency/alerts"

// brokerClient is the part of mqtt.Client the publisher uses.
type brokerClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes alert events as JSON to <topic>/<event type>.
type MQTTPublisher struct {
	client brokerClient
	topic  string
	qos    byte
	logger *logrus.Logger
}

// NewMQTTPublisher connects to the configured broker.
func NewMQTTPublisher(cfg domain.MQTTConfig, logger *logrus.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.WithFields(logrus.Fields{
		"broker": cfg.Broker,
		"topic":  cfg.Topic,
	}).Info("Connected to MQTT broker")

	return newMQTTPublisher(client, cfg.Topic, cfg.QoS, logger), nil
}

func newMQTTPublisher(client brokerClient, topic string, qos byte, logger *logrus.Logger) *MQTTPublisher {
	if topic == "" {
		topic = defaultAlertTopic
	}
	if qos > 2 {
		qos = 1
	}
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		qos:    qos,
		logger: logger,
	}
}

// Publish sends the event and waits for the broker acknowledgement or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, event *domain.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding alert event: %w", err)
	}

	topic := p.topic + "/" + event.Type
	token := p.client.Publish(topic, p.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":    topic,
		"alert_id": event.Alert.ID,
	}).Debug("Alert event published")
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements domain.AlertPublisher.
func (NopPublisher) Publish(context.Context, *domain.AlertEvent) error { return nil }

// Close implements domain.AlertPublisher.
func (NopPublisher) Close() error { return nil }
