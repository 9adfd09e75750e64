// Package transport connects the navigator to its MQTT topics.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"robotnav/internal/config"
	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/perception"
)

// Source tags events received from the broker.
const Source = "mqtt"

const defaultTimeout = 5 * time.Second

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: timed out waiting for broker")

// client is the subset of mqtt.Client the bridge uses.
type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Submitter accepts decoded events, normally an event.Dispatcher.
type Submitter interface {
	Submit(ctx context.Context, ev event.Event) error
}

// NewClient builds a paho client for cfg. It does not connect.
func NewClient(cfg config.MQTT) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultTimeout).
		SetOrderMatters(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return mqtt.NewClient(opts)
}

// Bridge subscribes to the inbound topics and publishes controller output.
type Bridge struct {
	client  client
	topics  config.Topics
	qos     byte
	timeout time.Duration
	sensors *perception.Publisher
}

// NewBridge wraps c. Thresholds are used only when a sensors topic is
// configured.
func NewBridge(c client, cfg config.MQTT, t perception.Thresholds) *Bridge {
	b := &Bridge{
		client:  c,
		topics:  cfg.Topics,
		qos:     byte(cfg.QoS),
		timeout: defaultTimeout,
	}
	if cfg.Topics.Sensors != "" {
		b.sensors = perception.NewPublisher(t, b.publishPerception)
	}
	return b
}

func (b *Bridge) wait(tok mqtt.Token) error {
	if !tok.WaitTimeout(b.timeout) {
		return ErrTimeout
	}
	return tok.Error()
}

// Connect opens the broker connection.
func (b *Bridge) Connect(ctx context.Context) error {
	if err := b.wait(b.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	logging.FromContext(ctx).Info("mqtt connected")
	return nil
}

// Close disconnects, allowing 250ms for in-flight work.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}

// inbound maps each subscribed topic to its event kind.
func (b *Bridge) inbound() map[string]event.Kind {
	return map[string]event.Kind{
		b.topics.Mode:           event.KindMode,
		b.topics.ManualCommands: event.KindManual,
		b.topics.AutoCommands:   event.KindTarget,
		b.topics.Perceptions:    event.KindPerception,
		b.topics.Tags:           event.KindSighting,
	}
}

// Subscribe routes every inbound topic into sub. Payloads that fail to
// decode are logged and dropped.
func (b *Bridge) Subscribe(ctx context.Context, sub Submitter) error {
	log := logging.FromContext(ctx)
	for topic, kind := range b.inbound() {
		if err := b.wait(b.client.Subscribe(topic, b.qos, b.handler(ctx, kind, sub))); err != nil {
			return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
		}
		log.Debug("subscribed", "topic", topic, "kind", kind)
	}
	if b.sensors != nil {
		if err := b.wait(b.client.Subscribe(b.topics.Sensors, b.qos, b.sensorHandler(ctx))); err != nil {
			return fmt.Errorf("mqtt subscribe %s: %w", b.topics.Sensors, err)
		}
		log.Debug("subscribed", "topic", b.topics.Sensors, "kind", "sensors")
	}
	return nil
}

func (b *Bridge) handler(ctx context.Context, kind event.Kind, sub Submitter) mqtt.MessageHandler {
	log := logging.FromContext(ctx)
	return func(_ mqtt.Client, msg mqtt.Message) {
		ev, err := event.Decode(kind, msg.Payload())
		if err != nil {
			log.Warn("bad payload", "topic", msg.Topic(), "payload", string(msg.Payload()), "err", err)
			return
		}
		ev.Source = Source
		if err := sub.Submit(ctx, ev); err != nil {
			log.Warn("submit event", "topic", msg.Topic(), "err", err)
		}
	}
}

func (b *Bridge) sensorHandler(ctx context.Context) mqtt.MessageHandler {
	log := logging.FromContext(ctx)
	return func(_ mqtt.Client, msg mqtt.Message) {
		r, err := perception.ParseReadings(msg.Payload())
		if err != nil {
			log.Warn("bad sensor payload", "payload", string(msg.Payload()), "err", err)
			return
		}
		if _, err := b.sensors.Update(ctx, r); err != nil {
			log.Error("publish perception", "err", err)
		}
	}
}
