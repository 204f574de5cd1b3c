package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("timed out waiting for broker")

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

// MQTT is a Transport backed by an MQTT broker. Active subscriptions are
// replayed whenever the client reconnects, since the session is clean.
type MQTT struct {
	cfg    MQTTConfig
	client pahomqtt.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]pahomqtt.MessageHandler
}

// NewMQTT creates an MQTT transport. Connect must be called before use.
func NewMQTT(cfg MQTTConfig, logger *zap.Logger) *MQTT {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mqtt")
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	m := &MQTT{cfg: cfg, logger: logger, subs: make(map[string]pahomqtt.MessageHandler)}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(m.onConnect)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	m.client = pahomqtt.NewClient(opts)
	return m
}

// onConnect runs on every (re)connect and restores the subscriptions.
func (m *MQTT) onConnect(pahomqtt.Client) {
	m.logger.Info("mqtt connected", zap.String("broker_url", m.cfg.BrokerURL))
	m.mu.Lock()
	topics := make([]string, 0, len(m.subs))
	for topic := range m.subs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	handlers := make([]pahomqtt.MessageHandler, len(topics))
	for i, topic := range topics {
		handlers[i] = m.subs[topic]
	}
	m.mu.Unlock()

	for i, topic := range topics {
		token := m.client.Subscribe(topic, byte(Acknowledged), handlers[i])
		if err := m.wait(context.Background(), token, m.cfg.Timeout); err != nil {
			m.logger.Error("resubscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		m.logger.Debug("resubscribed", zap.String("topic", topic))
	}
}

// Connect opens the broker connection.
func (m *MQTT) Connect(ctx context.Context) error {
	if err := m.wait(ctx, m.client.Connect(), m.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("connect to %s: %w", m.cfg.BrokerURL, err)
	}
	return nil
}

// Disconnect closes the connection, allowing 250ms for in-flight work.
func (m *MQTT) Disconnect() {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
		m.logger.Info("mqtt disconnected")
	}
}

// Publish sends payload and waits for the broker acknowledgement matching qos.
func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	if err := m.wait(ctx, m.client.Publish(topic, byte(qos), false, payload), m.cfg.Timeout); err != nil {
		return &TransportError{Op: "publish", Topic: topic, Err: err}
	}
	return nil
}

// Subscribe registers h for topic. Messages are delivered on paho's goroutine.
func (m *MQTT) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	cb := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		h(msg.Topic(), msg.Payload())
	}
	if err := m.wait(ctx, m.client.Subscribe(topic, byte(Acknowledged), cb), m.cfg.Timeout); err != nil {
		return nil, &TransportError{Op: "subscribe", Topic: topic, Err: err}
	}
	m.mu.Lock()
	m.subs[topic] = cb
	m.mu.Unlock()
	return &mqttSubscription{topic: topic, m: m}, nil
}

func (m *MQTT) wait(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

type mqttSubscription struct {
	topic string
	m     *MQTT
}

func (s *mqttSubscription) Topic() string { return s.topic }

func (s *mqttSubscription) Unsubscribe(ctx context.Context) error {
	s.m.mu.Lock()
	delete(s.m.subs, s.topic)
	s.m.mu.Unlock()
	if err := s.m.wait(ctx, s.m.client.Unsubscribe(s.topic), s.m.cfg.Timeout); err != nil {
		return &TransportError{Op: "unsubscribe", Topic: s.topic, Err: err}
	}
	return nil
}
