package input

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNoBroker is returned when an MQTTSwitch has no broker address.
var ErrNoBroker = errors.New("input: mqtt broker not configured")

// MQTTConfig configures an MQTTSwitch.
type MQTTConfig struct {
	Broker   string   // host:port or a full URL
	Topic    string   // e.g. zigbee2mqtt/scan-button
	ClientID string
	QoS      byte
	Actions  []string // accepted zigbee2mqtt "action" values; empty accepts any message
	Timeout  time.Duration
	Debounce time.Duration    // presses closer than this count once
	Now      func() time.Time // debounce clock, default time.Now
	Logger   *slog.Logger
}

// DefaultMQTTConfig returns defaults for a zigbee2mqtt push button.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Topic:    "scanboard/switch",
		ClientID: "scanboard",
		QoS:      1,
		Timeout:  5 * time.Second,
		Debounce: DefaultDebounce,
		Logger:   slog.Default(),
	}
}

// MQTTSwitch turns messages on a broker topic into presses, so smart
// buttons and zigbee switches can drive scanning.
type MQTTSwitch struct {
	cfg    MQTTConfig
	target *Debounced
	logger *slog.Logger

	mu        sync.RWMutex
	client    mqtt.Client
	connected bool
	presses   uint64
}

// NewMQTTSwitch creates a switch. Call Connect to subscribe.
func NewMQTTSwitch(target Target, cfg MQTTConfig) *MQTTSwitch {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTTSwitch{
		cfg:    cfg,
		target: NewDebounced(target, cfg.Debounce, cfg.Now),
		logger: cfg.Logger.With("component", "input.MQTTSwitch", "topic", cfg.Topic),
	}
}

// Connect connects to the broker and subscribes to the switch topic. The
// subscription is restored on every reconnect.
func (s *MQTTSwitch) Connect(ctx context.Context) error {
	if s.cfg.Broker == "" {
		return ErrNoBroker
	}

	broker := s.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()

		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handle)
		if !token.WaitTimeout(s.cfg.Timeout) {
			s.logger.Warn("mqtt subscribe timeout")
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Warn("mqtt subscribe failed", "error", err)
			return
		}
		s.logger.Info("mqtt switch subscribed", "broker", broker)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		s.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err)
	}

	client := mqtt.NewClient(opts)
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-time.After(s.cfg.Timeout):
		return fmt.Errorf("input: mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("input: mqtt connection failed: %w", err)
	}
	return nil
}

// handle is the subscription callback.
func (s *MQTTSwitch) handle(_ mqtt.Client, msg mqtt.Message) {
	if !s.accepts(msg.Payload()) {
		s.logger.Debug("mqtt message ignored", "size", len(msg.Payload()))
		return
	}

	if !s.target.TryPress(SourceMQTT) {
		s.logger.Debug("mqtt press debounced")
		return
	}

	s.mu.Lock()
	s.presses++
	s.mu.Unlock()
}

// accepts reports whether payload counts as a press. With no Actions
// configured every message is a press. Otherwise the payload must be a
// zigbee2mqtt JSON object whose "action" is one of Actions, or the bare
// action string.
func (s *MQTTSwitch) accepts(payload []byte) bool {
	if len(s.cfg.Actions) == 0 {
		return true
	}

	action := strings.TrimSpace(string(payload))
	var msg struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(payload, &msg); err == nil {
		action = msg.Action
	}
	if action == "" {
		return false
	}
	for _, a := range s.cfg.Actions {
		if strings.EqualFold(a, action) {
			return true
		}
	}
	return false
}

// IsConnected reports whether the broker connection is up.
func (s *MQTTSwitch) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Presses returns the number of accepted messages.
func (s *MQTTSwitch) Presses() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presses
}

// Close unsubscribes and disconnects.
func (s *MQTTSwitch) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.connected = false
	s.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return nil
	}
	token := client.Unsubscribe(s.cfg.Topic)
	token.WaitTimeout(s.cfg.Timeout)
	client.Disconnect(250)
	return nil
}
