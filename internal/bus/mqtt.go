package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

type MQTTTransport struct {
	cfg    MQTTConfig
	logger *slog.Logger

	mu     sync.Mutex
	client paho.Client
}

func NewMQTTTransport(cfg MQTTConfig, logger *slog.Logger) *MQTTTransport {
	return &MQTTTransport{cfg: cfg, logger: logger}
}

func (t *MQTTTransport) Connect(ctx context.Context, onMessage MessageHandler) (<-chan error, error) {
	lost := make(chan error, 1)

	// Reconnection is driven by Client.Run.
	opts := paho.NewClientOptions().
		AddBroker(t.cfg.BrokerURL).
		SetClientID(t.cfg.ClientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(10 * time.Second).
		SetOrderMatters(true)

	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		select {
		case lost <- err:
		default:
		}
	})

	client := paho.NewClient(opts)
	if err := waitToken(ctx, client.Connect()); err != nil {
		return nil, err
	}

	handler := func(_ paho.Client, msg paho.Message) {
		event, err := ParseEventName(msg.Topic(), t.cfg.TopicPrefix)
		if err != nil {
			t.logger.Warn("skip invalid bus topic", "topic", msg.Topic(), "error", err)
			return
		}
		onMessage(event, msg.Payload())
	}
	if err := waitToken(ctx, client.Subscribe(TopicInbound(t.cfg.TopicPrefix), 1, handler)); err != nil {
		client.Disconnect(100)
		return nil, err
	}

	t.mu.Lock()
	t.client = client
	t.mu.Unlock()
	return lost, nil
}

func (t *MQTTTransport) Publish(event string, payload []byte) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := client.Publish(TopicOutbound(t.cfg.TopicPrefix, event), 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("mqtt publish timeout")
	}
	return token.Error()
}

func (t *MQTTTransport) Close() {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
}

func waitToken(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
