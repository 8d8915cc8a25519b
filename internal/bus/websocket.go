package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebSocketTransport exchanges {"event", "data"} JSON text frames.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWebSocketTransport(url string, logger *slog.Logger) *WebSocketTransport {
	return &WebSocketTransport{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

func (t *WebSocketTransport) Connect(ctx context.Context, onMessage MessageHandler) (<-chan error, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	lost := make(chan error, 1)
	go t.readLoop(conn, onMessage, lost)
	return lost, nil
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn, onMessage MessageHandler, lost chan<- error) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			lost <- err
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil || env.Event == "" {
			t.logger.Warn("invalid bus frame", "error", err)
			continue
		}
		onMessage(env.Event, env.Data)
	}
}

func (t *WebSocketTransport) Publish(event string, payload []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(envelope{Event: event, Data: payload})
}

func (t *WebSocketTransport) Close() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return
	}

	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	conn.Close()
}
