package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// Socket.IO v5 packet types, carried inside Engine.IO messages.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

const handshakeTimeout = 10 * time.Second

var errServerDisconnect = errors.New("socket.io server disconnected")

type eioHandshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// SocketIOTransport speaks Socket.IO v5 over the Engine.IO v4 websocket
// transport, on the default namespace.
type SocketIOTransport struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewSocketIOTransport(serverURL string, logger *slog.Logger) *SocketIOTransport {
	return &SocketIOTransport{
		url:    serverURL,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: logger,
	}
}

// EngineIOURL turns http://host:port into ws://host:port/socket.io/?EIO=4&transport=websocket.
func EngineIOURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("socket.io url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("socket.io url: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *SocketIOTransport) Connect(ctx context.Context, onMessage MessageHandler) (<-chan error, error) {
	target, err := EngineIOURL(t.url)
	if err != nil {
		return nil, err
	}
	conn, _, err := t.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	hs, err := t.handshake(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	t.logger.Debug("socket.io connected", "sid", hs.SID, "ping_interval_ms", hs.PingInterval)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	lost := make(chan error, 1)
	go t.readLoop(conn, hs, onMessage, lost)
	return lost, nil
}

// handshake reads the Engine.IO open packet, joins the default namespace
// and waits for the server's acknowledgment.
func (t *SocketIOTransport) handshake(ctx context.Context, conn *websocket.Conn) (eioHandshake, error) {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	var hs eioHandshake
	frame, err := readText(conn)
	if err != nil {
		return hs, err
	}
	if len(frame) == 0 || frame[0] != eioOpen {
		return hs, fmt.Errorf("socket.io: expected open packet, got %q", frame)
	}
	if err := json.Unmarshal(frame[1:], &hs); err != nil {
		return hs, fmt.Errorf("socket.io open packet: %w", err)
	}

	if err := t.write(conn, []byte{eioMessage, sioConnect}); err != nil {
		return hs, err
	}

	for {
		frame, err := readText(conn)
		if err != nil {
			return hs, err
		}
		if len(frame) == 0 {
			continue
		}
		switch {
		case frame[0] == eioPing:
			if err := t.write(conn, []byte{eioPong}); err != nil {
				return hs, err
			}
		case len(frame) < 2 || frame[0] != eioMessage:
		case frame[1] == sioConnect:
			return hs, nil
		case frame[1] == sioConnectError:
			return hs, fmt.Errorf("socket.io connect refused: %s", frame[2:])
		}
	}
}

func (t *SocketIOTransport) readLoop(conn *websocket.Conn, hs eioHandshake, onMessage MessageHandler, lost chan<- error) {
	// The server pings every pingInterval; silence beyond that plus
	// pingTimeout means the connection is gone.
	var silence time.Duration
	if hs.PingInterval > 0 {
		silence = time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	}

	for {
		if silence > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(silence))
		}
		frame, err := readText(conn)
		if err != nil {
			lost <- err
			return
		}
		if len(frame) == 0 {
			continue
		}

		switch frame[0] {
		case eioPing:
			if err := t.write(conn, []byte{eioPong}); err != nil {
				lost <- err
				return
			}
		case eioClose:
			lost <- errServerDisconnect
			return
		case eioMessage:
			if len(frame) > 1 && frame[1] == sioDisconnect {
				lost <- errServerDisconnect
				return
			}
			t.dispatch(frame[1:], onMessage)
		case eioPong, eioNoop:
		default:
			t.logger.Debug("skip engine.io packet", "type", string(frame[0]))
		}
	}
}

func (t *SocketIOTransport) dispatch(packet []byte, onMessage MessageHandler) {
	if len(packet) == 0 || packet[0] != sioEvent {
		return
	}
	event, data, err := DecodeSocketIOEvent(packet[1:])
	if err != nil {
		t.logger.Warn("invalid socket.io event", "error", err)
		return
	}
	onMessage(event, data)
}

// DecodeSocketIOEvent parses the body of an EVENT packet:
// [/namespace,][ackID]["event", data].
func DecodeSocketIOEvent(body []byte) (string, []byte, error) {
	if len(body) > 0 && body[0] == '/' {
		i := bytes.IndexByte(body, ',')
		if i < 0 {
			return "", nil, errors.New("unterminated namespace")
		}
		body = body[i+1:]
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}

	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return "", nil, err
	}
	if len(args) == 0 {
		return "", nil, errors.New("empty event")
	}
	var event string
	if err := json.Unmarshal(args[0], &event); err != nil || event == "" {
		return "", nil, fmt.Errorf("event name: %s", args[0])
	}
	if len(args) < 2 {
		return event, nil, nil
	}
	return event, args[1], nil
}

// EncodeSocketIOEvent frames an event on the default namespace.
func EncodeSocketIOEvent(event string, payload []byte) ([]byte, error) {
	name, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteByte(eioMessage)
	b.WriteByte(sioEvent)
	b.WriteByte('[')
	b.Write(name)
	if len(payload) > 0 {
		b.WriteByte(',')
		b.Write(payload)
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (t *SocketIOTransport) Publish(event string, payload []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	frame, err := EncodeSocketIOEvent(event, payload)
	if err != nil {
		return err
	}
	return t.write(conn, frame)
}

func (t *SocketIOTransport) Close() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return
	}

	_ = t.write(conn, []byte{eioMessage, sioDisconnect})
	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	conn.Close()
}

func (t *SocketIOTransport) write(conn *websocket.Conn, frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func readText(conn *websocket.Conn) ([]byte, error) {
	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage {
			return frame, nil
		}
	}
}

var _ Transport = (*SocketIOTransport)(nil)
