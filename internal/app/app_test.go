package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lagrace/internal/bus"
	"lagrace/internal/config"
	"lagrace/internal/domain"
	"lagrace/internal/speech/stt"
)

type recordingEngine struct {
	mu   sync.Mutex
	said []string
}

func (e *recordingEngine) Say(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.said = append(e.said, text)
	return nil
}

func (e *recordingEngine) Stop() {}

func (e *recordingEngine) spoken() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.said...)
}

type loopbackTransport struct {
	mu     sync.Mutex
	events []string
	handle bus.MessageHandler
}

func (l *loopbackTransport) Connect(_ context.Context, onMessage bus.MessageHandler) (<-chan error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handle = onMessage
	return make(chan error), nil
}

func (l *loopbackTransport) Publish(event string, _ []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *loopbackTransport) Close() {}

func (l *loopbackTransport) published() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *loopbackTransport) deliver(event, payload string) {
	l.mu.Lock()
	h := l.handle
	l.mu.Unlock()
	h(event, []byte(payload))
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Wake: config.WakeConfig{Word: "lagrace", Variations: []string{"lagrace"}, Timeout: time.Second},
		Bus: config.BusConfig{
			Transport:         "none",
			ReconnectDelay:    time.Millisecond,
			MaxReconnectDelay: 10 * time.Millisecond,
			KeepaliveInterval: time.Hour,
			PrintTimeout:      time.Second,
			QueueSize:         8,
		},
		DB: config.DBConfig{
			Driver:      "sqlite",
			SearchPaths: []string{filepath.Join(t.TempDir(), "missing.db")},
		},
		Announce: config.AnnounceConfig{DedupWindow: time.Second, StockLowPerMinute: 1, StockLowBurst: 1},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppLifecycle(t *testing.T) {
	engine := &recordingEngine{}
	transport := &loopbackTransport{}
	a, err := New(context.Background(), testConfig(t), Collaborators{Engine: engine, Transport: transport}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, a.Store())

	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool {
		return len(transport.published()) > 0 && len(engine.spoken()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, bus.EventConnected, transport.published()[0])

	transport.deliver("debt:paid", `{"client":"Ilunga"}`)
	require.Eventually(t, func() bool {
		for _, s := range engine.spoken() {
			if s == "Parfait ! Ilunga a réglé sa dette. Merci !" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	reply := a.Session().HandleText(context.Background(), "stock de mosquito")
	assert.Contains(t, reply, "base de données")

	a.Stop(context.Background())
	assert.Contains(t, transport.published(), bus.EventDisconnecting)
	assert.GreaterOrEqual(t, len(engine.spoken()), 3)
}

// fakeMic flushes a final result when stopped, the way Vosk does.
type fakeMic struct {
	mu       sync.Mutex
	onResult func(stt.Result)
	active   bool
	starts   int
}

func (m *fakeMic) Start(_ context.Context, onResult func(stt.Result)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResult = onResult
	m.active = true
	m.starts++
	return nil
}

func (m *fakeMic) Stop() {
	m.mu.Lock()
	cb, wasActive := m.onResult, m.active
	m.onResult, m.active = nil, false
	m.mu.Unlock()
	if wasActive && cb != nil {
		cb(stt.Result{Text: "merci", IsFinal: true})
	}
}

func (m *fakeMic) Final() string { return "" }

func (m *fakeMic) state() (active bool, starts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.starts
}

func TestStopDuringCommandLeavesMicrophoneReleased(t *testing.T) {
	cfg := testConfig(t)
	cfg.Wake.Timeout = time.Minute
	mic := &fakeMic{}
	a, err := New(context.Background(), cfg, Collaborators{Engine: &recordingEngine{}, Recognizer: mic}, testLogger())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	_, starts := mic.state()
	require.Equal(t, 1, starts, "wake detection listening")

	require.True(t, a.Session().Wake())
	require.Eventually(t, func() bool {
		_, starts := mic.state()
		return starts == 2 && a.Session().Phase() == domain.PhaseListeningForCommand
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Stop(ctx)

	active, starts := mic.state()
	assert.False(t, active)
	assert.Equal(t, 2, starts)
	assert.False(t, a.wake.Listening())
	assert.Equal(t, domain.PhaseIdle, a.Session().Phase())
}

func TestStatusEndpoints(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Collaborators{Engine: &recordingEngine{}}, testLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "LaGrace", st.Name)
	assert.Equal(t, "idle", st.Session.Phase)
	assert.Equal(t, "unavailable", st.Database)
	assert.Nil(t, st.Bus)
}

func TestNewRejectsBadIntentPatterns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Intents.ExtraPatterns = map[string][]string{"help": {"("}}
	_, err := New(context.Background(), cfg, Collaborators{}, testLogger())
	assert.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(config.BusConfig{Transport: "mqtt", URL: "tcp://localhost:1883", ClientID: "lagrace", TopicPrefix: "lagrace"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &bus.MQTTTransport{}, tr)

	tr, err = NewTransport(config.BusConfig{Transport: "socketio", URL: "http://localhost:3030"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &bus.SocketIOTransport{}, tr)

	tr, err = NewTransport(config.BusConfig{Transport: "websocket", URL: "ws://localhost:3030/ai"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &bus.WebSocketTransport{}, tr)

	tr, err = NewTransport(config.BusConfig{Transport: "none"}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, tr)

	_, err = NewTransport(config.BusConfig{Transport: "carrier-pigeon"}, testLogger())
	assert.Error(t, err)
}
