package bus

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lagrace/internal/domain"
)

// socketIOServer plays the server side of an Engine.IO v4 websocket
// session: open packet, namespace ack, then a scripted list of frames.
type socketIOServer struct {
	*httptest.Server
	ack    string
	script []string
	frames chan string
}

func newSocketIOServer(t *testing.T, ack string, script ...string) *socketIOServer {
	s := &socketIOServer{ack: ack, script: script, frames: make(chan string, 32)}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		send := func(frame string) bool {
			return conn.WriteMessage(websocket.TextMessage, []byte(frame)) == nil
		}
		if !send(`0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`) {
			return
		}
		_, join, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.frames <- string(join)
		if !send(s.ack) {
			return
		}
		for _, frame := range s.script {
			if !send(frame) {
				return
			}
		}
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.frames <- string(frame)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *socketIOServer) next(t *testing.T) string {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame from client")
		return ""
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineIOURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:3030":          "ws://localhost:3030/socket.io/?EIO=4&transport=websocket",
		"https://pos.local/":             "wss://pos.local/socket.io/?EIO=4&transport=websocket",
		"ws://pos.local:3030/custom/io/": "ws://pos.local:3030/custom/io/?EIO=4&transport=websocket",
	}
	for in, want := range cases {
		got, err := EngineIOURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := EngineIOURL("tcp://localhost:1883")
	assert.Error(t, err)
}

func TestDecodeSocketIOEvent(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		event string
		data  string
	}{
		{"plain", `["sale:created",{"invoice_number":"F-1"}]`, "sale:created", `{"invoice_number":"F-1"}`},
		{"namespace and ack id", `/pos,12["stock:low",{"product":"RAID"}]`, "stock:low", `{"product":"RAID"}`},
		{"no data", `["pong"]`, "pong", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, data, err := DecodeSocketIOEvent([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.event, event)
			assert.Equal(t, tc.data, string(data))
		})
	}

	for _, bad := range []string{`[]`, `[42]`, `/pos["x"]`, `{"event":"x"}`} {
		_, _, err := DecodeSocketIOEvent([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestEncodeSocketIOEvent(t *testing.T) {
	frame, err := EncodeSocketIOEvent("ai:connected", []byte(`{"name":"LaGrace"}`))
	require.NoError(t, err)
	assert.Equal(t, `42["ai:connected",{"name":"LaGrace"}]`, string(frame))

	frame, err = EncodeSocketIOEvent("ping", nil)
	require.NoError(t, err)
	assert.Equal(t, `42["ping"]`, string(frame))
}

func TestSocketIOTransportExchangesEvents(t *testing.T) {
	srv := newSocketIOServer(t, `40{"sid":"sio-1"}`,
		`42["sale:created",{"invoice_number":"F-1"}]`,
		`2`,
	)
	tr := NewSocketIOTransport(srv.URL, discardLogger())

	got := make(chan published, 4)
	lost, err := tr.Connect(context.Background(), func(event string, payload []byte) {
		got <- published{event: event, payload: payload}
	})
	require.NoError(t, err)
	assert.Equal(t, "40", srv.next(t))

	select {
	case msg := <-got:
		assert.Equal(t, "sale:created", msg.event)
		assert.JSONEq(t, `{"invoice_number":"F-1"}`, string(msg.payload))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, "3", srv.next(t), "engine.io ping answered")

	require.NoError(t, tr.Publish("ai:connected", []byte(`{"name":"LaGrace"}`)))
	assert.Equal(t, `42["ai:connected",{"name":"LaGrace"}]`, srv.next(t))

	tr.Close()
	assert.Equal(t, "41", srv.next(t))
	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("loss not reported after close")
	}
	assert.ErrorIs(t, tr.Publish("ping", nil), ErrNotConnected)
}

func TestSocketIOTransportServerDisconnect(t *testing.T) {
	srv := newSocketIOServer(t, `40{"sid":"sio-1"}`, `41`)
	tr := NewSocketIOTransport(srv.URL, discardLogger())

	lost, err := tr.Connect(context.Background(), func(string, []byte) {})
	require.NoError(t, err)
	defer tr.Close()

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, errServerDisconnect)
	case <-time.After(2 * time.Second):
		t.Fatal("server disconnect not reported")
	}
}

func TestSocketIOTransportConnectRefused(t *testing.T) {
	srv := newSocketIOServer(t, `44{"message":"unauthorized"}`)
	tr := NewSocketIOTransport(srv.URL, discardLogger())

	_, err := tr.Connect(context.Background(), func(string, []byte) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestClientOverSocketIO(t *testing.T) {
	srv := newSocketIOServer(t, `40{"sid":"sio-1"}`,
		`42["sale:created",{"invoice_number":"F-1","total_usd":12.5}]`,
	)
	c := testClient(NewSocketIOTransport(srv.URL, discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case ev := <-c.Events():
		sale, ok := ev.(domain.SaleCreated)
		require.True(t, ok, "%T", ev)
		assert.Equal(t, "F-1", sale.InvoiceNumber)
		assert.Equal(t, 12.5, sale.TotalUSD)
	case <-time.After(2 * time.Second):
		t.Fatal("sale:created never reached the event channel")
	}
	waitConnected(t, c)
}
