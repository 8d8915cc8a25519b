package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"lagrace/internal/domain"
)

var (
	ErrNotConnected = errors.New("bus not connected")
	ErrPrintTimeout = errors.New("print request timed out")
)

const (
	EventConnected     = "ai:connected"
	EventDisconnecting = "ai:disconnecting"
	EventPrintRequest  = "ai:print_request"
	EventPing          = "ping"
	EventPong          = "pong"

	backoffMultiplier = 1.5
	backoffMaxSteps   = 5
)

type Config struct {
	Name              string
	Version           string
	Capabilities      []string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	KeepaliveInterval time.Duration
	PrintTimeout      time.Duration
	QueueSize         int
}

type Status struct {
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
	LastPong    time.Time `json:"last_pong,omitzero"`
	Reconnects  int       `json:"reconnects"`
	Dropped     int       `json:"dropped"`
}

type pendingPrint struct {
	invoice string
	ch      chan domain.PrintAck
}

// Client keeps one connection to the POS bus alive and turns inbound
// messages into domain events on a bounded channel.
type Client struct {
	cfg       Config
	transport Transport
	logger    *slog.Logger
	events    chan domain.Event
	now       func() time.Time

	mu          sync.Mutex
	connected   bool
	connectedAt time.Time
	lastPong    time.Time
	reconnects  int
	dropped     int

	pendingMu sync.Mutex
	pending   map[string]pendingPrint
}

func NewClient(cfg Config, transport Transport, logger *slog.Logger) *Client {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Client{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		events:    make(chan domain.Event, cfg.QueueSize),
		now:       time.Now,
		pending:   make(map[string]pendingPrint),
	}
}

// Events is consumed by a single dispatch loop.
func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// Run connects and reconnects until ctx is done.
func (c *Client) Run(ctx context.Context) {
	b := newBackOff(c.cfg.ReconnectDelay, c.cfg.MaxReconnectDelay)
	attempt := 0
	for {
		lost, err := c.transport.Connect(ctx, c.receive)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			delay := b.NextBackOff()
			c.logger.Warn("bus connect failed", "attempt", attempt, "retry_in", delay, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		b.Reset()
		c.setConnected(true)
		c.logger.Info("bus connected")
		c.hello()

		keepCtx, stopKeepalive := context.WithCancel(ctx)
		go c.keepalive(keepCtx)

		select {
		case <-ctx.Done():
			stopKeepalive()
			c.goodbye()
			c.transport.Close()
			c.setConnected(false)
			c.logger.Info("bus disconnected")
			return
		case err := <-lost:
			stopKeepalive()
			c.setConnected(false)
			c.transport.Close()
			c.logger.Warn("bus connection lost", "error", err)
		}
	}
}

// newBackOff yields initial * 1.5^min(n-1, 5), capped at max.
func newBackOff(initial, max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = backoffMultiplier
	b.RandomizationFactor = 0
	b.MaxInterval = min(max, time.Duration(float64(initial)*math.Pow(backoffMultiplier, backoffMaxSteps)))
	b.Reset()
	return b
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected:   c.connected,
		ConnectedAt: c.connectedAt,
		LastPong:    c.lastPong,
		Reconnects:  c.reconnects,
		Dropped:     c.dropped,
	}
}

// RequestPrint asks the POS to print the sale's invoice and waits for the
// first acknowledgement.
func (c *Client) RequestPrint(ctx context.Context, sale domain.Sale) (domain.PrintAck, error) {
	if !c.Connected() {
		return domain.PrintAck{}, ErrNotConnected
	}

	requestID := uuid.NewString()
	body, err := json.Marshal(domain.PrintRequest{
		RequestID:     requestID,
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
	})
	if err != nil {
		return domain.PrintAck{}, err
	}

	ackCh := make(chan domain.PrintAck, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = pendingPrint{invoice: sale.InvoiceNumber, ch: ackCh}
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	if err := c.transport.Publish(EventPrintRequest, body); err != nil {
		return domain.PrintAck{}, err
	}
	c.logger.Info("print requested", "request_id", requestID, "invoice", sale.InvoiceNumber)

	select {
	case <-ctx.Done():
		return domain.PrintAck{}, ctx.Err()
	case ack := <-ackCh:
		if !ack.OK {
			return ack, fmt.Errorf("print failed: %s", ack.Code)
		}
		return ack, nil
	case <-time.After(c.cfg.PrintTimeout):
		return domain.PrintAck{}, ErrPrintTimeout
	}
}

func (c *Client) receive(event string, payload []byte) {
	if event == EventPong {
		c.mu.Lock()
		c.lastPong = c.now()
		c.mu.Unlock()
		return
	}

	ev, err := Decode(event, payload)
	if errors.Is(err, ErrUnknownEvent) {
		c.logger.Debug("ignore bus event", "event", event)
		return
	}
	if err != nil {
		c.logger.Warn("invalid bus payload", "event", event, "error", err)
		return
	}

	if c.resolvePending(ev) {
		return
	}

	select {
	case c.events <- ev:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.logger.Warn("bus event queue full, dropping", "event", event)
	}
}

// resolvePending hands print acknowledgements to a waiting RequestPrint.
// A matched acknowledgement is not dispatched.
func (c *Client) resolvePending(ev domain.Event) bool {
	var ack domain.PrintAck
	switch e := ev.(type) {
	case domain.PrintStarted:
		ack = domain.PrintAck{RequestID: e.RequestID, InvoiceNumber: e.InvoiceNumber, OK: true}
	case domain.PrintDone:
		ack = domain.PrintAck{RequestID: e.RequestID, InvoiceNumber: e.InvoiceNumber, OK: true}
	case domain.PrintError:
		ack = domain.PrintAck{RequestID: e.RequestID, InvoiceNumber: e.InvoiceNumber, Code: e.Code, Hint: e.Hint}
	default:
		return false
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, p := range c.pending {
		if (ack.RequestID != "" && ack.RequestID == id) ||
			(ack.RequestID == "" && ack.InvoiceNumber != "" && ack.InvoiceNumber == p.invoice) {
			select {
			case p.ch <- ack:
			default:
			}
			delete(c.pending, id)
			return true
		}
	}
	return false
}

func (c *Client) keepalive(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.publish(EventPing, domain.Ping{Timestamp: c.timestamp()})
			c.mu.Lock()
			silence := c.now().Sub(c.lastPong)
			c.mu.Unlock()
			if silence > 2*c.cfg.KeepaliveInterval {
				c.logger.Warn("no pong from bus", "since", silence.Round(time.Second))
			}
		}
	}
}

func (c *Client) hello() {
	c.publish(EventConnected, domain.AssistantHello{
		Name:         c.cfg.Name,
		Version:      c.cfg.Version,
		Timestamp:    c.timestamp(),
		Capabilities: c.cfg.Capabilities,
	})
}

func (c *Client) goodbye() {
	c.publish(EventDisconnecting, domain.AssistantBye{Name: c.cfg.Name, Timestamp: c.timestamp()})
}

func (c *Client) publish(event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("encode bus payload failed", "event", event, "error", err)
		return
	}
	if err := c.transport.Publish(event, body); err != nil {
		c.logger.Warn("bus publish failed", "event", event, "error", err)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		if !c.connectedAt.IsZero() {
			c.reconnects++
		}
		c.connectedAt = c.now()
		c.lastPong = c.connectedAt
	}
	c.connected = v
}

func (c *Client) timestamp() string {
	return c.now().Format(time.RFC3339)
}
