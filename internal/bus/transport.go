package bus

import "context"

// MessageHandler receives every inbound event with its raw JSON payload.
type MessageHandler func(event string, payload []byte)

// Transport is one connection attempt to the POS event bus. Connect returns
// a channel that yields once when the connection drops.
type Transport interface {
	Connect(ctx context.Context, onMessage MessageHandler) (<-chan error, error)
	Publish(event string, payload []byte) error
	Close()
}
