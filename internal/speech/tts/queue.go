package tts

import (
	"context"
	"log/slog"
	"sync"
)

// Queue serializes utterances onto a single Engine.
type Queue struct {
	engine Engine
	logger *slog.Logger

	mu       sync.Mutex
	items    []string
	speaking bool
	running  bool
	waiters  []chan struct{}
	wake     chan struct{}
	done     chan struct{}
}

func NewQueue(engine Engine, logger *slog.Logger) *Queue {
	return &Queue{
		engine: engine,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the worker. It stops when ctx is done.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.done = make(chan struct{})
	q.mu.Unlock()

	go q.loop(ctx)
	q.signal()
}

// Speak enqueues text. A priority utterance discards everything still
// waiting in the queue; the one already playing finishes.
func (q *Queue) Speak(text string, priority bool) {
	if text == "" {
		return
	}
	q.mu.Lock()
	if priority && len(q.items) > 0 {
		q.logger.Debug("speech queue flushed", "dropped", len(q.items))
		q.items = q.items[:0]
	}
	q.items = append(q.items, text)
	q.mu.Unlock()
	q.signal()
}

// WaitUntilDone blocks until nothing is queued or playing.
func (q *Queue) WaitUntilDone(ctx context.Context) error {
	q.mu.Lock()
	if q.idleLocked() {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop clears the queue and aborts the current utterance.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	q.engine.Stop()
}

// Pending returns a copy of the queued utterances.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.items...)
}

func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Done is closed once the worker has exited.
func (q *Queue) Done() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

func (q *Queue) loop(ctx context.Context) {
	defer func() {
		q.mu.Lock()
		q.running = false
		q.speaking = false
		q.items = nil
		q.releaseWaitersLocked()
		close(q.done)
		q.mu.Unlock()
	}()

	for {
		text, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		if err := q.engine.Say(ctx, text); err != nil && ctx.Err() == nil {
			q.logger.Warn("speak failed", "text", text, "error", err)
		}

		q.mu.Lock()
		q.speaking = false
		if q.idleLocked() {
			q.releaseWaitersLocked()
		}
		q.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
	}
}

func (q *Queue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.releaseWaitersLocked()
		return "", false
	}
	text := q.items[0]
	q.items = q.items[1:]
	q.speaking = true
	return text, true
}

func (q *Queue) idleLocked() bool {
	return len(q.items) == 0 && !q.speaking
}

func (q *Queue) releaseWaitersLocked() {
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
