package stt

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Capturer records a single spoken command.
type Capturer struct {
	rec    Recognizer
	logger *slog.Logger
}

func NewCapturer(rec Recognizer, logger *slog.Logger) *Capturer {
	return &Capturer{rec: rec, logger: logger}
}

// Capture listens until the first final result or timeout, then flushes the
// recognizer. An empty string means nothing was understood.
func (c *Capturer) Capture(ctx context.Context, timeout time.Duration) (string, error) {
	finals := make(chan string, 1)
	err := c.rec.Start(ctx, func(r Result) {
		if !r.IsFinal || strings.TrimSpace(r.Text) == "" {
			return
		}
		select {
		case finals <- r.Text:
		default:
		}
	})
	if err != nil {
		return "", err
	}
	defer c.rec.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var text string
	select {
	case text = <-finals:
	case <-timer.C:
		c.logger.Debug("command capture timed out", "timeout", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if flushed := strings.TrimSpace(c.rec.Final()); flushed != "" {
		if text == "" {
			text = flushed
		} else {
			text = text + " " + flushed
		}
	}
	return strings.TrimSpace(text), nil
}
