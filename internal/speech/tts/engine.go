package tts

import (
	"context"
	"log/slog"
)

// Engine renders one utterance to the speakers. Say blocks until the
// utterance has finished playing or Stop is called.
type Engine interface {
	Say(ctx context.Context, text string) error
	Stop()
}

// LogEngine stands in when no voice is available.
type LogEngine struct {
	logger *slog.Logger
}

func NewLogEngine(logger *slog.Logger) *LogEngine {
	return &LogEngine{logger: logger}
}

func (e *LogEngine) Say(_ context.Context, text string) error {
	e.logger.Info("speak (silent)", "text", text)
	return nil
}

func (e *LogEngine) Stop() {}
