// Package vosk implements stt.Recognizer with an offline Vosk model fed
// from the microphone.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"lagrace/internal/speech/stt"
)

// Source yields PCM16 mono chunks at the model sample rate.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// OpenSource opens the microphone; called on every Start.
type OpenSource func() (Source, error)

type Recognizer struct {
	open   OpenSource
	logger *slog.Logger

	mu    sync.Mutex
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type voskResult struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

func New(modelPath string, sampleRate float64, open OpenSource, logger *slog.Logger) (*Recognizer, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk model not found: %s: %w", modelPath, err)
	}
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}
	rec, err := vosk.NewRecognizer(model, sampleRate)
	if err != nil {
		model.Free()
		return nil, err
	}
	rec.SetWords(1)

	return &Recognizer{open: open, logger: logger, model: model, rec: rec}, nil
}

func (r *Recognizer) Start(ctx context.Context, onResult func(stt.Result)) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return errors.New("recognizer already listening")
	}

	src, err := r.open()
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, src, onResult, r.done)
	return nil
}

func (r *Recognizer) Stop() {
	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	r.mu.Lock()
	if r.rec != nil {
		r.rec.Reset()
	}
	r.mu.Unlock()
}

func (r *Recognizer) Final() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return ""
	}
	return decode(r.rec.FinalResult()).Text
}

// Close stops listening and frees the model.
func (r *Recognizer) Close() {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		r.rec.Free()
		r.rec = nil
	}
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
}

func (r *Recognizer) loop(ctx context.Context, src Source, onResult func(stt.Result), done chan struct{}) {
	defer close(done)
	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Warn("close microphone failed", "error", err)
		}
	}()

	for {
		chunk, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Error("microphone read failed", "error", err)
			}
			return
		}

		r.mu.Lock()
		if r.rec == nil {
			r.mu.Unlock()
			return
		}
		var res stt.Result
		if r.rec.AcceptWaveform(chunk) != 0 {
			res = stt.Result{Text: decode(r.rec.Result()).Text, IsFinal: true}
		} else {
			res = stt.Result{Text: decode(r.rec.PartialResult()).Partial}
		}
		r.mu.Unlock()

		if res.Text != "" {
			onResult(res)
		}
	}
}

func decode(raw string) voskResult {
	var out voskResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return voskResult{}
	}
	return out
}
