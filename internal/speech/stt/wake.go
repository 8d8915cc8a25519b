package stt

import (
	"context"
	"log/slog"
	"sync"
)

// WakeDetector listens for the wake word and fires onWake once per arming.
// onWake returns false when the wake was not accepted, which re-arms the
// detector. It is called on the recognizer goroutine and must not block.
type WakeDetector struct {
	rec      Recognizer
	variants []string
	onWake   func() bool
	logger   *slog.Logger

	mu          sync.Mutex
	listening   bool
	armed       bool
	lastPartial string
}

func NewWakeDetector(rec Recognizer, variants []string, onWake func() bool, logger *slog.Logger) *WakeDetector {
	return &WakeDetector{
		rec:      rec,
		variants: variants,
		onWake:   onWake,
		logger:   logger,
	}
}

// Resume acquires the microphone and arms detection.
func (d *WakeDetector) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listening {
		return nil
	}
	d.armed = true
	d.lastPartial = ""
	if err := d.rec.Start(ctx, d.handle); err != nil {
		return err
	}
	d.listening = true
	d.logger.Debug("wake detection listening")
	return nil
}

// Pause releases the microphone.
func (d *WakeDetector) Pause() {
	d.mu.Lock()
	if !d.listening {
		d.mu.Unlock()
		return
	}
	d.listening = false
	d.armed = false
	d.mu.Unlock()

	d.rec.Stop()
	d.logger.Debug("wake detection paused")
}

func (d *WakeDetector) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

func (d *WakeDetector) handle(r Result) {
	d.mu.Lock()
	if !d.armed || r.Text == "" {
		d.mu.Unlock()
		return
	}
	if !r.IsFinal {
		if r.Text == d.lastPartial {
			d.mu.Unlock()
			return
		}
		d.lastPartial = r.Text
	}
	if !ContainsWakeWord(r.Text, d.variants) {
		d.mu.Unlock()
		return
	}
	d.armed = false
	d.mu.Unlock()

	d.logger.Info("wake word detected", "text", r.Text, "final", r.IsFinal)
	if d.onWake() {
		return
	}

	d.mu.Lock()
	d.armed = d.listening
	d.mu.Unlock()
}
