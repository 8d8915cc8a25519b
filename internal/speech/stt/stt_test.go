package stt

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	onResult func(Result)
	starts   int
	stops    int
	final    string
}

func (f *fakeRecognizer) Start(_ context.Context, onResult func(Result)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onResult = onResult
	f.starts++
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onResult = nil
	f.stops++
}

func (f *fakeRecognizer) Final() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.final
}

func (f *fakeRecognizer) emit(r Result) {
	f.mu.Lock()
	cb := f.onResult
	f.mu.Unlock()
	if cb != nil {
		cb(r)
	}
}

func (f *fakeRecognizer) waitStarted() {
	for i := 0; i < 1000; i++ {
		f.mu.Lock()
		started := f.onResult != nil
		f.mu.Unlock()
		if started {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var variants = []string{"lagrace", "la grace", "la grâce", "lagrâce", "la grass", "hey lagrace"}

func TestFold(t *testing.T) {
	assert.Equal(t, "la grace", Fold("La Grâce"))
	assert.Equal(t, "ca va l ete", Fold("Ça va l'été"))
	assert.Equal(t, "reste t il", Fold("reste-t-il"))
}

func TestContainsWakeWord(t *testing.T) {
	cases := map[string]bool{
		"lagrace":                true,
		"bonjour lagrâce":        true,
		"La Grâce":               true,
		"la gras":                true,
		"hé la grass":            true,
		"la graisse":             false,
		"grace":                  false,
		"quel est le stock":      false,
		"":                       false,
		"lagraceux n'existe pas": false,
	}
	for text, want := range cases {
		assert.Equal(t, want, ContainsWakeWord(text, variants), text)
	}
}

func TestWakeDetectorFiresOncePerArming(t *testing.T) {
	rec := &fakeRecognizer{}
	wakes := 0
	d := NewWakeDetector(rec, variants, func() bool { wakes++; return true }, discardLogger())

	require.NoError(t, d.Resume(context.Background()))
	assert.True(t, d.Listening())

	rec.emit(Result{Text: "euh"})
	rec.emit(Result{Text: "euh la grace"})
	rec.emit(Result{Text: "euh la grace", IsFinal: true})
	assert.Equal(t, 1, wakes)

	d.Pause()
	assert.False(t, d.Listening())
	assert.Equal(t, 1, rec.stops)

	require.NoError(t, d.Resume(context.Background()))
	rec.emit(Result{Text: "lagrace", IsFinal: true})
	assert.Equal(t, 2, wakes)
	assert.Equal(t, 2, rec.starts)
}

func TestWakeDetectorRearmsWhenRejected(t *testing.T) {
	rec := &fakeRecognizer{}
	accept := false
	wakes := 0
	d := NewWakeDetector(rec, variants, func() bool { wakes++; return accept }, discardLogger())
	require.NoError(t, d.Resume(context.Background()))

	rec.emit(Result{Text: "lagrace", IsFinal: true})
	accept = true
	rec.emit(Result{Text: "lagrace", IsFinal: true})
	rec.emit(Result{Text: "lagrace", IsFinal: true})
	assert.Equal(t, 2, wakes)
}

func TestWakeDetectorSkipsRepeatedPartial(t *testing.T) {
	rec := &fakeRecognizer{}
	wakes := 0
	d := NewWakeDetector(rec, variants, func() bool { wakes++; return false }, discardLogger())
	require.NoError(t, d.Resume(context.Background()))

	rec.emit(Result{Text: "lagrace"})
	rec.emit(Result{Text: "lagrace"})
	assert.Equal(t, 1, wakes)
}

func TestCaptureFinalResult(t *testing.T) {
	rec := &fakeRecognizer{}
	c := NewCapturer(rec, discardLogger())

	go func() {
		rec.waitStarted()
		rec.emit(Result{Text: "stock de"})
		rec.emit(Result{Text: "stock de savon", IsFinal: true})
	}()

	text, err := c.Capture(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stock de savon", text)
	assert.Equal(t, 1, rec.stops)
}

func TestCaptureTimeoutUsesFlushedText(t *testing.T) {
	rec := &fakeRecognizer{final: "ventes du jour"}
	c := NewCapturer(rec, discardLogger())

	text, err := c.Capture(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "ventes du jour", text)
}

func TestCaptureTimeoutSilence(t *testing.T) {
	rec := &fakeRecognizer{}
	c := NewCapturer(rec, discardLogger())

	text, err := c.Capture(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 1, rec.stops)
}

func TestCaptureCancelled(t *testing.T) {
	rec := &fakeRecognizer{}
	c := NewCapturer(rec, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Capture(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
