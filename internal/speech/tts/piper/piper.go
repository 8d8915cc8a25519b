// Package piper speaks through the Piper neural TTS command line tool.
package piper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"lagrace/internal/speech/tts"
)

const defaultSampleRate = 22050

// Player plays raw mono PCM16.
type Player interface {
	Play(ctx context.Context, pcm []int16, sampleRate int) error
}

type Config struct {
	Binary      string
	Model       string
	Speaker     int
	LengthScale float64
}

type Engine struct {
	cfg        Config
	player     Player
	logger     *slog.Logger
	sampleRate int

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New checks that the binary and voice model exist.
func New(cfg Config, player Player, logger *slog.Logger) (*Engine, error) {
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("piper binary: %w", err)
	}
	cfg.Binary = bin
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("piper voice: %w", err)
	}
	rate, err := ModelSampleRate(cfg.Model)
	if err != nil {
		logger.Warn("piper voice config unreadable, using default rate", "model", cfg.Model, "error", err)
		rate = defaultSampleRate
	}
	return &Engine{cfg: cfg, player: player, logger: logger, sampleRate: rate}, nil
}

// ModelSampleRate reads audio.sample_rate from the voice's .onnx.json.
func ModelSampleRate(model string) (int, error) {
	raw, err := os.ReadFile(model + ".json")
	if err != nil {
		return 0, err
	}
	var meta struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, err
	}
	if meta.Audio.SampleRate <= 0 {
		return 0, errors.New("sample_rate missing")
	}
	return meta.Audio.SampleRate, nil
}

func (e *Engine) Say(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
	}()

	for _, seg := range tts.Split(tts.Pronounce(text), nil) {
		pcm, err := e.synthesize(ctx, seg.Text)
		if err != nil {
			return err
		}
		if err := e.player.Play(ctx, pcm, e.sampleRate); err != nil {
			return err
		}
		if seg.Pause <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(seg.Pause):
		}
	}
	return nil
}

// Stop aborts the utterance being played.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) SampleRate() int {
	return e.sampleRate
}

func (e *Engine) synthesize(ctx context.Context, text string) ([]int16, error) {
	cmd := exec.CommandContext(ctx, e.cfg.Binary, e.args()...)
	cmd.Stdin = strings.NewReader(text + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return DecodePCM16(stdout.Bytes()), nil
}

func (e *Engine) args() []string {
	args := []string{"--model", e.cfg.Model, "--output-raw"}
	if e.cfg.Speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(e.cfg.Speaker))
	}
	if e.cfg.LengthScale > 0 {
		args = append(args, "--length_scale", strconv.FormatFloat(e.cfg.LengthScale, 'f', 2, 64))
	}
	return args
}

// DecodePCM16 converts little-endian bytes to samples; a trailing odd byte
// is dropped.
func DecodePCM16(raw []byte) []int16 {
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return out
}
