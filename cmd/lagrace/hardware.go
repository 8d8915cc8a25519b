package main

import (
	"log/slog"

	"lagrace/internal/app"
	"lagrace/internal/audio"
	"lagrace/internal/config"
	"lagrace/internal/speech/stt/vosk"
	"lagrace/internal/speech/tts"
	"lagrace/internal/speech/tts/piper"
)

// hardware holds the microphone, speaker and model handles. Each is nil
// when unavailable.
type hardware struct {
	player     *audio.Player
	engine     *piper.Engine
	recognizer *vosk.Recognizer
}

func openHardware(cfg config.Config, logger *slog.Logger) *hardware {
	hw := &hardware{}

	if cfg.TTS.Enabled {
		player, err := audio.NewPlayer()
		if err != nil {
			logger.Warn("speaker unavailable", "error", err)
		} else {
			hw.player = player
			engine, err := piper.New(piper.Config{
				Binary:      cfg.TTS.PiperBinary,
				Model:       cfg.TTS.VoiceModel,
				Speaker:     cfg.TTS.Speaker,
				LengthScale: cfg.TTS.LengthScale,
			}, player, logger.With("component", "piper"))
			if err != nil {
				logger.Warn("piper unavailable", "error", err)
			} else {
				hw.engine = engine
			}
		}
	}

	open := func() (vosk.Source, error) {
		c, err := audio.OpenCapture(cfg.Audio.SampleRate, cfg.Audio.ChunkSize)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	rec, err := vosk.New(cfg.STT.ModelPath, float64(cfg.Audio.SampleRate), open, logger.With("component", "vosk"))
	if err != nil {
		logger.Warn("speech recognition unavailable", "error", err)
	} else {
		hw.recognizer = rec
	}
	return hw
}

func (hw *hardware) collaborators() app.Collaborators {
	var c app.Collaborators
	if hw.engine != nil {
		c.Engine = hw.engine
	}
	if hw.recognizer != nil {
		c.Recognizer = hw.recognizer
	}
	return c
}

func (hw *hardware) Close() {
	if hw.recognizer != nil {
		hw.recognizer.Close()
	}
	if hw.player != nil {
		hw.player.Close()
	}
}

var _ tts.Engine = (*piper.Engine)(nil)
