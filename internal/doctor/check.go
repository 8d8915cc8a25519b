// Package doctor probes the assistant's runtime dependencies.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"

	"lagrace/internal/config"
	"lagrace/internal/speech/tts/piper"
	"lagrace/internal/store"
)

// Result is the outcome of one probe. Failed optional probes leave the
// assistant running in degraded mode.
type Result struct {
	Name     string
	Required bool
	OK       bool
	Detail   string
	Hint     string
}

type Report []Result

// OK reports whether every required probe passed.
func (r Report) OK() bool {
	for _, res := range r {
		if res.Required && !res.OK {
			return false
		}
	}
	return true
}

func (r Report) Write(w io.Writer) {
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed)
	hint := color.New(color.FgCyan)

	for _, res := range r {
		switch {
		case res.OK:
			ok.Fprintf(w, "[ OK ] %s: %s\n", res.Name, res.Detail)
		case res.Required:
			fail.Fprintf(w, "[FAIL] %s: %s\n", res.Name, res.Detail)
		default:
			warn.Fprintf(w, "[WARN] %s: %s\n", res.Name, res.Detail)
		}
		if !res.OK && res.Hint != "" {
			hint.Fprintf(w, "       %s\n", res.Hint)
		}
	}
}

// AudioProbe names the default input and output devices.
type AudioProbe func() (input, output string, err error)

// Check runs every dependency probe.
func Check(ctx context.Context, cfg config.Config, audio AudioProbe) Report {
	report := Report{
		checkVoskModel(cfg.STT.ModelPath),
		checkAudio(audio),
	}
	report = append(report, checkPiper(cfg.TTS)...)
	report = append(report, checkDatabase(ctx, cfg.DB))
	return report
}

func checkVoskModel(path string) Result {
	res := Result{Name: "vosk model", Required: true}
	entries, err := os.ReadDir(path)
	switch {
	case err != nil:
		res.Detail = fmt.Sprintf("not found at %s", path)
		res.Hint = "download vosk-model-small-fr-0.22 from https://alphacephei.com/vosk/models and extract it there"
	case len(entries) == 0:
		res.Detail = fmt.Sprintf("%s is empty", path)
		res.Hint = "extract the model archive into this directory"
	default:
		res.OK = true
		res.Detail = path
	}
	return res
}

func checkAudio(probe AudioProbe) Result {
	res := Result{Name: "audio devices", Required: true}
	if probe == nil {
		res.Detail = "audio support not built in"
		return res
	}
	in, out, err := probe()
	if err != nil {
		res.Detail = err.Error()
		res.Hint = "check that a microphone and speakers are connected"
		return res
	}
	res.OK = true
	res.Detail = fmt.Sprintf("input %q, output %q", in, out)
	return res
}

func checkPiper(cfg config.TTSConfig) []Result {
	if !cfg.Enabled {
		return []Result{{Name: "piper", OK: true, Detail: "speech output disabled"}}
	}

	bin := Result{Name: "piper binary", Required: true}
	if p, err := exec.LookPath(cfg.PiperBinary); err != nil {
		bin.Detail = fmt.Sprintf("%s not found", cfg.PiperBinary)
		bin.Hint = "install piper from https://github.com/rhasspy/piper/releases or set tts.piper_binary"
	} else {
		bin.OK = true
		bin.Detail = p
	}

	voice := Result{Name: "piper voice", Required: true}
	if _, err := os.Stat(cfg.VoiceModel); err != nil {
		voice.Detail = fmt.Sprintf("%s not found", cfg.VoiceModel)
		voice.Hint = "download fr_FR-upmc-medium.onnx and its .json next to it"
	} else if rate, err := piper.ModelSampleRate(cfg.VoiceModel); err != nil {
		voice.OK = true
		voice.Detail = fmt.Sprintf("%s (voice config unreadable, default sample rate)", cfg.VoiceModel)
	} else {
		voice.OK = true
		voice.Detail = fmt.Sprintf("%s (%d Hz)", cfg.VoiceModel, rate)
	}
	return []Result{bin, voice}
}

func checkDatabase(ctx context.Context, cfg config.DBConfig) Result {
	res := Result{Name: "database"}
	s, used, err := store.Connect(ctx, cfg.Driver, cfg.DSN, cfg.SearchPaths)
	if err != nil {
		res.Detail = err.Error()
		res.Hint = "voice lookups will answer that the data is unavailable"
		return res
	}
	defer s.Close()
	res.OK = true
	res.Detail = fmt.Sprintf("%s %s", s.Driver(), used)
	return res
}
