// Package audio wraps PortAudio for microphone capture and playback of
// 16-bit mono PCM.
package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	initMu   sync.Mutex
	initRefs int
)

// Init initializes PortAudio. Calls nest; each needs a matching Terminate.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
	}
	initRefs++
	return nil
}

func Terminate() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		return nil
	}
	initRefs--
	if initRefs == 0 {
		return portaudio.Terminate()
	}
	return nil
}

// Probe reports whether a default input and output device exist.
func Probe() (input, output string, err error) {
	if err := Init(); err != nil {
		return "", "", err
	}
	defer Terminate()

	in, err := portaudio.DefaultInputDevice()
	if err != nil {
		return "", "", err
	}
	out, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return in.Name, "", err
	}
	return in.Name, out.Name, nil
}
