package audio

import (
	"context"
	"errors"

	"github.com/gordonklaus/portaudio"
)

const playFrames = 1024

// Player plays PCM16 mono buffers on the default output device.
type Player struct{}

func NewPlayer() (*Player, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &Player{}, nil
}

// Play blocks until pcm has been written or ctx is done.
func (p *Player) Play(ctx context.Context, pcm []int16, sampleRate int) error {
	buf := make([]int16, playFrames)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), playFrames, buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	for off := 0; off < len(pcm); off += playFrames {
		if ctx.Err() != nil {
			stream.Abort()
			return ctx.Err()
		}
		n := copy(buf, pcm[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			stream.Abort()
			return err
		}
	}
	return stream.Stop()
}

func (p *Player) Close() error {
	return Terminate()
}
