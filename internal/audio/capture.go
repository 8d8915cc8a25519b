package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Capture reads fixed-size chunks from the default input device.
type Capture struct {
	stream *portaudio.Stream
	buf    []int16
}

func OpenCapture(sampleRate, frames int) (*Capture, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	buf := make([]int16, frames)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frames, buf)
	if err != nil {
		Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		Terminate()
		return nil, err
	}
	return &Capture{stream: stream, buf: buf}, nil
}

// Read returns the next chunk as little-endian PCM16 bytes. It polls the
// stream so that ctx cancellation is noticed between chunks.
func (c *Capture) Read(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		available, err := c.stream.AvailableToRead()
		if err != nil {
			return nil, err
		}
		if available < len(c.buf) {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err := c.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return nil, err
		}
		out := make([]byte, len(c.buf)*2)
		for i, s := range c.buf {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
		}
		return out, nil
	}
}

func (c *Capture) Close() error {
	stopErr := c.stream.Stop()
	closeErr := c.stream.Close()
	Terminate()
	return errors.Join(stopErr, closeErr)
}
