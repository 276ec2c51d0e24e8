//go:build cgo

package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gordonklaus/portaudio"
)

const portAudioAvailable = true

// PortAudioBackend renders through the default PortAudio output device.
type PortAudioBackend struct{}

func (b *PortAudioBackend) Open(sampleRate beep.SampleRate, bufferSize time.Duration) (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	framesPerBuffer := sampleRate.N(bufferSize)
	var stream *portaudio.Stream
	out := NewMixerOutput(sampleRate, func() error {
		defer portaudio.Terminate()
		if err := stream.Stop(); err != nil {
			return fmt.Errorf("failed to stop portaudio stream: %w", err)
		}
		return stream.Close()
	})

	scratch := make([][2]float64, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), framesPerBuffer, func(buf []float32) {
		frames := len(buf) / 2
		if cap(scratch) < frames {
			scratch = make([][2]float64, frames)
		}
		samples := scratch[:frames]
		out.Fill(samples)
		for i, s := range samples {
			buf[2*i] = float32(s[0])
			buf[2*i+1] = float32(s[1])
		}
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	return out, nil
}

func (b *PortAudioBackend) GetType() BackendType { return BackendTypePortAudio }
