package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerBackend renders through the process-wide beep speaker.
type SpeakerBackend struct{}

func (b *SpeakerBackend) Open(sampleRate beep.SampleRate, bufferSize time.Duration) (Output, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(bufferSize)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	return &speakerOutput{sampleRate: sampleRate}, nil
}

func (b *SpeakerBackend) GetType() BackendType { return BackendTypeSpeaker }

type speakerOutput struct {
	sampleRate beep.SampleRate
}

func (o *speakerOutput) SampleRate() beep.SampleRate { return o.sampleRate }

func (o *speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

func (o *speakerOutput) Lock() { speaker.Lock() }

func (o *speakerOutput) Unlock() { speaker.Unlock() }

func (o *speakerOutput) Close() error {
	speaker.Clear()
	speaker.Close()
	return nil
}
