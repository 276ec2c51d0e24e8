//go:build !cgo

package audio

import (
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
)

const portAudioAvailable = false

// PortAudioBackend is unavailable without cgo.
type PortAudioBackend struct{}

func (b *PortAudioBackend) Open(beep.SampleRate, time.Duration) (Output, error) {
	return nil, errors.New("portaudio backend requires a cgo build")
}

func (b *PortAudioBackend) GetType() BackendType { return BackendTypePortAudio }
