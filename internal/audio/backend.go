package audio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// BackendType represents the type of audio output backend
type BackendType string

const (
	BackendTypeSpeaker   BackendType = "speaker"
	BackendTypeOto       BackendType = "oto"
	BackendTypePortAudio BackendType = "portaudio"
	BackendTypeAuto      BackendType = "auto"
)

// Output is an open audio rendering context. Streamers handed to Play are
// pulled on the device's own goroutine; Lock must be held while mutating any
// streamer that is already playing.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close() error
}

// Backend opens rendering contexts on one kind of audio device.
type Backend interface {
	// Open starts a rendering context at sampleRate with roughly bufferSize of latency.
	Open(sampleRate beep.SampleRate, bufferSize time.Duration) (Output, error)

	// GetType returns the backend type
	GetType() BackendType
}

// NewBackend returns the backend configured by name. Empty and "auto" pick the beep speaker.
func NewBackend(name string) (Backend, error) {
	switch determineBackend(name) {
	case BackendTypeSpeaker:
		return &SpeakerBackend{}, nil
	case BackendTypeOto:
		return &OtoBackend{}, nil
	case BackendTypePortAudio:
		return &PortAudioBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (valid: %s)", name, strings.Join(backendNames(), ", "))
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(name string) BackendType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(BackendTypeAuto), string(BackendTypeSpeaker):
		return BackendTypeSpeaker
	case string(BackendTypeOto):
		return BackendTypeOto
	case string(BackendTypePortAudio):
		return BackendTypePortAudio
	}
	return BackendType(name)
}

// GetAvailableBackends returns list of available backends in this build
func GetAvailableBackends() []BackendType {
	backends := []BackendType{BackendTypeSpeaker, BackendTypeOto}
	if portAudioAvailable {
		backends = append(backends, BackendTypePortAudio)
	}
	return backends
}

func backendNames() []string {
	names := []string{string(BackendTypeAuto)}
	for _, b := range GetAvailableBackends() {
		names = append(names, string(b))
	}
	return names
}

// MixerOutput is an Output that mixes everything it plays into whatever
// buffer its device asks to Fill.
type MixerOutput struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	mixer      beep.Mixer
	closed     bool
	onClose    func() error
}

// NewMixerOutput creates an output at sampleRate. onClose, when set, releases the device.
func NewMixerOutput(sampleRate beep.SampleRate, onClose func() error) *MixerOutput {
	return &MixerOutput{sampleRate: sampleRate, onClose: onClose}
}

func (o *MixerOutput) SampleRate() beep.SampleRate { return o.sampleRate }

func (o *MixerOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.mixer.Add(s)
}

func (o *MixerOutput) Lock() { o.mu.Lock() }

func (o *MixerOutput) Unlock() { o.mu.Unlock() }

// Fill renders the next len(samples) frames. Silence is produced when nothing is playing.
func (o *MixerOutput) Fill(samples [][2]float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		for i := range samples {
			samples[i] = [2]float64{}
		}
		return
	}
	o.mixer.Stream(samples)
}

// Playing returns how many streamers are still mixed in.
func (o *MixerOutput) Playing() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mixer.Len()
}

func (o *MixerOutput) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mixer.Clear()
	o.mu.Unlock()

	if o.onClose != nil {
		return o.onClose()
	}
	return nil
}
