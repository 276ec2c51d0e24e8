// Package audiotest provides an audio backend driven by the test instead of a
// sound card, plus an in-memory fetcher and a WAV generator.
package audiotest

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/audiolibrelab/songquiz/internal/audio"
)

// Backend hands out outputs that only advance when Render is called.
type Backend struct {
	mu      sync.Mutex
	output  *audio.MixerOutput
	opens   int
	closes  int
	OpenErr error
}

var _ audio.Backend = (*Backend)(nil)

func (b *Backend) Open(sampleRate beep.SampleRate, _ time.Duration) (audio.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.opens++
	out := audio.NewMixerOutput(sampleRate, func() error {
		b.mu.Lock()
		b.closes++
		b.mu.Unlock()
		return nil
	})
	b.output = out
	return out, nil
}

func (b *Backend) GetType() audio.BackendType { return "test" }

// Render pulls frames through the most recently opened output and returns them.
// With no output open it returns silence.
func (b *Backend) Render(frames int) [][2]float64 {
	b.mu.Lock()
	out := b.output
	b.mu.Unlock()

	samples := make([][2]float64, frames)
	if out != nil {
		out.Fill(samples)
	}
	return samples
}

// Playing returns how many streamers the current output is still mixing.
func (b *Backend) Playing() int {
	b.mu.Lock()
	out := b.output
	b.mu.Unlock()
	if out == nil {
		return 0
	}
	return out.Playing()
}

// Opens returns how many outputs were opened.
func (b *Backend) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

// Closes returns how many outputs were closed.
func (b *Backend) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// Fetcher serves clips from memory. Unknown locations fail with a *audio.FetchError.
type Fetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	calls map[string]int

	// Gate, when set, blocks every Fetch until it is closed.
	Gate chan struct{}
}

var _ audio.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher serving files.
func NewFetcher(files map[string][]byte) *Fetcher {
	if files == nil {
		files = make(map[string][]byte)
	}
	return &Fetcher{files: files, calls: make(map[string]int)}
}

// Set adds or replaces a file.
func (f *Fetcher) Set(location string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[location] = data
}

// Calls returns how often location was fetched.
func (f *Fetcher) Calls(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, &audio.FetchError{Path: location, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[location]++
	data, ok := f.files[location]
	if !ok {
		return nil, &audio.FetchError{Path: location, StatusCode: 404, Err: errors.New("not found")}
	}
	return data, nil
}

// WAV returns a 16-bit stereo PCM file holding a constant-amplitude square
// wave of the given length, so rendered levels are easy to assert.
func WAV(sampleRate int, length time.Duration, amplitude float64) []byte {
	frames := int(float64(sampleRate) * length.Seconds())
	level := int16(amplitude * math.MaxInt16)

	var pcm bytes.Buffer
	for i := 0; i < frames; i++ {
		v := level
		if (i/32)%2 == 1 {
			v = -level
		}
		binary.Write(&pcm, binary.LittleEndian, v)
		binary.Write(&pcm, binary.LittleEndian, v)
	}

	const channels, bits = 2, 16
	blockAlign := channels * bits / 8
	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(36+pcm.Len()))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(16))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(channels))
	binary.Write(&out, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&out, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&out, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&out, binary.LittleEndian, uint16(bits))
	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(pcm.Len()))
	out.Write(pcm.Bytes())
	return out.Bytes()
}

// Peak returns the largest absolute sample value in samples.
func Peak(samples [][2]float64) float64 {
	var peak float64
	for _, s := range samples {
		peak = math.Max(peak, math.Max(math.Abs(s[0]), math.Abs(s[1])))
	}
	return peak
}
