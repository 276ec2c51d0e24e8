package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
)

// oto allows a single context per process, so it is created once and
// suspended between Close and the next Open.
var (
	otoOnce    sync.Once
	otoCtx     *oto.Context
	otoRate    beep.SampleRate
	otoInitErr error
)

func otoContext(sampleRate beep.SampleRate, bufferSize time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   int(sampleRate),
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   bufferSize,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("oto context already running at %d Hz, cannot reopen at %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// OtoBackend renders directly through an oto player.
type OtoBackend struct{}

func (b *OtoBackend) Open(sampleRate beep.SampleRate, bufferSize time.Duration) (Output, error) {
	ctx, err := otoContext(sampleRate, bufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	if err := ctx.Resume(); err != nil {
		return nil, fmt.Errorf("failed to resume oto context: %w", err)
	}

	var player *oto.Player
	out := NewMixerOutput(sampleRate, func() error {
		if err := player.Close(); err != nil {
			return fmt.Errorf("cannot close oto player: %w", err)
		}
		return ctx.Suspend()
	})
	player = ctx.NewPlayer(&float32Reader{out: out})
	player.Play()
	return out, nil
}

func (b *OtoBackend) GetType() BackendType { return BackendTypeOto }

// float32Reader encodes mixed frames as interleaved float32 little-endian.
type float32Reader struct {
	out     *MixerOutput
	scratch [][2]float64
}

const float32FrameBytes = 8

func (r *float32Reader) Read(p []byte) (int, error) {
	frames := len(p) / float32FrameBytes
	if frames == 0 {
		return 0, nil
	}
	if cap(r.scratch) < frames {
		r.scratch = make([][2]float64, frames)
	}
	samples := r.scratch[:frames]
	r.out.Fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(float32(s[0])))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(float32(s[1])))
	}
	return frames * float32FrameBytes, nil
}
