package audio

import (
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
)

// Buffer is a fully decoded clip resampled to the engine's sample rate.
// It is immutable once built and safe to play any number of times.
type Buffer struct {
	data   *beep.Buffer
	format beep.Format
}

func newBuffer(s beep.Streamer, src beep.Format, target beep.SampleRate, quality int) (*Buffer, error) {
	var stream beep.Streamer = s
	if src.SampleRate != target {
		stream = beep.Resample(quality, src.SampleRate, target, s)
	}

	format := beep.Format{SampleRate: target, NumChannels: 2, Precision: 2}
	data := beep.NewBuffer(format)
	data.Append(stream)

	if err := s.Err(); err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return nil, errors.New("clip contains no samples")
	}
	return &Buffer{data: data, format: format}, nil
}

// Len returns the number of sample frames.
func (b *Buffer) Len() int { return b.data.Len() }

// SampleRate returns the rate the samples are stored at.
func (b *Buffer) SampleRate() beep.SampleRate { return b.format.SampleRate }

// Duration returns the playing time of the whole clip.
func (b *Buffer) Duration() time.Duration { return b.format.SampleRate.D(b.data.Len()) }

// span converts an offset and optional duration into a clamped frame range.
func (b *Buffer) span(offset, duration time.Duration) (from, to int) {
	total := b.data.Len()
	from = clampFrames(b.format.SampleRate.N(offset), total)
	to = total
	if duration > 0 {
		to = clampFrames(from+b.format.SampleRate.N(duration), total)
	}
	return from, to
}

func clampFrames(n, total int) int {
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}
