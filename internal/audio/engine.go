package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// EngineConfig holds the configuration for the audio engine
type EngineConfig struct {
	SampleRate      beep.SampleRate
	BufferSize      time.Duration
	InitialVolume   float64
	ResampleQuality int
}

// PlayOptions tune a single playback. Nil Volume means the engine's initial volume.
type PlayOptions struct {
	Volume   *float64
	Offset   time.Duration
	Duration time.Duration // 0 plays to the end of the buffer
}

// voice is the graph behind the current session: buffer -> gain -> ctrl -> output.
type voice struct {
	session *Session
	ctrl    *beep.Ctrl
	gain    *effects.Gain
}

// Engine owns the rendering context lifecycle, decodes clips, and plays at
// most one tracked session at a time.
type Engine struct {
	config  EngineConfig
	backend Backend
	fetcher Fetcher

	mu      sync.Mutex
	output  Output
	current *voice
}

// NewEngine creates an engine. No device is opened until the first Decode.
func NewEngine(config EngineConfig, backend Backend, fetcher Fetcher) *Engine {
	if config.SampleRate == 0 {
		config.SampleRate = 44100
	}
	if config.BufferSize == 0 {
		config.BufferSize = 100 * time.Millisecond
	}
	if config.ResampleQuality == 0 {
		config.ResampleQuality = 4
	}
	config.InitialVolume = ClampVolume(config.InitialVolume)

	return &Engine{
		config:  config,
		backend: backend,
		fetcher: fetcher,
	}
}

// InitialVolume returns the gain used when PlayOptions.Volume is nil.
func (e *Engine) InitialVolume() float64 { return e.config.InitialVolume }

// SampleRate returns the rate every decoded buffer is converted to.
func (e *Engine) SampleRate() beep.SampleRate { return e.config.SampleRate }

// HasContext reports whether a rendering context is currently open.
func (e *Engine) HasContext() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output != nil
}

// Decode makes sure a rendering context exists, then fetches and decodes the
// clip at path. Failures are *OutputError, *FetchError or *DecodeError. No
// retry is attempted.
func (e *Engine) Decode(ctx context.Context, path string) (*Buffer, error) {
	if err := e.ensureContext(); err != nil {
		return nil, err
	}

	data, err := e.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	format := DetectFormat(path, data)
	stream, srcFormat, err := decodeStream(format, data)
	if err != nil {
		return nil, &DecodeError{Path: path, Format: format, Err: err}
	}
	defer stream.Close()

	buf, err := newBuffer(stream, srcFormat, e.config.SampleRate, e.config.ResampleQuality)
	if err != nil {
		return nil, &DecodeError{Path: path, Format: format, Err: err}
	}

	slog.Debug("Decoded clip", "path", path, "format", format, "duration", buf.Duration(), "source_rate", srcFormat.SampleRate)
	return buf, nil
}

func (e *Engine) ensureContext() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.output != nil {
		return nil
	}

	out, err := e.backend.Open(e.config.SampleRate, e.config.BufferSize)
	if err != nil {
		return &OutputError{Backend: e.backend.GetType(), Err: err}
	}
	e.output = out
	slog.Debug("Audio context opened", "backend", e.backend.GetType(), "sample_rate", e.config.SampleRate)
	return nil
}

// Play starts buf and tracks it as the current session. The call returns
// immediately. Without an open context or a buffer nothing happens and the
// result says why.
func (e *Engine) Play(buf *Buffer, opts PlayOptions) PlayResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.output == nil {
		slog.Debug("Play skipped", "reason", SkipNoContext)
		return Skipped(SkipNoContext)
	}
	if buf == nil {
		slog.Debug("Play skipped", "reason", SkipNoBuffer)
		return Skipped(SkipNoBuffer)
	}

	volume := e.config.InitialVolume
	if opts.Volume != nil {
		volume = ClampVolume(*opts.Volume)
	}

	from, to := buf.span(opts.Offset, opts.Duration)
	session := newSession(buf, volume, opts.Offset, opts.Duration)

	gain := &effects.Gain{Streamer: buf.data.Streamer(from, to), Gain: gainFor(volume)}
	ctrl := &beep.Ctrl{Streamer: beep.Seq(gain, beep.Callback(session.finish))}

	e.current = &voice{session: session, ctrl: ctrl, gain: gain}
	e.output.Play(ctrl)

	slog.Debug("Playback started", "session", session.ID, "offset", opts.Offset, "duration", opts.Duration, "volume", volume)
	return Started(session)
}

// Stop halts the current session, detaches it from the output and forgets it.
// Calling Stop with nothing tracked does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.current == nil {
		return
	}
	v := e.current
	e.current = nil

	if e.output != nil {
		e.output.Lock()
		v.ctrl.Streamer = nil
		e.output.Unlock()
	}
	v.session.finish()
	slog.Debug("Playback stopped", "session", v.session.ID)
}

// SetVolume changes the gain of the current session immediately.
func (e *Engine) SetVolume(level float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.output == nil {
		return
	}
	e.output.Lock()
	e.current.gain.Gain = gainFor(ClampVolume(level))
	e.output.Unlock()
}

// Current returns the tracked session, or nil.
func (e *Engine) Current() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	return e.current.session
}

// CloseContext stops any sound and releases the rendering context. The next
// Decode reopens it; Play before that is skipped.
func (e *Engine) CloseContext() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	if e.output == nil {
		return nil
	}
	out := e.output
	e.output = nil
	slog.Debug("Audio context closed", "backend", e.backend.GetType())
	return out.Close()
}

// ClampVolume limits level to the 0..1 range.
func ClampVolume(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// effects.Gain multiplies by 1+Gain, so a linear level maps to level-1.
func gainFor(level float64) float64 { return level - 1 }
