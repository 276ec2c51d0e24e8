package audio_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/songquiz/internal/audio"
	"github.com/audiolibrelab/songquiz/internal/audio/audiotest"
)

const testRate = 8000

func newTestEngine(t *testing.T, files map[string][]byte) (*audio.Engine, *audiotest.Backend, *audiotest.Fetcher) {
	t.Helper()
	backend := &audiotest.Backend{}
	fetcher := audiotest.NewFetcher(files)
	engine := audio.NewEngine(audio.EngineConfig{
		SampleRate:    testRate,
		InitialVolume: 0.5,
	}, backend, fetcher)
	return engine, backend, fetcher
}

func decode(t *testing.T, e *audio.Engine, path string) *audio.Buffer {
	t.Helper()
	buf, err := e.Decode(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, buf)
	return buf
}

func volume(v float64) *float64 { return &v }

func TestEngine_PlayWithoutContextIsSkipped(t *testing.T) {
	e, backend, _ := newTestEngine(t, nil)

	result := e.Play(nil, audio.PlayOptions{})

	require.False(t, result.OK())
	require.Equal(t, audio.SkipNoContext, result.Reason)
	require.Zero(t, backend.Opens(), "play must not open a context")
}

func TestEngine_DecodeOpensContextOnce(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{
		"a.wav": audiotest.WAV(testRate, 100*time.Millisecond, 0.5),
		"b.wav": audiotest.WAV(testRate, 100*time.Millisecond, 0.5),
	})

	buf := decode(t, e, "a.wav")
	decode(t, e, "b.wav")

	require.True(t, e.HasContext())
	require.Equal(t, 1, backend.Opens())
	require.Equal(t, 800, buf.Len())
	require.Equal(t, 100*time.Millisecond, buf.Duration())
}

func TestEngine_PlayNilBufferIsSkipped(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, 50*time.Millisecond, 0.5)})
	decode(t, e, "a.wav")

	result := e.Play(nil, audio.PlayOptions{})

	require.False(t, result.OK())
	require.Equal(t, audio.SkipNoBuffer, result.Reason)
	require.Nil(t, e.Current())
}

func TestEngine_NaturalEndClosesDone(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, 100*time.Millisecond, 0.5)})
	buf := decode(t, e, "a.wav")

	result := e.Play(buf, audio.PlayOptions{})
	require.True(t, result.OK())
	require.NotEmpty(t, result.Session.ID)
	require.False(t, result.Session.Finished())

	backend.Render(1000)

	require.True(t, result.Session.Finished())
	require.Zero(t, backend.Playing())
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, time.Second, 0.5)})
	buf := decode(t, e, "a.wav")

	require.NotPanics(t, e.Stop, "stop with nothing playing")

	result := e.Play(buf, audio.PlayOptions{})
	backend.Render(100)
	e.Stop()

	require.True(t, result.Session.Finished())
	require.Nil(t, e.Current())
	require.Zero(t, audiotest.Peak(backend.Render(200)), "stopped session must be silent")

	require.NotPanics(t, e.Stop)
}

func TestEngine_PlayAgainAfterStop(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, time.Second, 0.8)})
	buf := decode(t, e, "a.wav")

	first := e.Play(buf, audio.PlayOptions{Volume: volume(0.25)})
	backend.Render(100)
	e.Stop()

	second := e.Play(buf, audio.PlayOptions{})
	require.True(t, second.OK())
	require.NotEqual(t, first.Session.ID, second.Session.ID)
	require.False(t, second.Session.Finished())
	require.InDelta(t, 0.4, audiotest.Peak(backend.Render(100)), 0.01, "second play uses the initial volume, not the old gain")
}

func TestEngine_VolumeIsLinear(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, time.Second, 0.8)})
	buf := decode(t, e, "a.wav")

	e.Play(buf, audio.PlayOptions{})
	require.InDelta(t, 0.4, audiotest.Peak(backend.Render(200)), 0.01)

	e.SetVolume(0.25)
	require.InDelta(t, 0.2, audiotest.Peak(backend.Render(200)), 0.01)

	e.SetVolume(3)
	require.InDelta(t, 0.8, audiotest.Peak(backend.Render(200)), 0.01, "volume is clamped to 1")
}

func TestEngine_SetVolumeWithoutSessionIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	require.NotPanics(t, func() { e.SetVolume(0.3) })
}

func TestEngine_DurationStopsPlayback(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, time.Second, 0.5)})
	buf := decode(t, e, "a.wav")

	result := e.Play(buf, audio.PlayOptions{Duration: 50 * time.Millisecond})
	samples := backend.Render(1000)

	require.Greater(t, audiotest.Peak(samples[:400]), 0.0)
	require.Zero(t, audiotest.Peak(samples[400:]))
	require.True(t, result.Session.Finished())
}

func TestEngine_OffsetSkipsIntoBuffer(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, 100*time.Millisecond, 0.5)})
	buf := decode(t, e, "a.wav")

	result := e.Play(buf, audio.PlayOptions{Offset: 50 * time.Millisecond})
	samples := backend.Render(1000)

	require.Greater(t, audiotest.Peak(samples[:400]), 0.0)
	require.Zero(t, audiotest.Peak(samples[400:]))
	require.True(t, result.Session.Finished())
}

func TestEngine_OffsetPastEndFinishesImmediately(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, 100*time.Millisecond, 0.5)})
	buf := decode(t, e, "a.wav")

	result := e.Play(buf, audio.PlayOptions{Offset: 5 * time.Second})
	require.True(t, result.OK())
	require.Zero(t, audiotest.Peak(backend.Render(100)))
	require.True(t, result.Session.Finished())
}

func TestEngine_CloseContext(t *testing.T) {
	e, backend, _ := newTestEngine(t, map[string][]byte{"a.wav": audiotest.WAV(testRate, time.Second, 0.5)})
	buf := decode(t, e, "a.wav")
	result := e.Play(buf, audio.PlayOptions{})

	require.NoError(t, e.CloseContext())

	require.True(t, result.Session.Finished())
	require.False(t, e.HasContext())
	require.Equal(t, 1, backend.Closes())

	skipped := e.Play(buf, audio.PlayOptions{})
	require.Equal(t, audio.SkipNoContext, skipped.Reason)

	require.NoError(t, e.CloseContext(), "closing twice is harmless")
	require.Equal(t, 1, backend.Closes())

	decode(t, e, "a.wav")
	require.Equal(t, 2, backend.Opens(), "decode reopens a closed context")
	require.True(t, e.Play(buf, audio.PlayOptions{}).OK())
}

func TestEngine_FetchError(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	_, err := e.Decode(context.Background(), "missing.mp3")

	var fetchErr *audio.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "missing.mp3", fetchErr.Path)
	require.Equal(t, 404, fetchErr.StatusCode)
}

func TestEngine_DecodeError(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string][]byte{
		"notes.txt":  []byte("definitely not audio"),
		"broken.wav": []byte("RIFF\x00\x00\x00\x00WAVEjunk"),
	})

	_, err := e.Decode(context.Background(), "notes.txt")
	var decodeErr *audio.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)

	_, err = e.Decode(context.Background(), "broken.wav")
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, audio.FormatWAV, decodeErr.Format)
}

func TestEngine_OutputError(t *testing.T) {
	backend := &audiotest.Backend{OpenErr: errors.New("no device")}
	e := audio.NewEngine(audio.EngineConfig{SampleRate: testRate}, backend, audiotest.NewFetcher(nil))

	_, err := e.Decode(context.Background(), "a.wav")

	var outErr *audio.OutputError
	require.ErrorAs(t, err, &outErr)
	require.False(t, e.HasContext())
}

func TestEngine_ResamplesToEngineRate(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string][]byte{"hi.wav": audiotest.WAV(16000, 100*time.Millisecond, 0.5)})

	buf := decode(t, e, "hi.wav")

	require.Equal(t, testRate, int(buf.SampleRate()))
	require.InDelta(t, 800, buf.Len(), 8)
}

func TestEngine_DecodeMP3(t *testing.T) {
	data, err := os.ReadFile("testdata/silence.mp3")
	require.NoError(t, err)
	e, _, _ := newTestEngine(t, map[string][]byte{"songs/silence.mp3": data})

	buf := decode(t, e, "songs/silence.mp3")

	// ten 1152-frame MPEG-1 frames at 44.1kHz
	want := time.Duration(10*1152) * time.Second / 44100
	require.Equal(t, testRate, int(buf.SampleRate()))
	require.InDelta(t, float64(want), float64(buf.Duration()), float64(5*time.Millisecond))
}

func TestClampVolume(t *testing.T) {
	require.Equal(t, 0.0, audio.ClampVolume(-1))
	require.Equal(t, 0.3, audio.ClampVolume(0.3))
	require.Equal(t, 1.0, audio.ClampVolume(1.5))
}
