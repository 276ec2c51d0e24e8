package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// Format identifies an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatVorbis  Format = "vorbis"
	FormatMP3     Format = "mp3"
)

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// DetectFormat sniffs the container from magic bytes and falls back to the
// file extension of path.
func DetectFormat(path string, data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatVorbis
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".ogg", ".oga":
		return FormatVorbis
	case ".mp3":
		return FormatMP3
	}
	return FormatUnknown
}

// decodeStream opens a streamer over data for the given container.
func decodeStream(format Format, data []byte) (beep.StreamCloser, beep.Format, error) {
	switch format {
	case FormatWAV:
		return wav.Decode(bytes.NewReader(data))
	case FormatFLAC:
		return flac.Decode(bytes.NewReader(data))
	case FormatVorbis:
		return vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case FormatMP3:
		return decodeMP3(data)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

func decodeMP3(data []byte) (beep.StreamCloser, beep.Format, error) {
	d, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to read mp3 header: %w", err)
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(d.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
	return &mp3Streamer{decoder: d}, format, nil
}

// mp3Streamer adapts the 16-bit little-endian stereo output of go-mp3.
type mp3Streamer struct {
	decoder *gomp3.Decoder
	raw     []byte
	err     error
}

const mp3BytesPerFrame = 4

func (s *mp3Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}
	need := len(samples) * mp3BytesPerFrame
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	read, err := io.ReadFull(s.decoder, raw)
	frames := read / mp3BytesPerFrame
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		right := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		samples[i][0] = float64(left) / 32768
		samples[i][1] = float64(right) / 32768
	}

	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			s.err = err
		}
		return frames, frames > 0
	}
	return frames, true
}

func (s *mp3Streamer) Err() error { return s.err }

func (s *mp3Streamer) Close() error { return nil }
