package catalog

import (
	"time"

	"github.com/audiolibrelab/songquiz/internal/audio"
)

// DecodeState tracks a song's audio. It only moves forward to Decoded; a
// Failed song may still be decoded by a later attempt.
type DecodeState int

const (
	Undecoded DecodeState = iota
	Decoded
	Failed
)

func (s DecodeState) String() string {
	switch s {
	case Decoded:
		return "decoded"
	case Failed:
		return "failed"
	default:
		return "undecoded"
	}
}

// Song is one catalog entry. Name, Src and Timestamp come from the document;
// the category stamp and decoded audio are filled in during play.
type Song struct {
	Name      string  `json:"name"`
	Src       string  `json:"src"`
	Timestamp float64 `json:"timestamp"`

	category string
	state    DecodeState
	audio    *audio.Buffer
	err      error
}

// StartOffset is where a normal playback begins.
func (s *Song) StartOffset() time.Duration {
	if s.Timestamp <= 0 {
		return 0
	}
	return time.Duration(s.Timestamp * float64(time.Second))
}

// Category returns the name stamped when the song was selected.
func (s *Song) Category() string { return s.category }

// SetCategory stamps the category the song was drawn from.
func (s *Song) SetCategory(name string) { s.category = name }

func (s *Song) State() DecodeState { return s.state }

// Audio returns the decoded buffer, or nil until decoding succeeds.
func (s *Song) Audio() *audio.Buffer { return s.audio }

// Err returns the last decode failure.
func (s *Song) Err() error { return s.err }

// SetDecoded stores buf. A song that is already decoded keeps its buffer.
func (s *Song) SetDecoded(buf *audio.Buffer) {
	if s.state == Decoded || buf == nil {
		return
	}
	s.state = Decoded
	s.audio = buf
	s.err = nil
}

// SetFailed records a failed decode unless the song was already decoded.
func (s *Song) SetFailed(err error) {
	if s.state == Decoded {
		return
	}
	s.state = Failed
	s.err = err
}
