package quiz

import (
	"fmt"
	"time"
)

// NoSongText is shown while nothing has been loaded yet.
const NoSongText = "Hang tight!"

// Phase is the state of the current-song slot. Whether a clip is sounding is
// tracked separately, since a song can be played in several phases.
type Phase int

const (
	Idle Phase = iota
	Loading
	Asking
	Revealing
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Asking:
		return "asking"
	case Revealing:
		return "revealing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SongView is a read-only copy of the current song.
type SongView struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Src       string  `json:"src"`
	Timestamp float64 `json:"timestamp"`
	Decoded   string  `json:"decoded"`
}

// FinishedEntry records a revealed song.
type FinishedEntry struct {
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Src        string    `json:"src"`
	Timestamp  float64   `json:"timestamp"`
	FinishedAt time.Time `json:"finished_at"`
}

// Snapshot is the observable quiz state handed to presentation layers.
type Snapshot struct {
	Phase    Phase           `json:"phase"`
	Playing  bool            `json:"playing"`
	Volume   float64         `json:"volume"`
	Current  *SongView       `json:"current,omitempty"`
	Finished []FinishedEntry `json:"finished"`
	LastErr  string          `json:"last_error,omitempty"`
	Debug    bool            `json:"debug"`
}

func (s Snapshot) Loading() bool { return s.Phase == Loading }

// Asking reports whether the answer is still hidden. That holds through the
// reveal delay; the name only shows once the song is finished.
func (s Snapshot) Asking() bool {
	return s.Phase == Loading || s.Phase == Asking || s.Phase == Revealing
}

func (s Snapshot) Revealing() bool { return s.Phase == Revealing }

// DisplayName is the title line: a placeholder before the first load, the
// category with the answer hidden while a question is open, else the name.
func (s Snapshot) DisplayName() string {
	if s.Current == nil {
		return NoSongText
	}
	if s.Asking() {
		return "[" + s.Current.Category + "] ???"
	}
	return s.Current.Name
}

// NoSongLoaded reports whether the playback controls have nothing to act on.
func (s Snapshot) NoSongLoaded() bool {
	return s.Loading() || s.Current == nil || s.Current.Category == ""
}
