package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a passive handle on one sounding instance of a Buffer. All
// control goes through the Engine that started it; the session only reports
// when it is over.
type Session struct {
	ID       string
	Buffer   *Buffer
	Volume   float64
	Offset   time.Duration
	Duration time.Duration // 0 means play to the end
	Started  time.Time

	done     chan struct{}
	doneOnce sync.Once
}

func newSession(buf *Buffer, volume float64, offset, duration time.Duration) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Buffer:   buf,
		Volume:   volume,
		Offset:   offset,
		Duration: duration,
		Started:  time.Now(),
		done:     make(chan struct{}),
	}
}

// Done is closed exactly once, when playback reaches its end or is stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Finished reports whether Done has been closed.
func (s *Session) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// finish may run on the audio callback goroutine; it must not take locks.
func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}
