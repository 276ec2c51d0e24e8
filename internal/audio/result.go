package audio

// SkipReason explains why Play produced no sound.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipNoContext SkipReason = "no-context"
	SkipNoBuffer  SkipReason = "no-buffer"
)

// PlayResult is either Started with a session or Skipped with a reason.
type PlayResult struct {
	Session *Session
	Reason  SkipReason
}

// Started wraps a live session.
func Started(s *Session) PlayResult { return PlayResult{Session: s} }

// Skipped records a silent no-op.
func Skipped(reason SkipReason) PlayResult { return PlayResult{Reason: reason} }

// OK reports whether a session was started.
func (r PlayResult) OK() bool { return r.Session != nil }
