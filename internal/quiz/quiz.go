// Package quiz drives a song through selection, decoding, playback and reveal,
// making sure only one song is in play at a time.
package quiz

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/audiolibrelab/songquiz/internal/audio"
	"github.com/audiolibrelab/songquiz/internal/catalog"
)

// ErrDebugDisabled is returned by GetSongAt when explicit selection is off.
var ErrDebugDisabled = errors.New("explicit song selection requires debug mode")

// Quiz-level reasons a playback request produced no sound, on top of the
// engine's own.
const (
	SkipAlreadyPlaying audio.SkipReason = "already-playing"
	SkipNoSong         audio.SkipReason = "no-song"
	SkipLoading        audio.SkipReason = "loading"
)

// Player is the part of the audio engine the quiz drives.
type Player interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
	Play(buf *audio.Buffer, opts audio.PlayOptions) audio.PlayResult
	Stop()
	SetVolume(level float64)
	CloseContext() error
	InitialVolume() float64
}

// Option configures a Quiz.
type Option func(*Quiz)

// WithDebug enables GetSongAt regardless of the catalog's debugMode.
func WithDebug(enabled bool) Option {
	return func(q *Quiz) { q.debug = q.debug || enabled }
}

// WithPicker replaces the random source used for song selection.
func WithPicker(p catalog.Picker) Option {
	return func(q *Quiz) { q.picker = p }
}

// WithRevealDelay overrides the catalog's reveal delay.
func WithRevealDelay(d time.Duration) Option {
	return func(q *Quiz) { q.revealDelay = d }
}

// Quiz is the game state machine. All methods are safe for concurrent use;
// decode completion, reveal timers and end-of-playback notifications arrive on
// their own goroutines and are serialised by the quiz mutex.
type Quiz struct {
	engine  Player
	catalog *catalog.Catalog
	picker  catalog.Picker

	debug       bool
	revealDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	phase       Phase
	current     *catalog.Song
	session     *audio.Session
	volume      float64
	finished    []FinishedEntry
	generation  uint64
	revealTimer *time.Timer
	lastErr     error
	listeners   []listener
	nextID      uint64
}

type listener struct {
	id uint64
	fn func(Snapshot)
}

// New creates a quiz over cat. The catalog is owned by the quiz from here on.
func New(engine Player, cat *catalog.Catalog, opts ...Option) *Quiz {
	if cat == nil {
		cat = catalog.Empty()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Quiz{
		engine:      engine,
		catalog:     cat,
		picker:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		debug:       cat.Debug,
		revealDelay: cat.RevealDelay,
		ctx:         ctx,
		cancel:      cancel,
		volume:      engine.InitialVolume(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// OnChange registers fn to receive a snapshot after every state change. It is
// called without the quiz lock held. The returned func removes fn.
func (q *Quiz) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := q.nextID
	q.listeners = append(q.listeners, listener{id: id, fn: fn})

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.listeners = slices.DeleteFunc(q.listeners, func(l listener) bool { return l.id == id })
	}
}

// Snapshot returns the current observable state.
func (q *Quiz) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Categories lists the categories with their remaining pool sizes.
func (q *Quiz) Categories() []catalog.CategoryInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.catalog.Summaries()
}

// Durations returns the clip-length presets offered to the player.
func (q *Quiz) Durations() []time.Duration {
	return q.catalog.DurationPresets()
}

// RevealDelay returns the pause between reveal and marking the song finished.
func (q *Quiz) RevealDelay() time.Duration { return q.revealDelay }

// Debug reports whether explicit selection is enabled.
func (q *Quiz) Debug() bool { return q.debug }

// GetSong draws a random song from the category and starts loading it. The
// call is ignored while a question is open or when the pool is empty; the
// boolean reports whether a load started.
func (q *Quiz) GetSong(category int) (bool, error) {
	return q.getSong(category, -1)
}

// GetSongAt loads the song at index without removing it from the pool.
func (q *Quiz) GetSongAt(category, index int) (bool, error) {
	if !q.debug {
		return false, ErrDebugDisabled
	}
	if index < 0 {
		return false, catalog.ErrNoSong
	}
	return q.getSong(category, index)
}

func (q *Quiz) getSong(category, index int) (bool, error) {
	q.mu.Lock()

	if phase := q.phase; phase == Loading || phase == Asking {
		q.mu.Unlock()
		slog.Debug("Song request ignored, question still open", "phase", phase)
		return false, nil
	}

	cat, err := q.catalog.Category(category)
	if err != nil {
		q.mu.Unlock()
		return false, err
	}

	var song *catalog.Song
	if index >= 0 {
		if song, err = cat.At(index); err != nil {
			q.mu.Unlock()
			return false, err
		}
	} else if cat.Remaining() == 0 {
		q.mu.Unlock()
		slog.Debug("Song request ignored, category exhausted", "category", cat.Name)
		return false, nil
	}

	if q.phase == Revealing {
		q.commitRevealLocked()
	}
	if q.session != nil {
		q.engine.Stop()
		if err := q.engine.CloseContext(); err != nil {
			slog.Warn("Failed to close audio context", "error", err)
		}
		q.session = nil
	}

	if song == nil {
		song, _ = cat.TakeRandom(q.picker)
	}
	song.SetCategory(cat.Name)

	q.generation++
	gen := q.generation
	q.current = song
	q.phase = Loading
	q.lastErr = nil
	location := q.catalog.Location(song)

	q.unlockAndNotify()

	slog.Info("Loading song", "category", cat.Name, "path", location)
	go q.load(gen, song, location)
	return true, nil
}

func (q *Quiz) load(gen uint64, song *catalog.Song, location string) {
	buf, err := q.engine.Decode(q.ctx, location)

	q.mu.Lock()
	if err != nil {
		song.SetFailed(err)
		slog.Error("Unable to load song", "path", location, "error", err)
	} else {
		song.SetDecoded(buf)
	}

	if gen != q.generation || q.phase != Loading {
		q.mu.Unlock()
		slog.Debug("Discarding stale decode", "path", location)
		return
	}
	if err != nil {
		q.lastErr = err
	}
	q.phase = Asking
	q.unlockAndNotify()
}

// PlaySong plays the current song for duration (0 plays to the end), starting
// at its configured offset or, with fromBeginning, at zero. A second call
// while a clip is sounding has no effect.
func (q *Quiz) PlaySong(duration time.Duration, fromBeginning bool) audio.PlayResult {
	q.mu.Lock()
	res := q.playLocked(duration, fromBeginning)
	if !res.OK() {
		q.mu.Unlock()
		return res
	}
	q.unlockAndNotify()
	return res
}

func (q *Quiz) playLocked(duration time.Duration, fromBeginning bool) audio.PlayResult {
	switch {
	case q.session != nil:
		return audio.Skipped(SkipAlreadyPlaying)
	case q.current == nil:
		return audio.Skipped(SkipNoSong)
	case q.phase == Loading:
		return audio.Skipped(SkipLoading)
	}

	var offset time.Duration
	if !fromBeginning {
		offset = q.current.StartOffset()
	}
	volume := q.volume

	res := q.engine.Play(q.current.Audio(), audio.PlayOptions{
		Volume:   &volume,
		Offset:   offset,
		Duration: duration,
	})
	if !res.OK() {
		slog.Debug("Nothing to play", "song", q.current.Name, "reason", res.Reason)
		return res
	}

	q.session = res.Session
	go q.watch(res.Session)
	return res
}

// watch clears the playing flag when session ends, unless a newer session
// has taken its place.
func (q *Quiz) watch(session *audio.Session) {
	select {
	case <-session.Done():
	case <-q.ctx.Done():
		return
	}

	q.mu.Lock()
	if q.session != session {
		q.mu.Unlock()
		return
	}
	q.session = nil
	q.unlockAndNotify()
}

// RevealSong plays the answer and, after the reveal delay, moves the song to
// the finished list. It only acts on an open question with nothing sounding.
func (q *Quiz) RevealSong() bool {
	q.mu.Lock()

	if q.phase != Asking || q.session != nil {
		q.mu.Unlock()
		return false
	}

	q.playLocked(0, false)
	q.phase = Revealing

	if q.revealDelay <= 0 {
		q.commitRevealLocked()
	} else {
		gen := q.generation
		q.revealTimer = time.AfterFunc(q.revealDelay, func() { q.revealDue(gen) })
	}
	q.unlockAndNotify()
	return true
}

func (q *Quiz) revealDue(gen uint64) {
	q.mu.Lock()
	if gen != q.generation || q.phase != Revealing {
		q.mu.Unlock()
		return
	}
	q.commitRevealLocked()
	q.unlockAndNotify()
}

func (q *Quiz) commitRevealLocked() {
	if q.revealTimer != nil {
		q.revealTimer.Stop()
		q.revealTimer = nil
	}
	song := q.current
	q.finished = append(q.finished, FinishedEntry{
		Name:       song.Name,
		Category:   song.Category(),
		Src:        song.Src,
		Timestamp:  song.Timestamp,
		FinishedAt: time.Now(),
	})
	q.phase = Finished
	slog.Info("Song revealed", "song", song.Name, "category", song.Category())
}

// ToggleSong stops the clip if one is sounding, otherwise replays the current
// song from the very beginning. It reports whether a clip is sounding after
// the call.
func (q *Quiz) ToggleSong() bool {
	q.mu.Lock()

	if q.session != nil {
		q.engine.Stop()
		q.session = nil
		q.unlockAndNotify()
		return false
	}

	if !q.playLocked(0, true).OK() {
		q.mu.Unlock()
		return false
	}
	q.unlockAndNotify()
	return true
}

// SetVolume clamps level to 0..1, keeps it for later playbacks and applies it
// to the sounding clip.
func (q *Quiz) SetVolume(level float64) float64 {
	q.mu.Lock()
	q.volume = audio.ClampVolume(level)
	q.engine.SetVolume(q.volume)
	volume := q.volume
	q.unlockAndNotify()
	return volume
}

// Close stops playback, abandons pending work and releases the audio context.
func (q *Quiz) Close() error {
	q.cancel()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.generation++
	if q.revealTimer != nil {
		q.revealTimer.Stop()
		q.revealTimer = nil
	}
	q.session = nil
	q.engine.Stop()
	return q.engine.CloseContext()
}

func (q *Quiz) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:    q.phase,
		Playing:  q.session != nil,
		Volume:   q.volume,
		Finished: append([]FinishedEntry(nil), q.finished...),
		Debug:    q.debug,
	}
	if q.current != nil {
		s.Current = &SongView{
			Name:      q.current.Name,
			Category:  q.current.Category(),
			Src:       q.current.Src,
			Timestamp: q.current.Timestamp,
			Decoded:   q.current.State().String(),
		}
	}
	if q.lastErr != nil {
		s.LastErr = q.lastErr.Error()
	}
	return s
}

// unlockAndNotify releases the quiz lock and hands listeners a snapshot taken
// while it was held.
func (q *Quiz) unlockAndNotify() {
	snap := q.snapshotLocked()
	listeners := slices.Clone(q.listeners)
	q.mu.Unlock()

	for _, l := range listeners {
		l.fn(snap)
	}
}
