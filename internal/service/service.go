package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/audiolibrelab/songquiz/internal/audio"
	"github.com/audiolibrelab/songquiz/internal/catalog"
	"github.com/audiolibrelab/songquiz/internal/config"
	"github.com/audiolibrelab/songquiz/internal/quiz"
)

// Service represents the core song quiz service interface
type Service interface {
	// Quiz operations
	GetSong(category int) (bool, error)
	GetSongAt(category, index int) (bool, error)
	PlaySong(duration time.Duration, fromBeginning bool) audio.PlayResult
	RevealSong() bool
	ToggleSong() bool
	SetVolume(level float64) float64

	// Information operations
	Status() quiz.Snapshot
	Categories() []catalog.CategoryInfo
	Durations() []time.Duration
	RevealDelay() time.Duration
	Subscribe(fn func(quiz.Snapshot)) (unsubscribe func())
	GetConfig() *config.Config
	GetLastError() string

	Close() error
}

// Deps replaces the collaborators New would build from configuration.
type Deps struct {
	Backend audio.Backend
	Fetcher audio.Fetcher
	Picker  catalog.Picker
}

// QuizService is the main service implementation
type QuizService struct {
	cfg     *config.Config
	engine  *audio.Engine
	catalog *catalog.Catalog
	quiz    *quiz.Quiz

	// Error tracking
	lastError      string
	songError      string
	lastErrorMutex sync.RWMutex
}

// New builds the audio engine, loads the catalog and starts a quiz. A catalog
// that cannot be loaded is logged and replaced by an empty one.
func New(ctx context.Context, cfg *config.Config) (Service, error) {
	return NewWithDeps(ctx, cfg, Deps{})
}

// NewWithDeps is New with injectable collaborators; zero fields are built
// from cfg.
func NewWithDeps(ctx context.Context, cfg *config.Config, deps Deps) (*QuizService, error) {
	if deps.Backend == nil {
		backend, err := audio.NewBackend(cfg.Audio.Backend)
		if err != nil {
			return nil, fmt.Errorf("failed to create audio backend: %w", err)
		}
		deps.Backend = backend
	}
	if deps.Fetcher == nil {
		deps.Fetcher = audio.NewSourceFetcher(cfg.FetchTimeout())
	}

	engine := audio.NewEngine(audio.EngineConfig{
		SampleRate:      beep.SampleRate(cfg.Audio.SampleRate),
		BufferSize:      cfg.BufferSize(),
		InitialVolume:   cfg.Volume(),
		ResampleQuality: cfg.Audio.ResampleQuality,
	}, deps.Backend, deps.Fetcher)

	s := &QuizService{cfg: cfg, engine: engine}

	cat, err := catalog.Load(ctx, deps.Fetcher, cfg.Catalog)
	if err != nil {
		s.setLastError(fmt.Sprintf("Unable to load catalog: %v", err))
		cat = catalog.Empty()
	}
	s.catalog = cat

	opts := []quiz.Option{quiz.WithDebug(cfg.Debug())}
	if delay, ok := cfg.RevealDelay(); ok {
		opts = append(opts, quiz.WithRevealDelay(delay))
	}
	if deps.Picker != nil {
		opts = append(opts, quiz.WithPicker(deps.Picker))
	}
	s.quiz = quiz.New(engine, cat, opts...)

	s.quiz.OnChange(s.trackSongError)

	slog.Debug("Service ready",
		"backend", deps.Backend.GetType(),
		"catalog", cfg.Catalog,
		"categories", len(cat.Categories),
		"reveal_delay", s.quiz.RevealDelay())
	return s, nil
}

// GetSong draws a random song from the category
func (s *QuizService) GetSong(category int) (bool, error) {
	slog.Debug("Service.GetSong called", "category", category)
	ok, err := s.quiz.GetSong(category)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to get song: %v", err))
	}
	return ok, err
}

// GetSongAt loads an explicit song, debug mode only
func (s *QuizService) GetSongAt(category, index int) (bool, error) {
	slog.Debug("Service.GetSongAt called", "category", category, "index", index)
	ok, err := s.quiz.GetSongAt(category, index)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to get song: %v", err))
	}
	return ok, err
}

func (s *QuizService) PlaySong(duration time.Duration, fromBeginning bool) audio.PlayResult {
	return s.quiz.PlaySong(duration, fromBeginning)
}

func (s *QuizService) RevealSong() bool { return s.quiz.RevealSong() }

func (s *QuizService) ToggleSong() bool { return s.quiz.ToggleSong() }

func (s *QuizService) SetVolume(level float64) float64 { return s.quiz.SetVolume(level) }

func (s *QuizService) Status() quiz.Snapshot { return s.quiz.Snapshot() }

func (s *QuizService) Categories() []catalog.CategoryInfo { return s.quiz.Categories() }

func (s *QuizService) Durations() []time.Duration { return s.quiz.Durations() }

func (s *QuizService) RevealDelay() time.Duration { return s.quiz.RevealDelay() }

func (s *QuizService) Subscribe(fn func(quiz.Snapshot)) func() { return s.quiz.OnChange(fn) }

// GetConfig returns the current configuration
func (s *QuizService) GetConfig() *config.Config {
	return s.cfg
}

// Close stops playback and releases the audio device.
func (s *QuizService) Close() error {
	return s.quiz.Close()
}

// GetLastError returns the last error message (thread-safe)
func (s *QuizService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *QuizService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// trackSongError records a failed decode once. A new load clears it.
func (s *QuizService) trackSongError(snap quiz.Snapshot) {
	if snap.Phase == quiz.Loading {
		s.clearLastError()
		return
	}

	s.lastErrorMutex.Lock()
	if snap.LastErr == "" || snap.LastErr == s.songError {
		s.lastErrorMutex.Unlock()
		return
	}
	s.songError = snap.LastErr
	s.lastErrorMutex.Unlock()

	s.setLastError(fmt.Sprintf("Unable to load song: %s", snap.LastErr))
}

// clearLastError clears the last error message (thread-safe)
func (s *QuizService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
	s.songError = ""
}
