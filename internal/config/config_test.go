package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestMergeConfigs_Fallback(t *testing.T) {
	base := Default()

	profile := &Config{
		Catalog: "https://quiz.example.com/songlist.json",
		Audio: AudioConfig{
			Backend:       "oto",
			InitialVolume: floatPtr(0), // explicit zero is still a value
		},
		Quiz: QuizConfig{RevealDelayMs: intPtr(0)},
	}

	result := mergeConfigs(base, profile)

	if result.Catalog != "https://quiz.example.com/songlist.json" {
		t.Errorf("Expected catalog override, got %s", result.Catalog)
	}
	if result.Audio.Backend != "oto" {
		t.Errorf("Expected backend 'oto', got %s", result.Audio.Backend)
	}
	if result.Audio.SampleRate != 44100 {
		t.Errorf("Expected inherited sample rate 44100, got %d", result.Audio.SampleRate)
	}
	if result.Volume() != 0 {
		t.Errorf("Expected explicit zero volume, got %.2f", result.Volume())
	}
	if delay, ok := result.RevealDelay(); !ok || delay != 0 {
		t.Errorf("Expected reveal delay override of 0, got %v (override=%v)", delay, ok)
	}
	if result.Server.Port != 8080 {
		t.Errorf("Expected inherited port 8080, got %d", result.Server.Port)
	}

	inh := result.Inheritance
	if inh.Catalog != ProfileSpecific || inh.Audio.Backend != ProfileSpecific || inh.Audio.InitialVolume != ProfileSpecific {
		t.Errorf("Expected profile-specific markers, got %+v", inh)
	}
	if inh.Audio.SampleRate != Inherited || inh.Server.Port != Inherited || inh.Quiz.Debug != Inherited {
		t.Errorf("Expected inherited markers, got %+v", inh)
	}
}

func TestMergeConfigs_NilProfile(t *testing.T) {
	result := mergeConfigs(Default(), nil)

	if result.Catalog != "songlist.json" || result.Audio.Backend != "auto" {
		t.Errorf("Expected defaults to be copied, got %+v", result)
	}
	if result.Inheritance.Catalog != Inherited {
		t.Errorf("Expected catalog to be inherited, got %s", result.Inheritance.Catalog)
	}
}

func TestConfigDurations(t *testing.T) {
	cfg := Default()

	if cfg.BufferSize() != 100*time.Millisecond {
		t.Errorf("Expected 100ms buffer, got %v", cfg.BufferSize())
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", cfg.FetchTimeout())
	}
	if _, ok := cfg.RevealDelay(); ok {
		t.Error("Expected no reveal delay override by default")
	}

	cfg.Quiz.RevealDelayMs = intPtr(-1)
	if _, ok := cfg.RevealDelay(); ok {
		t.Error("Expected negative reveal delay to defer to the catalog")
	}

	cfg.Quiz.RevealDelayMs = intPtr(1500)
	if d, ok := cfg.RevealDelay(); !ok || d != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s override, got %v", d)
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/Music/quiz/songlist.json", filepath.Join(homeDir, "Music", "quiz", "songlist.json")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~", "~"}, // Should not expand bare tilde
	}

	for _, test := range tests {
		result := expandPath(test.input)
		if result != test.expected {
			t.Errorf("expandPath(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestLoadWithProfile_NoFile(t *testing.T) {
	cfg, err := LoadWithProfile(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got error: %v", err)
	}
	if cfg.Catalog != "songlist.json" || cfg.Profile != "default" {
		t.Errorf("Expected built-in defaults, got %+v", cfg)
	}

	_, err = LoadWithProfile(filepath.Join(t.TempDir(), "missing.yaml"), "party")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}

const profilesYAML = `
active_config: party

configs:
  default:
    catalog: ~/quiz/songlist.json
    audio:
      backend: speaker
      initial_volume: 0.8
    server:
      port: 9000

  party:
    catalog: https://quiz.example.com/songlist.json
    audio:
      sample_rate: 48000
    quiz:
      reveal_delay_ms: 2500
      debug: true
`

func TestLoadWithProfile_ActiveConfig(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Profile != "party" {
		t.Errorf("Expected active profile 'party', got %s", cfg.Profile)
	}
	if cfg.Catalog != "https://quiz.example.com/songlist.json" {
		t.Errorf("Expected profile catalog, got %s", cfg.Catalog)
	}
	if cfg.Audio.Backend != "speaker" || cfg.Inheritance.Audio.Backend != Inherited {
		t.Errorf("Expected backend inherited from default, got %s (%s)", cfg.Audio.Backend, cfg.Inheritance.Audio.Backend)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Inheritance.Audio.SampleRate != ProfileSpecific {
		t.Errorf("Expected profile sample rate 48000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Volume() != 0.8 {
		t.Errorf("Expected volume 0.8 from default profile, got %.2f", cfg.Volume())
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000 from default profile, got %d", cfg.Server.Port)
	}
	if cfg.Audio.BufferMs != 100 {
		t.Errorf("Expected built-in buffer 100ms, got %d", cfg.Audio.BufferMs)
	}
	if !cfg.Debug() {
		t.Error("Expected debug to be enabled")
	}
	if d, ok := cfg.RevealDelay(); !ok || d != 2500*time.Millisecond {
		t.Errorf("Expected 2.5s reveal delay, got %v", d)
	}
}

func TestLoadWithProfile_ExplicitProfile(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)

	cfg, err := LoadWithProfile(configFile, "default")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	homeDir, _ := os.UserHomeDir()
	if cfg.Catalog != filepath.Join(homeDir, "quiz", "songlist.json") {
		t.Errorf("Expected expanded catalog path, got %s", cfg.Catalog)
	}
	if cfg.Debug() {
		t.Error("Expected debug to be off in the default profile")
	}

	_, err = LoadWithProfile(configFile, "missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}

func TestLoadWithProfile_EnvOverride(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)
	t.Setenv("SONGQUIZ_AUDIO_BACKEND", "oto")
	t.Setenv("SONGQUIZ_SERVER_PORT", "7000")

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Audio.Backend != "oto" {
		t.Errorf("Expected env backend 'oto', got %s", cfg.Audio.Backend)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Expected env port 7000, got %d", cfg.Server.Port)
	}
}

func TestLoadWithProfile_EnvOverrideTuning(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)
	t.Setenv("SONGQUIZ_AUDIO_BUFFER_MS", "250")
	t.Setenv("SONGQUIZ_AUDIO_RESAMPLE_QUALITY", "2")
	t.Setenv("SONGQUIZ_FETCH_TIMEOUT_MS", "3000")
	t.Setenv("SONGQUIZ_QUIZ_DEBUG", "true")

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Audio.BufferMs != 250 {
		t.Errorf("Expected env buffer 250, got %d", cfg.Audio.BufferMs)
	}
	if cfg.Audio.ResampleQuality != 2 {
		t.Errorf("Expected env resample quality 2, got %d", cfg.Audio.ResampleQuality)
	}
	if cfg.FetchTimeout() != 3*time.Second {
		t.Errorf("Expected env fetch timeout 3s, got %s", cfg.FetchTimeout())
	}
	if !cfg.Debug() {
		t.Errorf("Expected env debug mode to be on")
	}
}

func TestUpdateActiveConfig(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)

	if err := UpdateActiveConfig(configFile, "default"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Profile != "default" {
		t.Errorf("Expected active profile 'default', got %s", cfg.Profile)
	}

	err = UpdateActiveConfig(configFile, "nope")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}

func TestGetAvailableProfiles(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)

	profiles, err := GetAvailableProfiles(configFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if strings.Join(profiles, ",") != "default,party" {
		t.Errorf("Expected [default party], got %v", profiles)
	}
}
