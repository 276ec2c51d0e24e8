package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/audiolibrelab/songquiz/internal/quiz"
	"github.com/audiolibrelab/songquiz/internal/service"
)

const validSteps = "lptr"

// validatePipeline checks the -p flag before any audio is opened.
func validatePipeline() error {
	if pipeline == "" {
		return nil
	}
	for _, step := range strings.ToLower(pipeline) {
		if !strings.ContainsRune(validSteps, step) {
			return fmt.Errorf("invalid pipeline step '%c' (valid: l=load, p=play, t=toggle, r=reveal)", step)
		}
	}
	if strings.ToLower(pipeline)[0] != 'l' {
		return fmt.Errorf("pipeline must start with 'l' to load a song")
	}
	return nil
}

// waitFor blocks until cond holds for the quiz status or the timeout expires.
func waitFor(svc service.Service, timeout time.Duration, cond func(quiz.Snapshot) bool) (quiz.Snapshot, error) {
	changed := make(chan struct{}, 1)
	unsubscribe := svc.Subscribe(func(quiz.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	deadline := time.After(timeout)
	for {
		snap := svc.Status()
		if cond(snap) {
			return snap, nil
		}
		select {
		case <-changed:
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			return snap, fmt.Errorf("timed out after %s (phase: %s)", timeout, snap.Phase)
		}
	}
}

func notPlaying(s quiz.Snapshot) bool { return !s.Playing }
