// Package tui is the interactive terminal front end for the quiz.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/songquiz/internal/catalog"
	"github.com/audiolibrelab/songquiz/internal/quiz"
	"github.com/audiolibrelab/songquiz/internal/service"
)

const volumeStep = 0.05

// snapshotMsg carries a state change pushed by the quiz.
type snapshotMsg quiz.Snapshot

// Model is the bubbletea model. All quiz calls return immediately; state
// arrives back through snapshotMsg.
type Model struct {
	svc     service.Service
	updates chan quiz.Snapshot

	categories []catalog.CategoryInfo
	durations  []time.Duration
	cursor     int
	duration   int
	snap       quiz.Snapshot
	notice     string

	width  int
	height int
}

// New subscribes to svc and returns the initial model.
func New(svc service.Service) Model {
	updates := make(chan quiz.Snapshot, 16)
	svc.Subscribe(func(s quiz.Snapshot) {
		select {
		case updates <- s:
		default:
			// The model re-reads the full status on every message, so a
			// dropped update only delays a redraw.
		}
	})

	return Model{
		svc:        svc,
		updates:    updates,
		categories: svc.Categories(),
		durations:  svc.Durations(),
		snap:       svc.Status(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		return snapshotMsg(<-updates)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case snapshotMsg:
		m.refresh()
		return m, m.waitForSnapshot()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.categories)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.duration > 0 {
			m.duration--
		}
	case "right", "l":
		if m.duration < len(m.durations)-1 {
			m.duration++
		}

	case "enter", "g":
		if len(m.categories) == 0 {
			break
		}
		started, err := m.svc.GetSong(m.cursor)
		switch {
		case err != nil:
			m.notice = err.Error()
		case !started:
			m.notice = "Finish the current question first"
		}

	case " ", "p":
		res := m.svc.PlaySong(m.selectedDuration(), false)
		if !res.OK() {
			m.notice = fmt.Sprintf("Nothing played (%s)", res.Reason)
		}
	case "f":
		m.svc.PlaySong(0, false)
	case "t":
		m.svc.ToggleSong()
	case "r":
		if !m.svc.RevealSong() {
			m.notice = "Nothing to reveal"
		}

	case "+", "=":
		m.svc.SetVolume(m.snap.Volume + volumeStep)
	case "-", "_":
		m.svc.SetVolume(m.snap.Volume - volumeStep)
	}

	m.refresh()
	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.svc.Status()
	m.categories = m.svc.Categories()
	if m.cursor >= len(m.categories) {
		m.cursor = max(len(m.categories)-1, 0)
	}
}

// selectedDuration is the clip length for a normal play; zero plays to the end.
func (m Model) selectedDuration() time.Duration {
	if len(m.durations) == 0 {
		return 0
	}
	return m.durations[m.duration]
}
