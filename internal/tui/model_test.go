package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/songquiz/internal/audio"
	"github.com/audiolibrelab/songquiz/internal/catalog"
	"github.com/audiolibrelab/songquiz/internal/config"
	"github.com/audiolibrelab/songquiz/internal/quiz"
)

type fakeService struct {
	snap       quiz.Snapshot
	categories []catalog.CategoryInfo
	listener   func(quiz.Snapshot)

	gotCategory int
	getErr      error
	played      []time.Duration
	reveals     int
	toggles     int
	volume      float64
}

func (f *fakeService) GetSong(category int) (bool, error) {
	f.gotCategory = category
	if f.getErr != nil {
		return false, f.getErr
	}
	return true, nil
}

func (f *fakeService) GetSongAt(category, index int) (bool, error) { return f.GetSong(category) }

func (f *fakeService) PlaySong(d time.Duration, fromBeginning bool) audio.PlayResult {
	f.played = append(f.played, d)
	return audio.PlayResult{Reason: audio.SkipNoBuffer}
}

func (f *fakeService) RevealSong() bool {
	f.reveals++
	return f.snap.Phase == quiz.Asking
}

func (f *fakeService) ToggleSong() bool {
	f.toggles++
	return true
}

func (f *fakeService) SetVolume(level float64) float64 {
	f.volume = audio.ClampVolume(level)
	f.snap.Volume = f.volume
	return f.volume
}

func (f *fakeService) Status() quiz.Snapshot              { return f.snap }
func (f *fakeService) Categories() []catalog.CategoryInfo { return f.categories }
func (f *fakeService) Durations() []time.Duration {
	return []time.Duration{time.Second, 2 * time.Second}
}
func (f *fakeService) RevealDelay() time.Duration { return 0 }
func (f *fakeService) Subscribe(fn func(quiz.Snapshot)) func() {
	f.listener = fn
	return func() { f.listener = nil }
}
func (f *fakeService) GetConfig() *config.Config { return config.Default() }
func (f *fakeService) GetLastError() string      { return "" }
func (f *fakeService) Close() error              { return nil }

func newFake() *fakeService {
	return &fakeService{
		snap: quiz.Snapshot{Volume: 0.5},
		categories: []catalog.CategoryInfo{
			{Index: 0, Name: "Rock", Count: 2},
			{Index: 1, Name: "Jazz", Count: 0},
		},
	}
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_SelectsCategory(t *testing.T) {
	svc := newFake()
	m := New(svc)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 1, svc.gotCategory, "cursor stops at the last category")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 0, svc.gotCategory)
	require.Empty(t, m.notice)
}

func TestModel_GetSongErrorIsShown(t *testing.T) {
	svc := newFake()
	svc.getErr = errors.New("category 0 does not exist")
	m := New(svc)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, "category 0 does not exist", m.notice)
	require.Contains(t, m.View(), "category 0 does not exist")
}

func TestModel_PlayUsesSelectedDuration(t *testing.T) {
	svc := newFake()
	m := New(svc)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight}, runes("p"), runes("f"))

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 0}, svc.played)
	require.Contains(t, m.View(), "[2s]")
}

func TestModel_RevealToggleAndVolume(t *testing.T) {
	svc := newFake()
	m := New(svc)

	m = press(t, m, runes("r"))
	require.Equal(t, "Nothing to reveal", m.notice)

	svc.snap.Phase = quiz.Asking
	m = press(t, m, runes("r"), runes("t"), runes("+"), runes("+"))

	require.Equal(t, 2, svc.reveals)
	require.Equal(t, 1, svc.toggles)
	require.InDelta(t, 0.6, svc.volume, 1e-9)
	require.InDelta(t, 0.6, m.snap.Volume, 1e-9)
	require.Empty(t, m.notice)
}

func TestModel_SnapshotMessageRefreshes(t *testing.T) {
	svc := newFake()
	m := New(svc)
	require.NotNil(t, svc.listener)

	svc.snap = quiz.Snapshot{
		Phase:   quiz.Asking,
		Volume:  0.5,
		Current: &quiz.SongView{Name: "Song A", Category: "Rock"},
	}
	svc.listener(svc.snap)

	cmd := m.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, snapshotMsg{}, msg)

	next, cmd := m.Update(msg)
	m = next.(Model)
	require.NotNil(t, cmd, "model keeps listening for snapshots")
	require.Equal(t, quiz.Asking, m.snap.Phase)

	view := m.View()
	require.Contains(t, view, "[Rock] ???")
	require.NotContains(t, view, "Song A")
}

func TestModel_Quit(t *testing.T) {
	m := New(newFake())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}

func TestModel_EmptyCatalog(t *testing.T) {
	svc := newFake()
	svc.categories = nil
	svc.gotCategory = -1
	m := New(svc)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, -1, svc.gotCategory, "nothing to draw from")
	require.Contains(t, m.View(), "No categories loaded")
	require.Contains(t, m.View(), quiz.NoSongText)
}
