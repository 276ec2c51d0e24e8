package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/songquiz/internal/quiz"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	songStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Song Quiz"))
	b.WriteString("\n\n")
	b.WriteString(songStyle.Render(m.snap.DisplayName()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n\n")

	if len(m.categories) == 0 {
		b.WriteString(dimStyle.Render("No categories loaded"))
		b.WriteString("\n")
	}
	for i, cat := range m.categories {
		line := fmt.Sprintf("%s (%d)", cat.Name, cat.Count)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else if cat.Count == 0 {
			b.WriteString(dimStyle.Render("  " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.durationLine())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Volume %s %3.0f%%\n", volumeBar(m.snap.Volume, 20), m.snap.Volume*100))

	if len(m.snap.Finished) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Revealed"))
		b.WriteString("\n")
		for i := len(m.snap.Finished) - 1; i >= 0; i-- {
			f := m.snap.Finished[i]
			b.WriteString(fmt.Sprintf("  [%s] %s\n", f.Category, f.Name))
		}
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.notice))
		b.WriteString("\n")
	} else if m.snap.LastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.snap.LastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter: new song  space: play  f: play all  t: toggle  r: reveal  ←/→: length  +/-: volume  q: quit"))
	return b.String()
}

func (m Model) statusLine() string {
	var parts []string
	switch {
	case m.snap.Loading():
		parts = append(parts, "loading")
	case m.snap.Revealing():
		parts = append(parts, "revealing")
	case m.snap.Phase == quiz.Asking:
		parts = append(parts, "asking")
	case m.snap.Phase == quiz.Finished:
		parts = append(parts, "revealed")
	}
	if m.snap.Playing {
		parts = append(parts, "playing")
	}
	if len(parts) == 0 {
		return "ready"
	}
	return strings.Join(parts, " · ")
}

func (m Model) durationLine() string {
	if len(m.durations) == 0 {
		return "Length: full clip"
	}
	labels := make([]string, len(m.durations))
	for i, d := range m.durations {
		label := fmt.Sprintf("%gs", d.Seconds())
		if i == m.duration {
			label = selectedStyle.Render("[" + label + "]")
		}
		labels[i] = label
	}
	return "Length: " + strings.Join(labels, " ")
}

func volumeBar(level float64, width int) string {
	filled := int(level*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
