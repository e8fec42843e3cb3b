package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// View renders the current screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("piTunes"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(m.breadcrumb()))
	b.WriteString("\n\n")

	switch m.screen {
	case screenMenu:
		for i, section := range sections {
			b.WriteString(renderRow(section, i == m.menuIndex))
		}
	case screenEntities:
		if len(m.entities) == 0 {
			b.WriteString(dimStyle.Render("  (empty)\n"))
		}
		for i, e := range m.entities {
			b.WriteString(renderRow(e.Name, i == m.entityIndex))
		}
	case screenTracks:
		if len(m.tracks) == 0 {
			b.WriteString(dimStyle.Render("  (no tracks)\n"))
		}
		for i, t := range m.tracks {
			label := fmt.Sprintf("%s  %s", t.Title(), dimStyle.Render(t.DurationString()))
			if m.playlist != nil {
				label = fmt.Sprintf("%2d  %s", i, label)
			}
			b.WriteString(renderRow(label, i == m.trackIndex))
		}
	}

	b.WriteString("\n")
	if m.loading {
		b.WriteString(dimStyle.Render("loading…"))
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpLine()))
	return b.String()
}

func renderRow(label string, selected bool) string {
	if selected {
		return selectedStyle.Render("> "+label) + "\n"
	}
	return "  " + label + "\n"
}

func (m Model) breadcrumb() string {
	switch m.screen {
	case screenEntities:
		return m.section
	case screenTracks:
		if m.playlist != nil {
			return "Playlists / " + m.playlist.Name
		}
		if m.section != "" && len(m.entities) > 0 && m.entityIndex < len(m.entities) {
			return m.section + " / " + m.entities[m.entityIndex].Name
		}
		return "Tracks"
	default:
		return "Library"
	}
}

func (m Model) helpLine() string {
	base := "↑/↓ navigate · enter open · esc back · q quit"
	if m.screen == screenTracks && m.playlist != nil {
		return base + " · K/J move track · d remove · r refresh"
	}
	if m.screen != screenMenu {
		return base + " · r refresh"
	}
	return base
}
