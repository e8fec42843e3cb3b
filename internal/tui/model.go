package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type screen int

const (
	screenMenu screen = iota
	screenEntities
	screenTracks
)

// Top-level browse sections.
var sections = []string{"Albums", "Artists", "Genres", "Playlists", "Tracks"}

const requestTimeout = 10 * time.Second

// keyMap defines all key bindings.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Remove   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K", "shift+up"),
		key.WithHelp("K", "move track up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J", "shift+down"),
		key.WithHelp("J", "move track down"),
	),
	Remove: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "remove from playlist"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type entitiesMsg struct {
	section string
	items   []Entity
}

type tracksMsg struct {
	items  []Track
	cursor int
}

type errMsg struct{ err error }

// Model is the Bubble Tea model for the browser.
type Model struct {
	client *Client

	screen  screen
	section string

	menuIndex   int
	entities    []Entity
	entityIndex int
	tracks      []Track
	trackIndex  int

	// playlist is set while browsing a playlist's tracks; reorder and
	// remove bindings only work then.
	playlist *Entity

	status  string
	loading bool
	width   int
	height  int
}

func New(client *Client) Model {
	return Model{client: client, screen: screenMenu}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case entitiesMsg:
		m.loading = false
		m.section = msg.section
		m.entities = msg.items
		m.entityIndex = 0
		m.screen = screenEntities
		return m, nil

	case tracksMsg:
		m.loading = false
		m.tracks = msg.items
		m.trackIndex = msg.cursor
		if m.trackIndex >= len(m.tracks) {
			m.trackIndex = len(m.tracks) - 1
		}
		if m.trackIndex < 0 {
			m.trackIndex = 0
		}
		m.screen = screenTracks
		return m, nil

	case errMsg:
		m.loading = false
		m.status = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	m.status = ""

	switch m.screen {
	case screenMenu:
		switch {
		case key.Matches(msg, keys.Up):
			if m.menuIndex > 0 {
				m.menuIndex--
			}
		case key.Matches(msg, keys.Down):
			if m.menuIndex < len(sections)-1 {
				m.menuIndex++
			}
		case key.Matches(msg, keys.Enter):
			return m.openSection(sections[m.menuIndex])
		}

	case screenEntities:
		switch {
		case key.Matches(msg, keys.Up):
			if m.entityIndex > 0 {
				m.entityIndex--
			}
		case key.Matches(msg, keys.Down):
			if m.entityIndex < len(m.entities)-1 {
				m.entityIndex++
			}
		case key.Matches(msg, keys.Enter):
			if len(m.entities) > 0 {
				return m.openEntity(m.entities[m.entityIndex])
			}
		case key.Matches(msg, keys.Refresh):
			return m.openSection(m.section)
		case key.Matches(msg, keys.Back):
			m.screen = screenMenu
		}

	case screenTracks:
		switch {
		case key.Matches(msg, keys.Up):
			if m.trackIndex > 0 {
				m.trackIndex--
			}
		case key.Matches(msg, keys.Down):
			if m.trackIndex < len(m.tracks)-1 {
				m.trackIndex++
			}
		case key.Matches(msg, keys.MoveUp):
			return m.moveTrack(-1)
		case key.Matches(msg, keys.MoveDown):
			return m.moveTrack(1)
		case key.Matches(msg, keys.Remove):
			return m.removeTrack()
		case key.Matches(msg, keys.Refresh):
			return m, m.reloadTracks(m.trackIndex)
		case key.Matches(msg, keys.Back):
			m.playlist = nil
			if m.section == "" {
				m.screen = screenMenu
			} else {
				m.screen = screenEntities
			}
		}
	}
	return m, nil
}

func (m Model) openSection(section string) (tea.Model, tea.Cmd) {
	m.loading = true
	if section == "Tracks" {
		m.section = ""
		m.playlist = nil
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			tracks, err := m.client.Tracks(ctx)
			if err != nil {
				return errMsg{err}
			}
			return tracksMsg{items: tracks}
		}
	}

	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var items []Entity
		var err error
		switch section {
		case "Albums":
			items, err = client.Albums(ctx)
		case "Artists":
			items, err = client.Artists(ctx)
		case "Genres":
			items, err = client.Genres(ctx)
		case "Playlists":
			items, err = client.Playlists(ctx)
		}
		if err != nil {
			return errMsg{err}
		}
		return entitiesMsg{section: section, items: items}
	}
}

func (m Model) openEntity(entity Entity) (tea.Model, tea.Cmd) {
	m.loading = true
	if m.section == "Playlists" {
		m.playlist = &entity
	} else {
		m.playlist = nil
	}
	return m, m.reloadTracks(0)
}

// reloadTracks refetches the current track list, restoring the cursor.
func (m Model) reloadTracks(cursor int) tea.Cmd {
	client := m.client
	section := m.section
	playlist := m.playlist
	var id string
	if len(m.entities) > 0 && m.entityIndex < len(m.entities) {
		id = m.entities[m.entityIndex].ID
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var tracks []Track
		var err error
		switch {
		case playlist != nil:
			tracks, err = client.PlaylistTracks(ctx, playlist.ID)
		case section == "Albums":
			tracks, err = client.AlbumTracks(ctx, id)
		case section == "Artists":
			tracks, err = client.ArtistTracks(ctx, id)
		case section == "Genres":
			tracks, err = client.GenreTracks(ctx, id)
		default:
			tracks, err = client.Tracks(ctx)
		}
		if err != nil {
			return errMsg{err}
		}
		return tracksMsg{items: tracks, cursor: cursor}
	}
}

// moveTrack shifts the selected playlist entry one slot up or down.
func (m Model) moveTrack(dir int) (tea.Model, tea.Cmd) {
	if m.playlist == nil || len(m.tracks) < 2 {
		return m, nil
	}
	pos := m.trackIndex
	var insertBefore int
	switch dir {
	case -1:
		if pos == 0 {
			return m, nil
		}
		insertBefore = pos - 1
	case 1:
		if pos >= len(m.tracks)-1 {
			return m, nil
		}
		insertBefore = pos + 2
	}

	m.loading = true
	client := m.client
	playlistID := m.playlist.ID
	reload := m.reloadTracks(pos + dir)
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := client.MovePlaylistTrack(ctx, playlistID, pos, insertBefore); err != nil {
			return errMsg{err}
		}
		return reload()
	}
}

// removeTrack deletes the selected entry from the playlist.
func (m Model) removeTrack() (tea.Model, tea.Cmd) {
	if m.playlist == nil || len(m.tracks) == 0 {
		return m, nil
	}
	pos := m.trackIndex
	trackID := m.tracks[pos].ID

	m.loading = true
	client := m.client
	playlistID := m.playlist.ID
	reload := m.reloadTracks(pos)
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := client.RemovePlaylistTrack(ctx, playlistID, trackID, pos); err != nil {
			return errMsg{err}
		}
		return reload()
	}
}
