// Package ui is a terminal preview of a composition. Tracks can be browsed,
// recomposed and pushed to the user's account.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"chorus/internal/core"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	TrackListView
	PushingView
	ResultView
)

// ComposeFunc produces a fresh composition.
type ComposeFunc func(ctx context.Context) ([]core.Track, error)

// PushFunc writes tracks to the user's account.
type PushFunc func(ctx context.Context, tracks []core.Track) (*core.Playlist, int, error)

// Model represents the preview state.
type Model struct {
	ctx     context.Context
	name    string
	compose ComposeFunc
	push    PushFunc

	view      ViewState
	width     int
	height    int
	trackList list.Model
	tracks    []core.Track
	pushed    *core.Playlist
	added     int
	err       error
	help      help.Model
	keys      keyMap
}

type keyMap struct {
	push      key.Binding
	recompose key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		push: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "push"),
		),
		recompose: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recompose"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type composedMsg struct {
	tracks []core.Track
	err    error
}

type pushedMsg struct {
	playlist *core.Playlist
	added    int
	err      error
}

// NewModel creates a preview for the playlist called name.
func NewModel(ctx context.Context, name string, compose ComposeFunc, push PushFunc) *Model {
	return &Model{
		ctx:     ctx,
		name:    name,
		compose: compose,
		push:    push,
		view:    LoadingView,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the first composition.
func (m *Model) Init() tea.Cmd {
	return m.runCompose()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.tracks != nil {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case composedMsg:
		m.err = msg.err
		if msg.err != nil {
			m.view = ResultView
			return m, nil
		}
		m.setTracks(msg.tracks)
		m.view = TrackListView
		return m, nil

	case pushedMsg:
		m.pushed = msg.playlist
		m.added = msg.added
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	if m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setTracks(tracks []core.Track) {
	m.tracks = tracks
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = fmt.Sprintf("%s • %d tracks • %s", m.name, len(tracks), formatDuration(totalDuration(tracks)))
	m.trackList.SetSize(m.width-4, m.height-8)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Keys belong to the filter input while the user is typing.
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.push):
		m.view = PushingView
		return m, m.runPush()
	case key.Matches(msg, m.keys.recompose):
		m.view = LoadingView
		return m, m.runCompose()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.recompose):
		m.view = LoadingView
		m.pushed = nil
		m.err = nil
		return m, m.runCompose()
	case key.Matches(msg, m.keys.back):
		if m.tracks != nil {
			m.view = TrackListView
			m.err = nil
		}
	}
	return m, nil
}

func (m *Model) runCompose() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.compose(m.ctx)
		return composedMsg{tracks: tracks, err: err}
	}
}

func (m *Model) runPush() tea.Cmd {
	tracks := m.tracks
	return func() tea.Msg {
		p, added, err := m.push(m.ctx, tracks)
		return pushedMsg{playlist: p, added: added, err: err}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		return styles.title.Render(fmt.Sprintf("Composing %s...", m.name))
	case TrackListView:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.push, m.keys.recompose, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
	case PushingView:
		return styles.title.Render(fmt.Sprintf("Pushing %d tracks to %s...", len(m.tracks), m.name))
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.recompose, m.keys.back, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}

	title := styles.ok.Render(fmt.Sprintf("✓ %s pushed", m.pushed.Name))
	info := fmt.Sprintf("\n%d tracks added", m.added)
	if skipped := len(m.tracks) - m.added; skipped > 0 {
		info += "\n" + styles.warn.Render(fmt.Sprintf("%d duplicates skipped", skipped))
	}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
