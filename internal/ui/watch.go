package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiprov/internal/provision"
)

// SnapshotMsg carries a snapshot pushed by the device.
type SnapshotMsg provision.Snapshot

// FeedClosedMsg reports that the status feed ended. Err is nil on a clean
// close.
type FeedClosedMsg struct {
	Err error
}

var quitKey = key.NewBinding(
	key.WithKeys("q", "esc", "ctrl+c"),
	key.WithHelp("q", "quit"),
)

// WatchModel follows a device's status feed until the user quits or, with
// UntilSettled, until an attempt reaches station_connected or
// station_failed.
type WatchModel struct {
	Target       string
	UntilSettled bool

	spinner  spinner.Model
	snapshot *provision.Snapshot
	seen     []provision.State
	err      error
	done     bool
	width    int
}

// NewWatchModel creates a model for the device at target.
func NewWatchModel(target string, untilSettled bool) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)
	return WatchModel{
		Target:       target,
		UntilSettled: untilSettled,
		spinner:      s,
		width:        GetTerminalWidth(),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			m.done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		s := provision.Snapshot(msg)
		if m.snapshot == nil || m.snapshot.State != s.State {
			m.seen = append(m.seen, s.State)
		}
		m.snapshot = &s
		if m.UntilSettled && m.settled() {
			m.done = true
			return m, tea.Quit
		}

	case FeedClosedMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// settled is true once a station attempt has been observed and has ended.
func (m WatchModel) settled() bool {
	if m.snapshot == nil {
		return false
	}
	switch m.snapshot.State {
	case provision.StationConnected, provision.StationFailed:
	default:
		return false
	}
	for _, s := range m.seen {
		if s == provision.ConnectingStation {
			return true
		}
	}
	// Joined the feed after the attempt finished
	return len(m.seen) == 1
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderCommandStyle.Render("Watching "+m.Target) + "\n\n")

	if m.snapshot == nil {
		b.WriteString("  " + m.spinner.View() + " Waiting for status...\n")
	} else {
		b.WriteString(RenderStatus(*m.snapshot, m.width) + "\n")
		if len(m.seen) > 1 {
			b.WriteString(HintStyle.Render("  "+m.history()) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n" + ErrorMessageStyle.Render("  Feed closed: "+m.err.Error()) + "\n")
	} else if !m.done {
		b.WriteString("\n" + HintStyle.Render("  "+m.spinner.View()+" live · "+quitKey.Help().Key+" "+quitKey.Help().Desc) + "\n")
	}
	return b.String()
}

func (m WatchModel) history() string {
	parts := make([]string, len(m.seen))
	for i, s := range m.seen {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}

// Snapshot returns the last snapshot received, if any.
func (m WatchModel) Snapshot() (provision.Snapshot, bool) {
	if m.snapshot == nil {
		return provision.Snapshot{}, false
	}
	return *m.snapshot, true
}

// Err returns the error that closed the feed, if any.
func (m WatchModel) Err() error {
	return m.err
}

func clampWidth(w int) int {
	if w < MinTerminalWidth {
		return MinTerminalWidth
	}
	if w > MaxContentWidth {
		return MaxContentWidth
	}
	return w
}
