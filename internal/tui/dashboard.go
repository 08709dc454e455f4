// Package tui implements an optional terminal dashboard that watches a
// run through the dispatcher's narrow Observer interface: a scrolling
// feed of accepted events plus the currently active hat, rendered with
// bubbletea/lipgloss.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andywolf/ralph/internal/event"
	"github.com/andywolf/ralph/internal/hat"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	hatStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	topicStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const maxFeedLines = 200

// eventMsg and iterationMsg cross the Observer -> bubbletea boundary;
// tea.Program.Send is the documented way to feed external events into
// a running program.
type eventMsg event.Event

type iterationMsg struct {
	n   int
	hat hat.Id
}

// model is the bubbletea model backing the dashboard.
type model struct {
	feed      []string
	activeHat hat.Id
	iteration int
	width     int
	height    int
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case eventMsg:
		e := event.Event(msg)
		line := topicStyle.Render(e.Topic.String())
		if e.Topic == "build.blocked" {
			line = blockedStyle.Render(e.Topic.String())
		}
		m.feed = append(m.feed, fmt.Sprintf("%s %s", line, truncate(e.Payload, 80)))
		if len(m.feed) > maxFeedLines {
			m.feed = m.feed[len(m.feed)-maxFeedLines:]
		}
	case iterationMsg:
		m.iteration = msg.n
		m.activeHat = msg.hat
	}
	return m, nil
}

func (m model) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("ralph  iteration %d  hat=%s", m.iteration, hatStyle.Render(string(m.activeHat)))))
	sb.WriteString("\n\n")
	for _, line := range m.feed {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Dashboard adapts a running bubbletea program to
// dispatcher.Observer: OnEvent and OnIteration forward into the
// program's message loop rather than touching the model directly,
// since bubbletea programs are not safe to mutate from another
// goroutine.
type Dashboard struct {
	program *tea.Program
}

// New starts the dashboard program in the background and returns a
// Dashboard ready to be passed as a dispatcher.Observer. Run stops the
// program and waits for it to exit.
func New() *Dashboard {
	p := tea.NewProgram(model{})
	return &Dashboard{program: p}
}

// Run blocks until the dashboard program exits (e.g. the user presses
// q or the dispatcher's run finishes and Stop is called).
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

// Stop requests the dashboard program quit.
func (d *Dashboard) Stop() {
	d.program.Quit()
}

// OnEvent implements dispatcher.Observer.
func (d *Dashboard) OnEvent(e event.Event) {
	d.program.Send(eventMsg(e))
}

// OnIteration implements dispatcher.Observer.
func (d *Dashboard) OnIteration(n int, active hat.Id) {
	d.program.Send(iterationMsg{n: n, hat: active})
}
