// Package tui is the reference bubbletea client SPEC_FULL §7 names: a
// thin, optional consumer of agent.Loop's event channel, demonstrating the
// core's event contract without being part of it (no internal/agent,
// internal/session, etc. package imports this one).
//
// Adapted from the teacher's internal/interfaces/tui (a raw-ANSI renderer
// that its own doc comment flagged as "bubbletea integration deferred")
// into an actual tea.Model, following the Model/spinner/lipgloss-style
// structure of the other example repo's chat UI (logsum-cosmos/ui/chat.go,
// statusbar.go): a bubbles/spinner while a turn is in flight, lipgloss
// styles in place of raw ANSI escape codes, and one line per rendered
// AgentEvent.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ngoclaw/agentcore/internal/agent"
)

var (
	styleUser     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	styleAssist   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	styleTool     = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleToolOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleToolFail = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleErr      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// eventMsg wraps one agent.Event as a tea.Msg; doneMsg signals the event
// channel closed (the turn ended).
type eventMsg agent.Event
type doneMsg struct{}

// Model is the bubbletea program state: the turn's running transcript plus
// a spinner shown while waiting on the next event.
type Model struct {
	events  <-chan agent.Event
	lines   []string
	pending strings.Builder // accumulates Token events into one assistant line
	spinner spinner.Model
	running bool
	quit    bool
}

// New seeds a Model that will render userText as the opening line and then
// drain events as they arrive.
func New(userText string, events <-chan agent.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	return Model{
		events:  events,
		lines:   []string{styleUser.Render("you > ") + userText},
		spinner: sp,
		running: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listen(m.events))
}

// listen reads the next event off the channel, translating a closed
// channel into doneMsg so Update can stop the program.
func listen(events <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quit = true
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.applyEvent(agent.Event(msg))
		return m, listen(m.events)

	case doneMsg:
		m.running = false
		m.flushPending()
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m *Model) flushPending() {
	if m.pending.Len() == 0 {
		return
	}
	m.lines = append(m.lines, styleAssist.Render("agent > ")+m.pending.String())
	m.pending.Reset()
}

func (m *Model) applyEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventToken:
		m.pending.WriteString(ev.Content)

	case agent.EventToolStart:
		m.flushPending()
		m.lines = append(m.lines, styleTool.Render(fmt.Sprintf("tool> %s(%s)", ev.ToolName, ev.ToolArgs)))

	case agent.EventToolComplete:
		m.lines = append(m.lines, styleToolOK.Render("  ok  ")+truncate(ev.ToolResult, 200))

	case agent.EventToolError:
		m.lines = append(m.lines, styleToolFail.Render("  err ")+ev.Message)

	case agent.EventApprovalRequired:
		m.lines = append(m.lines, styleTool.Render(fmt.Sprintf("approve %s(%s)? (see CLI prompt)", ev.ToolName, ev.ToolArgs)))

	case agent.EventNeedClarification:
		m.flushPending()
		m.lines = append(m.lines, styleAssist.Render("agent asks> ")+ev.Question)

	case agent.EventTodoListUpdated:
		m.lines = append(m.lines, styleDim.Render(ev.TodoRendered))

	case agent.EventError:
		m.flushPending()
		m.lines = append(m.lines, styleErr.Render("error: ")+ev.Message)

	case agent.EventComplete:
		m.flushPending()
		if ev.Usage != nil {
			m.lines = append(m.lines, styleDim.Render(fmt.Sprintf("(%d tokens)", ev.Usage.TotalTokens)))
		}
	}
}

func (m Model) View() string {
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if m.pending.Len() > 0 {
		b.WriteString(styleAssist.Render("agent > ") + m.pending.String())
	}
	if m.running {
		b.WriteString("\n" + m.spinner.View() + styleDim.Render(" working..."))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Run drives one turn's events through a bubbletea program until the
// channel closes or the user quits, blocking the caller. userText is shown
// as the opening transcript line.
func Run(userText string, events <-chan agent.Event) error {
	_, err := tea.NewProgram(New(userText, events)).Run()
	return err
}
