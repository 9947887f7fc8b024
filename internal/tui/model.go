// Package tui implements the interactive calculator REPL.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pengelbrecht/tally/internal/steps"
)

// maxHistory bounds the number of entries kept on screen.
const maxHistory = 200

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

type entry struct {
	input  string
	output string
	failed bool
}

// Model is the bubbletea model for the REPL.
type Model struct {
	session *Session
	input   textinput.Model
	history []entry
	width   int
	height  int
}

// New creates a REPL model. A nil registry uses the default phrase table.
func New(registry *steps.Registry) Model {
	ti := textinput.New()
	ti.Placeholder = "I add 5   or   +5, -3, =10, ?12, reset"
	ti.Prompt = "› "
	ti.CharLimit = 256
	ti.Focus()

	return Model{
		session: NewSession(registry),
		input:   ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()
	if strings.TrimSpace(line) == "" {
		return m, nil
	}

	out, err := m.session.Eval(line)
	if errors.Is(err, errQuit) {
		return m, tea.Quit
	}
	e := entry{input: line, output: out}
	if err != nil {
		e.output, e.failed = err.Error(), true
	}
	m.history = append(m.history, e)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	return m, nil
}

// Value returns the accumulator shown in the header.
func (m Model) Value() int {
	return m.session.Value()
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("tally") + "  " + valueStyle.Render(fmt.Sprintf("%d", m.session.Value()))
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	visible := m.history
	// Header (3 lines), blank, input, blank, help: keep the rest for history.
	if m.height > 0 {
		if room := m.height - 8; room >= 0 && len(visible) > room {
			visible = visible[len(visible)-room:]
		}
	}
	for _, e := range visible {
		b.WriteString(dimStyle.Render("› "+e.input) + "  ")
		if e.failed {
			b.WriteString(errStyle.Render("✗ " + e.output))
		} else {
			b.WriteString(okStyle.Render(e.output))
		}
		b.WriteString("\n")
	}
	if len(visible) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("enter: apply · reset: new calculator · esc: quit"))
	b.WriteString("\n")
	return b.String()
}

// Run starts the REPL on the terminal.
func Run(registry *steps.Registry) error {
	p := tea.NewProgram(New(registry))
	_, err := p.Run()
	return err
}
