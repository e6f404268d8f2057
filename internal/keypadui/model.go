// Package keypadui renders a pinpad.Machine as an interactive terminal keypad.
package keypadui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stashly/stashly/internal/pinpad"
)

type outcomeMsg struct {
	outcome pinpad.Outcome
}

// Model is the Bubble Tea model for one PIN screen.
type Model struct {
	title   string
	machine *pinpad.Machine
	layout  [][]pinpad.Key
	row     int
	col     int

	snap     pinpad.Snapshot
	result   pinpad.Outcome
	done     bool
	quitting bool
	// quitPending holds a quit request made while a submission is in
	// flight until its outcome is known.
	quitPending bool
}

// New builds a keypad bound to machine. The cursor starts on the 1 key.
func New(title string, machine *pinpad.Machine) Model {
	return Model{
		title:   title,
		machine: machine,
		layout:  pinpad.Layout(),
		snap:    machine.Snapshot(),
	}
}

// Result returns the successful outcome, if the screen ended with one.
func (m Model) Result() (pinpad.Outcome, bool) {
	return m.result, m.done
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case outcomeMsg:
		m.snap = m.machine.Snapshot()
		if msg.outcome.State == pinpad.Success {
			m.result = msg.outcome
			m.done = true
			return m, tea.Quit
		}
		if m.quitPending {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		switch s := msg.String(); s {
		case "ctrl+c", "esc", "q":
			if m.snap.State == pinpad.Submitting {
				m.quitPending = true
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			m.move(-1, 0)
		case "down", "j":
			m.move(1, 0)
		case "left", "h":
			m.move(0, -1)
		case "right", "l":
			m.move(0, 1)
		case "enter", " ":
			return m.press(m.layout[m.row][m.col])
		case "backspace", "delete":
			return m.press(pinpad.Backspace)
		default:
			if key, err := pinpad.ParseKey(s); err == nil && key.Kind == pinpad.KeyDigit {
				return m.press(key)
			}
		}
	}
	return m, nil
}

func (m *Model) move(dr, dc int) {
	rows := len(m.layout)
	cols := len(m.layout[0])
	m.row = (m.row + dr + rows) % rows
	m.col = (m.col + dc + cols) % cols
}

func (m Model) press(key pinpad.Key) (tea.Model, tea.Cmd) {
	snap, attempt := m.machine.Press(context.Background(), key)
	m.snap = snap
	if attempt == nil {
		return m, nil
	}
	return m, waitFor(attempt)
}

func waitFor(attempt *pinpad.Attempt) tea.Cmd {
	return func() tea.Msg {
		out, _ := attempt.Wait(context.Background())
		return outcomeMsg{outcome: out}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.title)
	b.WriteString("\n\n  ")
	for i := 0; i < m.snap.Length; i++ {
		if i < m.snap.Filled {
			b.WriteString("● ")
		} else {
			b.WriteString("○ ")
		}
	}
	b.WriteString("\n\n")

	for r, row := range m.layout {
		b.WriteString("  ")
		for c, key := range row {
			label := key.String()
			switch key.Kind {
			case pinpad.KeyBlank:
				label = " "
			case pinpad.KeyBackspace:
				label = "⌫"
			}
			if r == m.row && c == m.col {
				b.WriteString("[" + label + "]")
			} else {
				b.WriteString(" " + label + " ")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.snap.State {
	case pinpad.Submitting:
		if m.quitPending {
			b.WriteString("  Submitting... will exit once the backend answers\n")
		} else {
			b.WriteString("  Submitting...\n")
		}
	case pinpad.Success:
		b.WriteString("  " + m.snap.Message + "\n")
	default:
		if m.snap.Message != "" {
			b.WriteString("  " + m.snap.Message + "\n")
		}
	}
	b.WriteString("\n  digits, backspace, arrows+enter, q to quit\n")
	return b.String()
}
