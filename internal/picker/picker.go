// Package picker is the terminal front end for choosing a capture mode and
// its options before taking a screenshot.
package picker

import (
	"fmt"
	"strings"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/controller"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MaxDelay bounds the delay spinner
const MaxDelay = 99

type row int

const (
	rowScreen row = iota
	rowWindow
	rowSelection
	rowPointer
	rowShadow
	rowDelay
	rowCount
)

var modeRows = map[row]capture.Mode{
	rowScreen:    capture.ModeScreen,
	rowWindow:    capture.ModeWindow,
	rowSelection: capture.ModeSelection,
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Decrease key.Binding
	Increase key.Binding
	Capture  key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Decrease, k.Increase, k.Capture, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "down")),
	Toggle:   key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select")),
	Decrease: key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/-", "less delay")),
	Increase: key.NewBinding(key.WithKeys("right", "l", "+"), key.WithHelp("→/+", "more delay")),
	Capture:  key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "take screenshot")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	headingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginTop(1)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the bubbletea model of the picker. Every change goes straight
// to the controller, so it is persisted like any other settings change.
type Model struct {
	ctrl      *controller.Controller
	help      help.Model
	cursor    row
	err       error
	confirmed bool
}

// New creates a picker over ctrl with the cursor on the active mode.
func New(ctrl *controller.Controller) Model {
	m := Model{ctrl: ctrl, help: help.New()}
	for r, mode := range modeRows {
		if mode == ctrl.State().Mode {
			m.cursor = r
		}
	}
	return m
}

// Confirmed reports whether the user asked for a screenshot rather than
// quitting.
func (m Model) Confirmed() bool {
	return m.confirmed
}

func (m Model) Init() tea.Cmd {
	return nil
}

// selectable reports whether r can take the cursor in the current mode.
func (m Model) selectable(r row) bool {
	sens := m.ctrl.State().Sensitivity
	switch r {
	case rowPointer:
		return sens.Pointer
	case rowShadow:
		return sens.Shadow
	case rowDelay:
		return sens.Delay
	default:
		return r >= 0 && r < rowCount
	}
}

func (m *Model) move(step int) {
	for next := m.cursor + row(step); next >= 0 && next < rowCount; next += row(step) {
		if m.selectable(next) {
			m.cursor = next
			return
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		m.err = nil
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Capture):
			m.confirmed = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			m.move(-1)
		case key.Matches(msg, keys.Down):
			m.move(1)
		case key.Matches(msg, keys.Toggle):
			m.err = m.toggle()
		case key.Matches(msg, keys.Decrease):
			m.err = m.adjustDelay(-1)
		case key.Matches(msg, keys.Increase):
			m.err = m.adjustDelay(1)
		}
	}
	return m, nil
}

func (m *Model) toggle() error {
	st := m.ctrl.State()
	if mode, ok := modeRows[m.cursor]; ok {
		return m.ctrl.SetMode(mode)
	}

	opts := st.Options
	switch m.cursor {
	case rowPointer:
		opts.IncludePointer = !opts.IncludePointer
	case rowShadow:
		opts.WindowShadow = !opts.WindowShadow
	default:
		return nil
	}
	return m.ctrl.SetOptions(opts)
}

func (m *Model) adjustDelay(step int) error {
	if m.cursor != rowDelay || !m.selectable(rowDelay) {
		return nil
	}
	opts := m.ctrl.State().Options
	opts.DelaySeconds += step
	if opts.DelaySeconds < 0 || opts.DelaySeconds > MaxDelay {
		return nil
	}
	return m.ctrl.SetOptions(opts)
}

func (m Model) View() string {
	st := m.ctrl.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Take Screenshot"))
	b.WriteString("\n")

	for r := rowScreen; r < rowCount; r++ {
		if r == rowPointer {
			b.WriteString(headingStyle.Render("Options"))
			b.WriteString("\n")
		}

		cursor := "  "
		if r == m.cursor {
			cursor = cursorStyle.Render("› ")
		}
		line := m.label(r, st)
		if !m.selectable(r) {
			line = disabledStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.help.View(keys) + "\n")
	return b.String()
}

func (m Model) label(r row, st controller.State) string {
	switch r {
	case rowScreen:
		return radio(st.Mode == capture.ModeScreen) + " Grab the whole screen"
	case rowWindow:
		return radio(st.Mode == capture.ModeWindow) + " Grab the current window"
	case rowSelection:
		return radio(st.Mode == capture.ModeSelection) + " Select area to grab"
	case rowPointer:
		return check(st.Options.IncludePointer) + " Include pointer"
	case rowShadow:
		return check(st.Options.WindowShadow) + " Include window shadow"
	case rowDelay:
		return fmt.Sprintf("    Delay: ‹ %d › seconds", st.Options.DelaySeconds)
	}
	return ""
}

func radio(on bool) string {
	if on {
		return "(•)"
	}
	return "( )"
}

func check(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
