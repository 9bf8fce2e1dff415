package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Choice is one entry of the preset menu. Params are the tunables shown on
// the configuration screen, in order.
type Choice struct {
	Name        string
	Description string
	Params      []Param
}

type Param struct {
	Name  string
	Value float64
	Step  float64
}

// Launcher builds the live viewer for a choice with the tuned parameters.
type Launcher func(c Choice) (Model, error)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

type picker struct {
	state, cursor int
	choices       []Choice
	selected      Choice
	paramCursor   int
	editing       bool
	editBuf       string
	launch        Launcher
	err           error
	styles        Styles
	live          Model
}

// NewPicker returns a menu over choices that hands off to the live viewer.
func NewPicker(choices []Choice, launch Launcher) tea.Model {
	return picker{choices: choices, launch: launch, styles: NewStyles(Themes[0])}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.state == stateMenu {
			return m.menuKey(key)
		}
		return m.configKey(key)
	}
	return m, nil
}

func (m picker) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter", " ", "space":
		if len(m.choices) == 0 {
			return m, nil
		}
		m.selected = m.choices[m.cursor]
		m.selected.Params = append([]Param(nil), m.selected.Params...)
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
	}
	return m, nil
}

func (m picker) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	params := m.selected.Params
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%f", &val); err == nil {
				params[m.paramCursor].Value = val
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				m.editBuf += s
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(params)-1 {
			m.paramCursor++
		}
	case "enter", " ", "space":
		if len(params) > 0 {
			m.editing, m.editBuf = true, fmt.Sprintf("%g", params[m.paramCursor].Value)
		}
	case "left", "h":
		if len(params) > 0 {
			params[m.paramCursor].Value -= params[m.paramCursor].Step
		}
	case "right", "l":
		if len(params) > 0 {
			params[m.paramCursor].Value += params[m.paramCursor].Step
		}
	case "s":
		live, err := m.launch(m.selected)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.live, m.state = live, stateSim
		return m, m.live.Init()
	}
	return m, nil
}

func (m picker) View() string {
	switch m.state {
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.live.View()
	}
	return m.viewMenu()
}

func (m picker) viewMenu() string {
	st := m.styles
	var b strings.Builder
	b.WriteString("\n\n    " + st.Header.Render("SOFTSIM") + "\n    " + st.Label.Render("soft body playground") + "\n\n")
	for i, c := range m.choices {
		line := fmt.Sprintf("%-10s %s", c.Name, c.Description)
		if i == m.cursor {
			b.WriteString("    " + st.Active.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("      " + st.Value.Render(line) + "\n")
		}
	}
	b.WriteString("\n    " + st.Help.Render("j/k navigate  enter select  q quit") + "\n")
	return b.String()
}

func (m picker) viewConfig() string {
	st := m.styles
	var b strings.Builder
	b.WriteString("\n\n    " + st.Header.Render(strings.ToUpper(m.selected.Name)) + "\n    " + st.Label.Render(m.selected.Description) + "\n\n")
	for i, p := range m.selected.Params {
		val := fmt.Sprintf("%10.4g", p.Value)
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		line := fmt.Sprintf("%-10s %s", p.Name, val)
		if i == m.paramCursor {
			b.WriteString("    " + st.Active.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("      " + st.Value.Render(line) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + st.Failed.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + st.Help.Render("j/k select  h/l adjust  enter edit  s start  esc back") + "\n")
	return b.String()
}
