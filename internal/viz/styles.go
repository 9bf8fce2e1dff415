package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Canvas   lipgloss.Style
	Panel    lipgloss.Style
	Header   lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Active   lipgloss.Style
	Graph    lipgloss.Style
	Help     lipgloss.Style
	Running  lipgloss.Style
	Paused   lipgloss.Style
	Failed   lipgloss.Style
	Selected lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Canvas: lipgloss.NewStyle().Padding(1, 2).Foreground(t.Mesh),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(46),
		Header:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		Value:    lipgloss.NewStyle().Foreground(t.Text),
		Active:   lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Graph:    lipgloss.NewStyle().Foreground(t.Mesh).Padding(1, 0),
		Help:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		Running:  lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		Paused:   lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		Failed:   lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		Selected: lipgloss.NewStyle().Foreground(t.Accent).Background(lipgloss.Color("#1a001a")).Bold(true),
	}
}

// AnimatedSpinner returns frame of animated spinner
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// Bar renders a fixed width gauge for v in [0, 1].
func Bar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}
