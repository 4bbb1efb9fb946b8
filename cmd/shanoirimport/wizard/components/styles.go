package components

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("63")).
		MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		MarginBottom(1)

	CursorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("63")).
		Bold(true)

	SelectedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	MutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	ErrorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	HintStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)
)

// Breadcrumb renders the step names with the current one highlighted.
func Breadcrumb(steps []string, current string) string {
	parts := make([]string, len(steps))
	for i, step := range steps {
		if step == current {
			parts[i] = CursorStyle.Render(step)
		} else {
			parts[i] = MutedStyle.Render(step)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joinWith(parts, MutedStyle.Render("  >  "))...)
}

func joinWith(parts []string, sep string) []string {
	out := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, p)
	}
	return out
}
