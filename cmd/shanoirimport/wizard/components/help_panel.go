package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/help"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("63")).
		Bold(true)

	helpDescStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	helpDetailStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))
)

// CheckLevel grades a live check shown under the field help.
type CheckLevel int

const (
	CheckOK CheckLevel = iota
	CheckWarn
	CheckFail
)

// Check is one line of feedback on the value being typed.
type Check struct {
	Level CheckLevel
	Text  string
}

func (c Check) render() string {
	switch c.Level {
	case CheckFail:
		return ErrorStyle.Render("✗ " + c.Text)
	case CheckWarn:
		return warnStyle.Render("! " + c.Text)
	default:
		return SelectedStyle.Render("✓ " + c.Text)
	}
}

// HelpPanel explains the focused field for the chosen source and shows
// checks on its current value.
type HelpPanel struct {
	field  string
	source string
	checks []Check
	width  int
}

// NewHelpPanel creates a panel 60 columns wide.
func NewHelpPanel() *HelpPanel {
	return &HelpPanel{width: 60}
}

// SetField selects the focused field. Checks of the previous field are
// dropped.
func (h *HelpPanel) SetField(field string) {
	if field != h.field {
		h.checks = nil
	}
	h.field = field
}

// Field returns the field whose help is displayed.
func (h *HelpPanel) Field() string {
	return h.field
}

// SetSource picks the source-specific help variant.
func (h *HelpPanel) SetSource(source string) {
	h.source = source
}

// SetChecks replaces the checks shown for the current field.
func (h *HelpPanel) SetChecks(checks ...Check) {
	h.checks = checks
}

// Checks returns the checks currently shown.
func (h *HelpPanel) Checks() []Check {
	return h.checks
}

func (h *HelpPanel) SetSize(width, height int) {
	h.width = max(width, 30)
}

// View renders the help panel
func (h *HelpPanel) View() string {
	style := PanelStyle.Padding(1, 2).Width(h.width - 4)

	text, ok := help.For(h.field, h.source)
	if !ok {
		return style.Render(MutedStyle.Render("Select a field to see help"))
	}

	lines := []string{
		helpTitleStyle.Render(text.Title),
		"",
		helpDescStyle.Render(text.Description),
	}
	if text.Details != "" {
		lines = append(lines, "", helpDetailStyle.Render(text.Details))
	}
	if len(h.checks) > 0 {
		lines = append(lines, "")
		for _, c := range h.checks {
			lines = append(lines, c.render())
		}
	}
	return style.Render(strings.Join(lines, "\n"))
}
