package screens

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/components"
	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/mrsinham/shanoirimport/internal/session"
)

// ContextStepName is the breadcrumb name of the last step.
const ContextStepName = "3. Context"

// ContextScreen summarizes the selection and saves the import job.
type ContextScreen struct {
	data      *session.ImportData
	form      *huh.Form
	helpPanel *components.HelpPanel

	output  string
	confirm bool

	saved     string
	back      bool
	err       error
	cancelled bool
	width     int
	height    int
}

// NewContextScreen creates the summary screen. output is the proposed
// import job file.
func NewContextScreen(data *session.ImportData, output string) *ContextScreen {
	if output == "" {
		output = DefaultOutput(data)
	}
	s := &ContextScreen{
		data:      data,
		helpPanel: components.NewHelpPanel(),
		output:    output,
		confirm:   true,
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("output").
				Title("Import job file").
				Value(&s.output).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return fmt.Errorf("output file is required")
					}
					return nil
				}),

			huh.NewConfirm().
				Key("confirm").
				Title("Save the import job?").
				Affirmative("Save").
				Negative("Back").
				Value(&s.confirm),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return s
}

// DefaultOutput names the import job after the work folder.
func DefaultOutput(data *session.ImportData) string {
	folder := "import"
	if upload := data.ArchiveUploaded(); upload != nil && upload.WorkFolder != "" {
		folder = strings.TrimRight(upload.WorkFolder, "/")
		if i := strings.LastIndex(folder, "/"); i >= 0 {
			folder = folder[i+1:]
		}
	}
	return folder + "_import.json"
}

// outputChecks warns before an import job is written over or into nothing.
func outputChecks(output string) []components.Check {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	if info, err := os.Stat(filepath.Dir(output)); err != nil || !info.IsDir() {
		return []components.Check{{Level: components.CheckFail, Text: "directory does not exist"}}
	}
	if info, err := os.Stat(output); err == nil {
		if info.IsDir() {
			return []components.Check{{Level: components.CheckFail, Text: "this is a directory"}}
		}
		return []components.Check{{Level: components.CheckWarn, Text: "file exists and will be overwritten"}}
	}
	return []components.Check{{Level: components.CheckOK, Text: "new file"}}
}

// Init implements tea.Model
func (s *ContextScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *ContextScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			s.cancelled = true
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.helpPanel.SetSize(msg.Width/2, msg.Height/2)
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if focused := s.form.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}
	if s.helpPanel.Field() == "output" {
		s.helpPanel.SetChecks(outputChecks(s.output)...)
	}

	if s.form.State == huh.StateCompleted {
		if !s.confirm {
			s.back = true
			return s, nil
		}
		s.Save()
	}

	return s, cmd
}

// Save writes the import job with the current selection.
func (s *ContextScreen) Save() {
	path := strings.TrimSpace(s.output)
	if err := session.SaveImportJob(s.data, path); err != nil {
		s.err = err
		return
	}
	s.saved = path
}

// View implements tea.Model
func (s *ContextScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render(ContextStepName)
	selected := dicom.SelectedSeries(s.data.Patients())
	subtitle := components.SubtitleStyle.Render(fmt.Sprintf("%d of %d series selected",
		len(selected), dicom.CountSeries(s.data.Patients())))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		s.summary(),
		"",
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		components.HintStyle.Render("Tab: Next field | Enter: Submit | Esc: Cancel"),
	)
}

func (s *ContextScreen) summary() string {
	var sb strings.Builder
	dicom.WalkSeries(s.data.Patients(), func(p *dicom.PatientDicom, st *dicom.StudyDicom, se *dicom.SerieDicom) bool {
		if !se.Selected {
			return true
		}
		fmt.Fprintf(&sb, "  %s  %s  #%s %s (%d images)\n",
			p.PatientID, formatDate(st.StudyDate), se.SeriesNumber, se.SeriesDescription, len(se.Images))
		return true
	})
	return components.SelectedStyle.Render(sb.String())
}

// Saved returns the written import job path, empty until saved
func (s *ContextScreen) Saved() string {
	return s.saved
}

// Back returns true if the user chose to change the selection
func (s *ContextScreen) Back() bool {
	return s.back
}

// Err returns the save error, if any
func (s *ContextScreen) Err() error {
	return s.err
}

// Cancelled returns true if the user cancelled
func (s *ContextScreen) Cancelled() bool {
	return s.cancelled
}
