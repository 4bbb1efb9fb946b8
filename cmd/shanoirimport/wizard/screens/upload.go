package screens

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/components"
	"github.com/mrsinham/shanoirimport/internal/session"
	"go.uber.org/zap"
)

// Upload sources.
const (
	SourceArchive   = "archive"
	SourceImportJob = "importjob"
)

// LoadedMsg carries the session built from the chosen source.
type LoadedMsg struct {
	Data *session.ImportData
}

// ErrorMsg is sent when a background task fails
type ErrorMsg struct {
	Error error
}

// UploadScreen picks the Bruker data to work on and loads it.
type UploadScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	spinner   spinner.Model

	ctx    context.Context
	logger *zap.Logger
	source string
	path   string

	loading   bool
	data      *session.ImportData
	done      bool
	cancelled bool
	width     int
	height    int
}

// NewUploadScreen creates the upload form. A non-empty path skips the form
// and loads it right away.
func NewUploadScreen(ctx context.Context, source, path string, logger *zap.Logger) *UploadScreen {
	if source == "" {
		source = SourceArchive
	}
	s := &UploadScreen{
		helpPanel: components.NewHelpPanel(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		ctx:       ctx,
		logger:    logger,
		source:    source,
		path:      path,
		loading:   path != "",
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("source").
				Title("Source").
				Options(
					huh.NewOption("Bruker archive (zip)", SourceArchive),
					huh.NewOption("Import job (json)", SourceImportJob),
				).
				Value(&s.source),

			huh.NewInput().
				Key("path").
				Title("Path").
				Placeholder("e.g., bruker_sample.zip").
				Value(&s.path).
				Validate(validateFile),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return s
}

func validateFile(p string) error {
	p = strings.TrimSpace(p)
	if p == "" {
		return fmt.Errorf("path is required")
	}
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("cannot open %s", p)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}

// pathChecks describes what path points to for source.
func pathChecks(source, path string) []components.Check {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return []components.Check{{Level: components.CheckFail, Text: "file not found"}}
	case info.IsDir():
		return []components.Check{{Level: components.CheckFail, Text: "this is a directory"}}
	}

	checks := []components.Check{{Level: components.CheckOK, Text: fmt.Sprintf("%d KiB", (info.Size()+1023)/1024)}}
	want := ".zip"
	if source == SourceImportJob {
		want = ".json"
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != want {
		checks = append(checks, components.Check{
			Level: components.CheckWarn,
			Text:  fmt.Sprintf("expected a %s file for this source", want),
		})
	}
	return checks
}

// Init implements tea.Model
func (s *UploadScreen) Init() tea.Cmd {
	if s.loading {
		return tea.Batch(s.spinner.Tick, s.load())
	}
	return s.form.Init()
}

// Update implements tea.Model
func (s *UploadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
	case LoadedMsg:
		s.loading = false
		s.data = msg.Data
		s.done = true
		return s, nil
	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	if s.loading {
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if focused := s.form.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}
	s.helpPanel.SetSource(s.source)
	if s.helpPanel.Field() == "path" {
		s.helpPanel.SetChecks(pathChecks(s.source, s.path)...)
	}

	if s.form.State == huh.StateCompleted {
		s.loading = true
		return s, tea.Batch(s.spinner.Tick, s.load())
	}

	return s, cmd
}

// load reads the source in the background.
func (s *UploadScreen) load() tea.Cmd {
	ctx, source, path, logger := s.ctx, s.source, strings.TrimSpace(s.path), s.logger
	return func() tea.Msg {
		data, err := LoadSource(ctx, source, path, logger)
		if err != nil {
			return ErrorMsg{Error: err}
		}
		return LoadedMsg{Data: data}
	}
}

// LoadSource builds an import session from an archive or an import job.
func LoadSource(ctx context.Context, source, path string, logger *zap.Logger) (*session.ImportData, error) {
	switch source {
	case SourceArchive:
		return session.LoadArchiveFile(ctx, path, logger)
	case SourceImportJob:
		return session.LoadImportJob(path)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

// View implements tea.Model
func (s *UploadScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render("1. Upload")

	if s.loading {
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			fmt.Sprintf("%s Reading %s...", s.spinner.View(), s.path),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		components.SubtitleStyle.Render("Choose the Bruker data to import"),
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		components.HintStyle.Render("Tab: Next field | Enter: Submit | Esc: Cancel"),
	)
}

// Done returns true once the session is loaded
func (s *UploadScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *UploadScreen) Cancelled() bool {
	return s.cancelled
}

// Data returns the loaded session
func (s *UploadScreen) Data() *session.ImportData {
	return s.data
}
