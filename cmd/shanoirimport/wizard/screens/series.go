package screens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/components"
	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/mrsinham/shanoirimport/internal/selectseries"
)

// PreviewMsg carries the images of the series shown in the viewer.
type PreviewMsg struct {
	Params *selectseries.ViewerParams
}

// PreviewErrorMsg is sent when the images of a series could not be loaded.
type PreviewErrorMsg struct {
	SeriesInstanceUID string
	Err               error
}

const (
	previewWidth  = 48
	previewHeight = 24
)

type seriesKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Details   key.Binding
	PrevImage key.Binding
	NextImage key.Binding
	Next      key.Binding
	Quit      key.Binding
}

func (k seriesKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Details, k.PrevImage, k.NextImage, k.Next, k.Quit}
}

func (k seriesKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var seriesKeys = seriesKeyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
	Details:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	PrevImage: key.NewBinding(key.WithKeys("left", "["), key.WithHelp("←", "prev image")),
	NextImage: key.NewBinding(key.WithKeys("right", "]"), key.WithHelp("→", "next image")),
	Next:      key.NewBinding(key.WithKeys("n", "tab"), key.WithHelp("n", "next step")),
	Quit:      key.NewBinding(key.WithKeys("ctrl+c", "esc", "q"), key.WithHelp("q", "quit")),
}

// SeriesScreen shows the uploaded tree, lets the user pick series and
// previews the series in the detail panel.
type SeriesScreen struct {
	step    *selectseries.Step
	ctx     context.Context
	columns []string
	rows    []Row
	cursor  int

	keys    seriesKeyMap
	help    help.Model
	spinner spinner.Model

	loadingUID string
	params     *selectseries.ViewerParams
	frame      int
	frames     map[int]string
	previewErr error
	notice     string

	cancelled bool
	width     int
	height    int
}

// NewSeriesScreen creates the screen over a ready step. columns are extra
// DICOM fields listed in the series panel.
func NewSeriesScreen(ctx context.Context, step *selectseries.Step, columns []string) *SeriesScreen {
	return &SeriesScreen{
		step:    step,
		ctx:     ctx,
		columns: columns,
		rows:    FlattenTree(step.Patients()),
		keys:    seriesKeys,
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		frames:  make(map[int]string),
	}
}

// Init implements tea.Model
func (s *SeriesScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *SeriesScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.help.Width = msg.Width
	case PreviewMsg:
		if msg.Params == nil || msg.Params.SeriesInstanceUID != s.loadingUID {
			return s, nil
		}
		s.loadingUID = ""
		s.params = msg.Params
		s.frame = 0
		s.frames = make(map[int]string)
		s.renderFrame()
	case PreviewErrorMsg:
		if errors.Is(msg.Err, context.Canceled) || msg.SeriesInstanceUID != s.loadingUID {
			return s, nil
		}
		s.loadingUID = ""
		s.previewErr = msg.Err
	case spinner.TickMsg:
		if s.loadingUID == "" {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *SeriesScreen) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s.notice = ""
	switch {
	case key.Matches(msg, s.keys.Quit):
		s.cancelled = true
		return s, tea.Quit
	case key.Matches(msg, s.keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, s.keys.Down):
		if s.cursor < len(s.rows)-1 {
			s.cursor++
		}
	case key.Matches(msg, s.keys.Toggle):
		s.toggle()
	case key.Matches(msg, s.keys.Details):
		return s, s.details()
	case key.Matches(msg, s.keys.PrevImage):
		s.moveFrame(-1)
	case key.Matches(msg, s.keys.NextImage):
		s.moveFrame(1)
	case key.Matches(msg, s.keys.Next):
		if !s.step.Valid() {
			s.notice = "Select at least one series"
			return s, nil
		}
		s.step.Next()
	}
	return s, nil
}

func (s *SeriesScreen) current() (Row, bool) {
	if s.cursor < 0 || s.cursor >= len(s.rows) {
		return Row{}, false
	}
	return s.rows[s.cursor], true
}

// toggle flips the checkbox under the cursor. A partial node becomes fully
// selected.
func (s *SeriesScreen) toggle() {
	row, ok := s.current()
	if !ok {
		return
	}
	selected := row.state() != checked
	switch row.Kind {
	case NodePatient:
		s.step.SetPatientSelected(row.Patient, selected)
	case NodeStudy:
		s.step.SetStudySelected(row.Study, selected)
	case NodeSerie:
		s.step.SetSerieSelected(row.Serie, selected)
	}
}

// details opens or closes the panel of the node under the cursor and starts
// loading the preview of a newly opened series.
func (s *SeriesScreen) details() tea.Cmd {
	row, ok := s.current()
	if !ok {
		return nil
	}
	switch row.Kind {
	case NodePatient:
		s.step.ShowPatientDetails(row.Patient)
	case NodeStudy:
		s.toggle()
	case NodeSerie:
		s.step.ShowSerieDetails(row.Serie)
		detail := s.step.Detail()
		if detail.Kind != selectseries.DetailSerie {
			s.loadingUID = ""
			return nil
		}
		if s.params != nil && s.params.SeriesInstanceUID == detail.Serie.SeriesInstanceUID {
			return nil
		}
		s.loadingUID = detail.Serie.SeriesInstanceUID
		s.previewErr = nil
		return tea.Batch(s.spinner.Tick, s.previewCmd(detail.Serie))
	}
	return nil
}

func (s *SeriesScreen) previewCmd(serie *dicom.SerieDicom) tea.Cmd {
	ctx, step := s.ctx, s.step
	return func() tea.Msg {
		params, err := step.InitViewer(ctx, serie)
		if err != nil {
			return PreviewErrorMsg{SeriesInstanceUID: serie.SeriesInstanceUID, Err: err}
		}
		return PreviewMsg{Params: params}
	}
}

func (s *SeriesScreen) images() [][]byte {
	if s.params == nil || len(s.params.BinaryImages) == 0 {
		return nil
	}
	return s.params.BinaryImages[0]
}

func (s *SeriesScreen) moveFrame(delta int) {
	n := len(s.images())
	if n == 0 {
		return
	}
	s.frame = (s.frame + delta + n) % n
	s.renderFrame()
}

// renderFrame decodes the current frame once and caches it.
func (s *SeriesScreen) renderFrame() {
	images := s.images()
	if s.frame >= len(images) {
		return
	}
	if _, ok := s.frames[s.frame]; ok {
		return
	}
	text, err := dicom.RenderPreview(images[s.frame], previewWidth, previewHeight)
	if err != nil {
		text = components.ErrorStyle.Render(fmt.Sprintf("preview unavailable: %v", err))
	}
	s.frames[s.frame] = text
}

// View implements tea.Model
func (s *SeriesScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render(selectseries.StepName)
	subtitle := components.SubtitleStyle.Render(fmt.Sprintf("Work folder %s, %d series selected",
		s.step.WorkFolder(), len(dicom.SelectedSeries(s.step.Patients()))))

	body := s.viewTree()
	if panel := s.viewDetail(); panel != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", panel)
	}

	footer := s.help.View(s.keys)
	if s.notice != "" {
		footer = components.ErrorStyle.Render(s.notice) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, body, "", footer)
}

func (s *SeriesScreen) viewTree() string {
	var sb strings.Builder
	for i, row := range s.rows {
		line := fmt.Sprintf("%s%s %s", row.indent(), row.state(), row.label())
		switch {
		case i == s.cursor:
			sb.WriteString(components.CursorStyle.Render("> " + line))
		case row.state() == checked:
			sb.WriteString(components.SelectedStyle.Render("  " + line))
		default:
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *SeriesScreen) viewDetail() string {
	detail := s.step.Detail()
	switch detail.Kind {
	case selectseries.DetailPatient:
		return components.PanelStyle.Render(patientDetail(detail.Patient))
	case selectseries.DetailSerie:
		return components.PanelStyle.Render(s.serieDetail(detail.Serie) + "\n\n" + s.viewPreview(detail.Serie))
	default:
		return ""
	}
}

func patientDetail(p *dicom.PatientDicom) string {
	series := dicom.CountSeries([]*dicom.PatientDicom{p})
	selected := len(dicom.SelectedSeries([]*dicom.PatientDicom{p}))
	return detailLines([][2]string{
		{"Patient ID", p.PatientID},
		{"Name", p.PatientName},
		{"Birth date", formatDate(p.PatientBirthDate)},
		{"Sex", p.PatientSex},
		{"Studies", fmt.Sprint(len(p.Studies))},
		{"Series", fmt.Sprintf("%d (%d selected)", series, selected)},
	})
}

func (s *SeriesScreen) serieDetail(serie *dicom.SerieDicom) string {
	lines := [][2]string{
		{"Series UID", serie.SeriesInstanceUID},
		{"Number", serie.SeriesNumber},
		{"Description", serie.SeriesDescription},
		{"Date", formatDate(serie.SeriesDate)},
		{"Modality", serie.Modality},
		{"Protocol", serie.ProtocolName},
		{"Images", fmt.Sprint(len(serie.Images))},
	}
	if eq := serie.Equipment; eq != nil {
		lines = append(lines, [2]string{"Equipment", strings.TrimSpace(
			fmt.Sprintf("%s %s %s", eq.Manufacturer, eq.ManufacturerModelName, eq.DeviceSerialNumber))})
	}
	for _, column := range s.columns {
		field, err := dicom.LookupField(column)
		if err != nil {
			continue
		}
		lines = append(lines, [2]string{field.Name, serie.Fields[field.Name]})
	}
	return detailLines(lines)
}

func detailLines(lines [][2]string) string {
	width := 0
	for _, l := range lines {
		width = max(width, len(l[0]))
	}
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		value := l[1]
		if value == "" {
			value = "-"
		}
		sb.WriteString(components.MutedStyle.Render(fmt.Sprintf("%-*s", width, l[0])))
		sb.WriteString("  ")
		sb.WriteString(value)
	}
	return sb.String()
}

func (s *SeriesScreen) viewPreview(serie *dicom.SerieDicom) string {
	switch {
	case s.loadingUID == serie.SeriesInstanceUID:
		return fmt.Sprintf("%s Loading %d images...", s.spinner.View(), len(serie.Images))
	case s.previewErr != nil:
		return components.ErrorStyle.Render(fmt.Sprintf("Preview failed: %v", s.previewErr))
	case s.params == nil || s.params.SeriesInstanceUID != serie.SeriesInstanceUID:
		return ""
	}

	images := s.images()
	if len(images) == 0 {
		return components.MutedStyle.Render("No images")
	}
	return s.frames[s.frame] + "\n" + components.MutedStyle.Render(fmt.Sprintf("image %d/%d", s.frame+1, len(images)))
}

// Cancelled returns true if the user cancelled
func (s *SeriesScreen) Cancelled() bool {
	return s.cancelled
}

// Cursor returns the index of the highlighted row.
func (s *SeriesScreen) Cursor() int {
	return s.cursor
}

// Rows returns the flattened tree.
func (s *SeriesScreen) Rows() []Row {
	return s.rows
}

// Frame returns the index and rendering of the image shown in the viewer.
func (s *SeriesScreen) Frame() (int, string) {
	return s.frame, s.frames[s.frame]
}
