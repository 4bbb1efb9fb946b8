package wizard

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/components"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/screens"
	"github.com/mrsinham/shanoirimport/internal/config"
	"github.com/mrsinham/shanoirimport/internal/selectseries"
	"github.com/mrsinham/shanoirimport/internal/session"
	"go.uber.org/zap"
)

// Phase represents the current phase/screen of the wizard.
type Phase int

const (
	PhaseUpload Phase = iota
	PhaseSeries
	PhaseContext
	PhaseError
)

// RouteSeries brings the context step back to the series selection.
const RouteSeries = "importsBruker/series"

// UploadStepName is the breadcrumb name of the first step.
const UploadStepName = "1. Upload"

var stepNames = []string{UploadStepName, selectseries.StepName, screens.ContextStepName}

// Options configures a wizard run.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	Downloader selectseries.ImageDownloader
	// Source and Path preload the upload step, see screens.SourceArchive.
	Source string
	Path   string
	// Output is the proposed import job file.
	Output string
}

type navigation struct {
	route   string
	replace bool
}

// Wizard is the main orchestrator for the wizard interface. It is also the
// navigator of the series step.
type Wizard struct {
	ctx    context.Context
	opts   Options
	logger *zap.Logger

	phase    Phase
	stepName string
	pending  *navigation

	data *session.ImportData
	step *selectseries.Step

	uploadScreen  *screens.UploadScreen
	seriesScreen  *screens.SeriesScreen
	contextScreen *screens.ContextScreen
	errorScreen   *screens.ErrorScreen

	width  int
	height int

	cancelled bool
	finished  bool
	saved     string
	err       error
}

// New creates a wizard on the upload step.
func New(ctx context.Context, opts Options) *Wizard {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	w := &Wizard{
		ctx:      ctx,
		opts:     opts,
		logger:   opts.Logger,
		phase:    PhaseUpload,
		stepName: UploadStepName,
	}
	w.uploadScreen = screens.NewUploadScreen(ctx, opts.Source, opts.Path, w.logger)
	return w
}

// NameStep implements selectseries.Navigator.
func (w *Wizard) NameStep(name string) {
	w.stepName = name
}

// Navigate implements selectseries.Navigator. The move happens once the
// current update returns.
func (w *Wizard) Navigate(route string, replace bool) {
	w.pending = &navigation{route: route, replace: replace}
}

// applyNavigation performs the pending move, if any.
func (w *Wizard) applyNavigation() tea.Cmd {
	nav := w.pending
	if nav == nil {
		return nil
	}
	w.pending = nil
	w.logger.Debug("navigate", zap.String("route", nav.route), zap.Bool("replace", nav.replace))

	switch nav.route {
	case selectseries.RouteUpload:
		return w.toUpload()
	case RouteSeries:
		return w.toSeries()
	case selectseries.RouteContext:
		return w.toContext()
	default:
		w.logger.Warn("unknown route", zap.String("route", nav.route))
		return nil
	}
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	return w.uploadScreen.Init()
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
	case screens.ErrorMsg:
		return w, w.showError(msg.Error)
	}

	switch w.phase {
	case PhaseUpload:
		return w.updateUpload(msg)
	case PhaseSeries:
		return w.updateSeries(msg)
	case PhaseContext:
		return w.updateContext(msg)
	case PhaseError:
		return w.updateError(msg)
	}

	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	var body string
	switch w.phase {
	case PhaseUpload:
		body = w.uploadScreen.View()
	case PhaseSeries:
		body = w.seriesScreen.View()
	case PhaseContext:
		body = w.contextScreen.View()
	case PhaseError:
		return w.errorScreen.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		components.Breadcrumb(stepNames, w.stepName),
		"",
		body,
	)
}

// updateUpload handles updates in the upload phase.
func (w *Wizard) updateUpload(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.uploadScreen.Update(msg)
	if us, ok := model.(*screens.UploadScreen); ok {
		w.uploadScreen = us
	}

	if w.uploadScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.uploadScreen.Done() {
		return w, tea.Batch(cmd, w.openSeries(w.uploadScreen.Data()))
	}

	return w, cmd
}

// openSeries opens the series step over data. Without an upload the step
// sends the wizard back to the upload phase.
func (w *Wizard) openSeries(data *session.ImportData) tea.Cmd {
	w.closeStep()
	w.data = data

	step := selectseries.New(w.ctx, selectseries.Options{
		Session:    data,
		Navigator:  w,
		Downloader: w.opts.Downloader,
		DicomURL:   w.opts.Config.DicomURL(),
		Workers:    w.opts.Config.Workers,
		Logger:     w.logger,
	})
	if !step.Ready() {
		step.Close()
		return w.applyNavigation()
	}

	w.step = step
	w.seriesScreen = screens.NewSeriesScreen(w.ctx, step, w.opts.Config.DetailColumns)
	w.phase = PhaseSeries
	w.resize(w.seriesScreen)
	return w.seriesScreen.Init()
}

// updateSeries handles updates in the series selection phase.
func (w *Wizard) updateSeries(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.seriesScreen.Update(msg)
	if ss, ok := model.(*screens.SeriesScreen); ok {
		w.seriesScreen = ss
	}

	if w.seriesScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.pending != nil {
		return w, tea.Batch(cmd, w.applyNavigation())
	}

	return w, cmd
}

func (w *Wizard) toUpload() tea.Cmd {
	w.closeStep()
	w.phase = PhaseUpload
	w.stepName = UploadStepName
	w.uploadScreen = screens.NewUploadScreen(w.ctx, "", "", w.logger)
	w.resize(w.uploadScreen)
	return w.uploadScreen.Init()
}

func (w *Wizard) toSeries() tea.Cmd {
	if w.step == nil {
		return w.toUpload()
	}
	w.phase = PhaseSeries
	w.stepName = selectseries.StepName
	return nil
}

func (w *Wizard) toContext() tea.Cmd {
	w.phase = PhaseContext
	w.stepName = screens.ContextStepName
	w.contextScreen = screens.NewContextScreen(w.data, w.opts.Output)
	w.resize(w.contextScreen)
	return w.contextScreen.Init()
}

// updateContext handles updates in the context phase.
func (w *Wizard) updateContext(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.contextScreen.Update(msg)
	if cs, ok := model.(*screens.ContextScreen); ok {
		w.contextScreen = cs
	}

	switch {
	case w.contextScreen.Cancelled():
		w.cancelled = true
		return w, tea.Quit
	case w.contextScreen.Err() != nil:
		return w, w.showError(w.contextScreen.Err())
	case w.contextScreen.Saved() != "":
		w.finished = true
		w.saved = w.contextScreen.Saved()
		w.logger.Info("import job saved", zap.String("path", w.saved))
		return w, tea.Quit
	case w.contextScreen.Back():
		w.Navigate(RouteSeries, false)
		return w, w.applyNavigation()
	}

	return w, cmd
}

func (w *Wizard) showError(err error) tea.Cmd {
	w.logger.Error("wizard error", zap.Error(err))
	w.closeStep()
	w.err = err
	w.phase = PhaseError
	w.errorScreen = screens.NewErrorScreen(err)
	return nil
}

// updateError handles updates in the error phase.
func (w *Wizard) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.errorScreen.Update(msg)
	if es, ok := model.(*screens.ErrorScreen); ok {
		w.errorScreen = es
	}

	if w.errorScreen.Retry() {
		w.err = nil
		w.Navigate(selectseries.RouteUpload, true)
		return w, w.applyNavigation()
	}

	return w, cmd
}

func (w *Wizard) resize(model tea.Model) {
	if w.width > 0 {
		model.Update(tea.WindowSizeMsg{Width: w.width, Height: w.height})
	}
}

// closeStep cancels the previews of the current series step.
func (w *Wizard) closeStep() {
	if w.step != nil {
		w.step.Close()
		w.step = nil
	}
}

// Close releases the wizard resources.
func (w *Wizard) Close() {
	w.closeStep()
}

// Phase returns the current phase.
func (w *Wizard) Phase() Phase {
	return w.phase
}

// StepName returns the breadcrumb of the current step.
func (w *Wizard) StepName() string {
	return w.stepName
}

// Run starts the wizard and returns the saved import job path, empty when
// the user quit before saving.
func Run(ctx context.Context, opts Options) (string, error) {
	w := New(ctx, opts)
	defer w.Close()

	p := tea.NewProgram(w, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running wizard: %w", err)
	}

	if fw, ok := finalModel.(*Wizard); ok {
		if fw.cancelled {
			return "", nil
		}
		if fw.err != nil {
			return "", fw.err
		}
		return fw.saved, nil
	}

	return "", nil
}
