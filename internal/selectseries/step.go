// Package selectseries implements the "2. Series" step of the Bruker import:
// browse the uploaded tree, preview a series and pick what to import.
package selectseries

import (
	"context"
	"errors"
	"sync"

	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/mrsinham/shanoirimport/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Wizard routes and the breadcrumb name of this step.
const (
	RouteUpload  = "importsBruker"
	RouteContext = "importsBruker/context"
	StepName     = "2. Series"
)

// ErrNotReady is returned when the step was opened before any upload.
var ErrNotReady = errors.New("no archive uploaded")

// Navigator moves the wizard between steps.
type Navigator interface {
	NameStep(name string)
	Navigate(route string, replace bool)
}

// ImageDownloader fetches an image from the server work folder.
type ImageDownloader interface {
	DownloadImage(ctx context.Context, dicomURL, path string) ([]byte, error)
}

// Options wires a Step to its collaborators.
type Options struct {
	Session    *session.ImportData
	Navigator  Navigator
	Downloader ImageDownloader
	// DicomURL is the get_dicom endpoint used when nothing is held in memory.
	DicomURL string
	// Workers bounds concurrent image fetches. Defaults to 4.
	Workers int
	Logger  *zap.Logger
}

// DetailKind tells which detail panel is open.
type DetailKind int

const (
	DetailNone DetailKind = iota
	DetailPatient
	DetailSerie
)

// DetailView is the single open detail panel, if any.
type DetailView struct {
	Kind    DetailKind
	Patient *dicom.PatientDicom
	Serie   *dicom.SerieDicom
}

// ViewerParams is what the image viewer consumes. BinaryImages[0] holds the
// image buffers of one series in tree order.
type ViewerParams struct {
	SeriesInstanceUID string
	BinaryImages      [][][]byte
}

// Step is the series selection step. Its methods are meant to be called from
// a single UI goroutine, except InitViewer which may run in the background.
type Step struct {
	opts       Options
	logger     *zap.Logger
	ready      bool
	patients   []*dicom.PatientDicom
	workFolder string
	dataFiles  dicom.Archive
	detail     DetailView

	lifetime context.Context
	stop     context.CancelFunc

	mu         sync.Mutex
	generation uint64
	cancelLast context.CancelFunc
	params     *ViewerParams
}

// New opens the step. Without an uploaded archive it redirects to the upload
// step and returns a Step that is not ready.
func New(ctx context.Context, opts Options) *Step {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	lifetime, stop := context.WithCancel(ctx)
	s := &Step{opts: opts, logger: opts.Logger, lifetime: lifetime, stop: stop}

	upload := opts.Session.ArchiveUploaded()
	if upload == nil {
		s.logger.Info("no archive uploaded, back to upload step")
		opts.Navigator.Navigate(RouteUpload, true)
		return s
	}

	opts.Navigator.NameStep(StepName)
	s.ready = true
	s.dataFiles = opts.Session.InMemoryExtracted()
	s.patients = upload.Patients
	s.workFolder = upload.WorkFolder
	return s
}

// Ready reports whether the step was initialized from an upload.
func (s *Step) Ready() bool { return s.ready }

// Patients returns the tree being edited.
func (s *Step) Patients() []*dicom.PatientDicom { return s.patients }

// WorkFolder returns the server folder of the upload.
func (s *Step) WorkFolder() string { return s.workFolder }

// Detail returns the open detail panel.
func (s *Step) Detail() DetailView { return s.detail }

// ShowSerieDetails opens the panel of serie, or closes it when it is already
// open. Any patient panel is closed.
func (s *Step) ShowSerieDetails(serie *dicom.SerieDicom) {
	if serie != nil && s.detail.Kind == DetailSerie &&
		serie.SeriesInstanceUID == s.detail.Serie.SeriesInstanceUID {
		s.detail = DetailView{}
		return
	}
	if serie == nil {
		s.detail = DetailView{}
		return
	}
	s.detail = DetailView{Kind: DetailSerie, Serie: serie}
}

// ShowPatientDetails opens the panel of patient, or closes it when it is
// already open. Any series panel is closed.
func (s *Step) ShowPatientDetails(patient *dicom.PatientDicom) {
	if patient != nil && s.detail.Kind == DetailPatient &&
		patient.PatientID == s.detail.Patient.PatientID {
		s.detail = DetailView{}
		return
	}
	if patient == nil {
		s.detail = DetailView{}
		return
	}
	s.detail = DetailView{Kind: DetailPatient, Patient: patient}
}

// OnPatientUpdate pushes the tree back into the session.
func (s *Step) OnPatientUpdate() {
	s.opts.Session.SetPatients(s.patients)
}

// SetSerieSelected flags one series.
func (s *Step) SetSerieSelected(serie *dicom.SerieDicom, selected bool) {
	if serie != nil {
		serie.Selected = selected
	}
	s.OnPatientUpdate()
}

// SetStudySelected flags every series of study.
func (s *Step) SetStudySelected(study *dicom.StudyDicom, selected bool) {
	selectAll([]*dicom.PatientDicom{{Studies: []*dicom.StudyDicom{study}}}, selected)
	s.OnPatientUpdate()
}

// SetPatientSelected flags every series of patient.
func (s *Step) SetPatientSelected(patient *dicom.PatientDicom, selected bool) {
	selectAll([]*dicom.PatientDicom{patient}, selected)
	s.OnPatientUpdate()
}

// selectAll skips nil nodes, which import jobs may carry.
func selectAll(patients []*dicom.PatientDicom, selected bool) {
	dicom.WalkSeries(patients, func(_ *dicom.PatientDicom, _ *dicom.StudyDicom, serie *dicom.SerieDicom) bool {
		serie.Selected = selected
		return true
	})
}

// Valid reports whether at least one series is selected.
func (s *Step) Valid() bool {
	if len(s.patients) == 0 {
		return false
	}
	return dicom.AnySelected(s.patients)
}

// Next moves on to the context step. Callers gate it on Valid.
func (s *Step) Next() {
	s.opts.Navigator.Navigate(RouteContext, false)
}

// Params returns the last assembled viewer parameters, or nil.
func (s *Step) Params() *ViewerParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// InitViewer loads every image of serie and publishes them as the viewer
// parameters. Images come from the in-memory archive when there is one and
// from the server otherwise. The fetches run concurrently; the result keeps
// the series order. A failed fetch fails the whole call and leaves the
// parameters untouched. Starting a new call cancels the previous one, as
// does Close.
func (s *Step) InitViewer(ctx context.Context, serie *dicom.SerieDicom) (*ViewerParams, error) {
	if serie == nil {
		return nil, nil
	}
	if !s.ready {
		return nil, ErrNotReady
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(s.lifetime, cancel)
	defer stopAfter()

	s.mu.Lock()
	if s.cancelLast != nil {
		s.cancelLast()
	}
	s.generation++
	generation := s.generation
	s.cancelLast = cancel
	s.mu.Unlock()

	images := make([][]byte, len(serie.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, image := range serie.Images {
		g.Go(func() error {
			data, err := s.fetch(gctx, image)
			if err != nil {
				return err
			}
			images[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("preview aborted",
			zap.String("series", serie.SeriesInstanceUID),
			zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &ViewerParams{
		SeriesInstanceUID: serie.SeriesInstanceUID,
		BinaryImages:      [][][]byte{images},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return nil, context.Canceled
	}
	s.params = params
	s.logger.Debug("preview ready",
		zap.String("series", serie.SeriesInstanceUID),
		zap.Int("images", len(images)))
	return params, nil
}

func (s *Step) fetch(ctx context.Context, image *dicom.ImageDicom) ([]byte, error) {
	if s.dataFiles != nil {
		return s.dataFiles.Open(ctx, image.Path)
	}
	return s.opts.Downloader.DownloadImage(ctx, s.opts.DicomURL, s.workFolder+"/"+image.Path)
}

// Close cancels every viewer request in flight. The step must not be used
// afterwards.
func (s *Step) Close() {
	s.stop()
}
