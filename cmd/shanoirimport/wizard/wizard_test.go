package wizard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/screens"
	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/mrsinham/shanoirimport/internal/selectseries"
	"github.com/mrsinham/shanoirimport/internal/session"
	"go.uber.org/zap/zaptest"
)

func sampleSession(t *testing.T) *session.ImportData {
	t.Helper()
	var buf bytes.Buffer
	if _, err := dicom.WriteSampleArchive(&buf, dicom.FixtureOptions{SeriesPerStudy: 2, ImagesPerSeries: 1, Seed: 9}); err != nil {
		t.Fatalf("WriteSampleArchive failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "rat.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := session.LoadArchiveFile(context.Background(), path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("LoadArchiveFile failed: %v", err)
	}
	return data
}

func newWizard(t *testing.T) *Wizard {
	t.Helper()
	w := New(context.Background(), Options{Logger: zaptest.NewLogger(t)})
	t.Cleanup(w.Close)
	return w
}

func TestNew_StartsOnUpload(t *testing.T) {
	w := newWizard(t)

	if w.Phase() != PhaseUpload {
		t.Errorf("Expected PhaseUpload, got %d", w.Phase())
	}
	if w.StepName() != UploadStepName {
		t.Errorf("Expected step %q, got %q", UploadStepName, w.StepName())
	}
	if !strings.Contains(w.View(), "Choose the Bruker data") {
		t.Errorf("Expected upload form in view")
	}
}

func TestUploadDone_OpensSeries(t *testing.T) {
	w := newWizard(t)

	w.Update(screens.LoadedMsg{Data: sampleSession(t)})

	if w.Phase() != PhaseSeries {
		t.Fatalf("Expected PhaseSeries, got %d", w.Phase())
	}
	if w.StepName() != selectseries.StepName {
		t.Errorf("Expected step %q, got %q", selectseries.StepName, w.StepName())
	}
	if w.step == nil || !w.step.Ready() {
		t.Errorf("Expected a ready series step")
	}
}

func TestOpenSeries_WithoutUploadGoesBack(t *testing.T) {
	w := newWizard(t)

	w.openSeries(session.New())

	if w.Phase() != PhaseUpload {
		t.Errorf("Expected PhaseUpload, got %d", w.Phase())
	}
	if w.step != nil {
		t.Errorf("Expected no series step")
	}
}

func TestSeriesToContextAndBack(t *testing.T) {
	w := newWizard(t)
	w.openSeries(sampleSession(t))

	// select the whole patient, then move on
	w.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	w.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	if w.Phase() != PhaseContext {
		t.Fatalf("Expected PhaseContext, got %d", w.Phase())
	}
	if w.StepName() != screens.ContextStepName {
		t.Errorf("Expected step %q, got %q", screens.ContextStepName, w.StepName())
	}
	if !strings.Contains(w.View(), "2 of 2 series selected") {
		t.Errorf("Expected selection summary in view:\n%s", w.View())
	}

	w.Navigate(RouteSeries, false)
	w.applyNavigation()
	if w.Phase() != PhaseSeries {
		t.Errorf("Expected PhaseSeries, got %d", w.Phase())
	}
}

func TestErrorThenRetry(t *testing.T) {
	w := newWizard(t)
	w.openSeries(sampleSession(t))

	w.Update(screens.ErrorMsg{Error: errors.New("archive is corrupt")})
	if w.Phase() != PhaseError {
		t.Fatalf("Expected PhaseError, got %d", w.Phase())
	}
	if !strings.Contains(w.View(), "archive is corrupt") {
		t.Errorf("Expected error in view")
	}
	if w.step != nil {
		t.Errorf("Expected series step to be closed")
	}

	w.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if w.Phase() != PhaseUpload {
		t.Errorf("Expected PhaseUpload after retry, got %d", w.Phase())
	}
	if w.err != nil {
		t.Errorf("Expected error to be cleared, got %v", w.err)
	}
}

func TestUnknownRouteIsIgnored(t *testing.T) {
	w := newWizard(t)

	w.Navigate("importsBruker/unknown", false)
	if cmd := w.applyNavigation(); cmd != nil {
		t.Errorf("Expected no command for an unknown route")
	}
	if w.Phase() != PhaseUpload {
		t.Errorf("Expected to stay on upload, got %d", w.Phase())
	}
}
