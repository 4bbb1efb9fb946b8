package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func treeWithSeries(selected ...bool) []*dicom.PatientDicom {
	study := &dicom.StudyDicom{StudyInstanceUID: "1.2"}
	for i, sel := range selected {
		study.Series = append(study.Series, &dicom.SerieDicom{
			SeriesInstanceUID: string(rune('a' + i)),
			Selected:          sel,
		})
	}
	return []*dicom.PatientDicom{{PatientID: "R001", Studies: []*dicom.StudyDicom{study}}}
}

func TestImportData_Empty(t *testing.T) {
	d := New()
	assert.Nil(t, d.ArchiveUploaded())
	assert.Nil(t, d.InMemoryExtracted())
	assert.Nil(t, d.Patients())
}

func TestImportData_SetArchiveUploaded(t *testing.T) {
	d := New()
	patients := treeWithSeries(false)
	d.SetArchiveUploaded(&ArchiveUpload{Patients: patients, WorkFolder: "/tmp/import_1"}, nil)

	assert.Equal(t, "/tmp/import_1", d.ArchiveUploaded().WorkFolder)
	assert.Equal(t, patients, d.Patients())
}

func TestImportData_SubscribeLatestWins(t *testing.T) {
	d := New()
	events, unsubscribe := d.Subscribe()
	defer unsubscribe()

	d.SetPatients(treeWithSeries(false))
	d.SetPatients(treeWithSeries(true, true))

	ev := <-events
	assert.Equal(t, 2, ev.Selected)

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
}

func TestImportData_Unsubscribe(t *testing.T) {
	d := New()
	events, unsubscribe := d.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-events
	assert.False(t, open)

	// no panic on a closed channel
	d.SetPatients(treeWithSeries(true))
}

func TestLoadArchiveFile(t *testing.T) {
	var buf bytes.Buffer
	_, err := dicom.WriteSampleArchive(&buf, dicom.FixtureOptions{SeriesPerStudy: 2, ImagesPerSeries: 2})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bruker_rat.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	d, err := LoadArchiveFile(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NotNil(t, d.ArchiveUploaded())
	assert.Equal(t, "bruker_rat", d.ArchiveUploaded().WorkFolder)
	assert.NotNil(t, d.InMemoryExtracted())
	assert.Equal(t, 2, dicom.CountSeries(d.Patients()))
}

func TestLoadArchiveFile_Missing(t *testing.T) {
	_, err := LoadArchiveFile(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), nil)
	assert.Error(t, err)
}

func TestImportJobRoundTrip(t *testing.T) {
	d := New()
	d.SetArchiveUploaded(&ArchiveUpload{Patients: treeWithSeries(false, false), WorkFolder: "/work/import_42"}, nil)
	d.Patients()[0].Studies[0].Series[1].Selected = true

	path := filepath.Join(t.TempDir(), "job.json")
	require.NoError(t, SaveImportJob(d, path))

	loaded, err := LoadImportJob(path)
	require.NoError(t, err)
	assert.Equal(t, "/work/import_42", loaded.ArchiveUploaded().WorkFolder)
	assert.Nil(t, loaded.InMemoryExtracted())
	selected := dicom.SelectedSeries(loaded.Patients())
	require.Len(t, selected, 1)
	assert.Equal(t, "b", selected[0].SeriesInstanceUID)
}

func TestLoadImportJob_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadImportJob(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadImportJob(bad)
	assert.Error(t, err)

	noFolder := filepath.Join(dir, "nofolder.json")
	require.NoError(t, os.WriteFile(noFolder, []byte(`{"patients":[]}`), 0o644))
	_, err = LoadImportJob(noFolder)
	assert.ErrorContains(t, err, "workFolder")
}

func TestSaveImportJob_NoUpload(t *testing.T) {
	assert.Error(t, SaveImportJob(New(), filepath.Join(t.TempDir(), "job.json")))
}
