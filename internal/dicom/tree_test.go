package dicom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap/zaptest"
)

// memArchive is an Archive over an in-memory map.
type memArchive map[string][]byte

func (m memArchive) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m memArchive) Open(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := m[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotInArchive)
	}
	return data, nil
}

func sampleArchive(t *testing.T, opts FixtureOptions) *ZipArchive {
	t.Helper()
	var buf bytes.Buffer
	_, err := WriteSampleArchive(&buf, opts)
	require.NoError(t, err)
	archive, err := NewZipArchive(buf.Bytes())
	require.NoError(t, err)
	return archive
}

func TestBuildPatients(t *testing.T) {
	archive := sampleArchive(t, FixtureOptions{Subjects: 2, SeriesPerStudy: 2, ImagesPerSeries: 3, Seed: 7})

	patients, err := BuildPatients(context.Background(), archive, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Less(t, patients[0].PatientID, patients[1].PatientID)

	for _, p := range patients {
		assert.Contains(t, p.PatientName, "^")
		require.Len(t, p.Studies, 1)
		series := p.Studies[0].Series
		require.Len(t, series, 2)
		assert.Equal(t, "1", series[0].SeriesNumber)
		assert.Equal(t, "2", series[1].SeriesNumber)

		s := series[0]
		assert.Equal(t, "MR", s.Modality)
		assert.Equal(t, "T2_TurboRARE", s.ProtocolName)
		assert.Equal(t, "T2_TurboRARE", s.Fields["ProtocolName"])
		assert.Equal(t, 3, s.NumberOfSeriesRelatedInstances)
		assert.False(t, s.Selected)
		require.NotNil(t, s.Equipment)
		assert.Equal(t, "Bruker BioSpin MRI GmbH", s.Equipment.Manufacturer)

		require.Len(t, s.Images, 3)
		for i, img := range s.Images {
			assert.Equal(t, i+1, img.InstanceNumber)
			assert.True(t, strings.HasSuffix(img.Path, fmt.Sprintf("IM%06d", i+1)), img.Path)
			assert.NotEmpty(t, img.SOPInstanceUID)
		}
	}
}

func TestBuildPatients_Deterministic(t *testing.T) {
	opts := FixtureOptions{Subjects: 3, SeriesPerStudy: 1, ImagesPerSeries: 1, Seed: 99}

	first, err := BuildPatients(context.Background(), sampleArchive(t, opts), nil)
	require.NoError(t, err)
	second, err := BuildPatients(context.Background(), sampleArchive(t, opts), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildPatients_SkipsNonDICOM(t *testing.T) {
	zipped := sampleArchive(t, FixtureOptions{ImagesPerSeries: 2, SeriesPerStudy: 1})
	mem := memArchive{"notes/README.txt": []byte("acquired on the 7T")}
	for _, p := range zipped.Paths() {
		data, err := zipped.Open(context.Background(), p)
		require.NoError(t, err)
		mem[p] = data
	}

	patients, err := BuildPatients(context.Background(), mem, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, 1, CountSeries(patients))
	assert.Len(t, patients[0].Studies[0].Series[0].Images, 2)
}

// minimalImage encodes a header-only DICOM file. An empty studyUID leaves
// StudyInstanceUID out.
func minimalImage(t *testing.T, patientID, studyUID, seriesUID, sopUID string) []byte {
	t.Helper()
	elements := []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sopUID}),
		mustNewElement(tag.TransferSyntaxUID, []string{explicitVRLittle}),
		mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{sopUID}),
		mustNewElement(tag.PatientName, []string{patientID + "^Rat"}),
		mustNewElement(tag.PatientID, []string{patientID}),
	}
	if studyUID != "" {
		elements = append(elements, mustNewElement(tag.StudyInstanceUID, []string{studyUID}))
	}
	elements = append(elements, mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}))

	var buf bytes.Buffer
	require.NoError(t, dicom.Write(&buf, dicom.Dataset{Elements: elements}))
	return buf.Bytes()
}

func TestBuildPatients_StudiesStayWithTheirPatient(t *testing.T) {
	tests := []struct {
		name     string
		studyUID string
	}{
		{name: "no study UID", studyUID: ""},
		{name: "shared study UID", studyUID: "1.2.826.0.1.3680043.9.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memArchive{
				"RAT01/IM1": minimalImage(t, "RAT01", tt.studyUID, "1.1", "1.1.1"),
				"RAT01/IM2": minimalImage(t, "RAT01", tt.studyUID, "1.1", "1.1.2"),
				"RAT02/IM1": minimalImage(t, "RAT02", tt.studyUID, "2.1", "2.1.1"),
			}

			patients, err := BuildPatients(context.Background(), mem, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.Len(t, patients, 2)

			for i, want := range []struct {
				id     string
				series string
				images int
			}{{"RAT01", "1.1", 2}, {"RAT02", "2.1", 1}} {
				p := patients[i]
				assert.Equal(t, want.id, p.PatientID)
				require.Len(t, p.Studies, 1, "patient %s", p.PatientID)
				require.Len(t, p.Studies[0].Series, 1, "patient %s", p.PatientID)
				assert.Equal(t, want.series, p.Studies[0].Series[0].SeriesInstanceUID)
				assert.Len(t, p.Studies[0].Series[0].Images, want.images)
			}
		})
	}
}

func TestBuildPatients_SeriesUIDReusedAcrossPatients(t *testing.T) {
	mem := memArchive{
		"a": minimalImage(t, "RAT01", "1.2.1", "9.9", "1"),
		"b": minimalImage(t, "RAT02", "1.2.2", "9.9", "2"),
	}

	patients, err := BuildPatients(context.Background(), mem, nil)
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, 2, CountSeries(patients))
	for _, p := range patients {
		require.Len(t, p.Studies, 1)
		require.Len(t, p.Studies[0].Series, 1)
		assert.Len(t, p.Studies[0].Series[0].Images, 1)
	}
}

func TestBuildPatients_Empty(t *testing.T) {
	patients, err := BuildPatients(context.Background(), memArchive{}, nil)
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestBuildPatients_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildPatients(ctx, sampleArchive(t, FixtureOptions{}), nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectionHelpers(t *testing.T) {
	patients := []*PatientDicom{{
		PatientID: "R001",
		Studies: []*StudyDicom{{
			Series: []*SerieDicom{
				{SeriesInstanceUID: "1"},
				{SeriesInstanceUID: "2", Selected: true},
				{SeriesInstanceUID: "3", Selected: true},
			},
		}},
	}}

	assert.True(t, AnySelected(patients))
	assert.Equal(t, 3, CountSeries(patients))

	selected := SelectedSeries(patients)
	require.Len(t, selected, 2)
	assert.Equal(t, "2", selected[0].SeriesInstanceUID)
	assert.Equal(t, "3", selected[1].SeriesInstanceUID)

	for _, s := range selected {
		s.Selected = false
	}
	assert.False(t, AnySelected(patients))
	assert.False(t, AnySelected(nil))
}
