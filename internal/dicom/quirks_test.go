package dicom

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseQuirks(t *testing.T) {
	tests := []struct {
		input   string
		want    []Quirk
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "all", want: AllQuirks()},
		{input: "missing-tags", want: []Quirk{QuirkMissingTags}},
		{input: "sidecar-files, special-chars,sidecar-files", want: []Quirk{QuirkSidecarFiles, QuirkSpecialChars}},
		{input: "missing-tags,corrupt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseQuirks(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "corrupt")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteSampleArchive_AllQuirks(t *testing.T) {
	archive := sampleArchive(t, FixtureOptions{SeriesPerStudy: 2, ImagesPerSeries: 2, Seed: 5, Quirks: AllQuirks()})
	assert.Len(t, archive.Paths(), 8)
	assert.Contains(t, archive.Paths(), "PT000000/ST000000/SE000001/acqp")

	patients, err := BuildPatients(context.Background(), archive, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, 2, CountSeries(patients))

	name := patients[0].PatientName
	assert.True(t, utf8.ValidString(name))
	assert.True(t, strings.ContainsFunc(name, func(r rune) bool { return r > 127 }), "expected non-ASCII name, got %q", name)

	study := patients[0].Studies[0]
	assert.Empty(t, study.StudyDescription)
	for _, serie := range study.Series {
		assert.Empty(t, serie.SeriesNumber)
		assert.Empty(t, serie.SeriesDescription)
		assert.Empty(t, serie.ProtocolName)
		assert.Len(t, serie.Images, 2)
		require.NotNil(t, serie.Equipment)
		assert.Empty(t, serie.Equipment.DeviceSerialNumber)
	}
}

func TestSidecarFiles(t *testing.T) {
	files := sidecarFiles("T2_TurboRARE", "RARE", 12)
	assert.Contains(t, files["acqp"], "<T2_TurboRARE>")
	assert.Contains(t, files["acqp"], "##$NI=12")
	assert.Contains(t, files["method"], "<Bruker:RARE>")
}
