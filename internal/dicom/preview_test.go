package dicom

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPreview(t *testing.T) {
	archive := sampleArchive(t, FixtureOptions{Width: 48, Height: 48, ImagesPerSeries: 1, SeriesPerStudy: 1})
	data, err := archive.Open(context.Background(), archive.Paths()[0])
	require.NoError(t, err)

	preview, err := RenderPreview(data, 24, 12)
	require.NoError(t, err)

	lines := strings.Split(preview, "\n")
	require.Len(t, lines, 12)
	for _, line := range lines {
		assert.Len(t, line, 24)
	}
	// the frame spans the whole ramp after stretching
	assert.Contains(t, preview, " ")
	assert.Contains(t, preview, "@")
}

func TestRenderPreview_Errors(t *testing.T) {
	_, err := RenderPreview([]byte("plain text"), 10, 10)
	assert.Error(t, err)

	_, err = RenderPreview(nil, 0, 10)
	assert.Error(t, err)
}
