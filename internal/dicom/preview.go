package dicom

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/image/draw"
)

// previewRamp goes from dark to bright.
const previewRamp = " .:-=+*#%@"

// ErrNoPixelData is returned by RenderPreview for files without an image.
var ErrNoPixelData = errors.New("no pixel data")

// RenderPreview decodes the first frame of a DICOM file and renders it as
// width x height characters. Intensities are stretched between the frame's
// own minimum and maximum.
func RenderPreview(data []byte, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid preview size %dx%d", width, height)
	}

	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return "", fmt.Errorf("parse DICOM: %w", err)
	}

	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return "", ErrNoPixelData
	}
	info := dicom.MustGetPixelDataInfo(elem.Value)
	if len(info.Frames) == 0 {
		return "", ErrNoPixelData
	}

	img, err := info.Frames[0].GetImage()
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}

	small := image.NewGray16(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	lo, hi := uint16(0xffff), uint16(0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := small.Gray16At(x, y).Y
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	var b strings.Builder
	b.Grow((width + 1) * height)
	last := len(previewRamp) - 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := 0
			if hi > lo {
				v := small.Gray16At(x, y).Y
				idx = int(v-lo) * last / int(hi-lo)
			}
			b.WriteByte(previewRamp[idx])
		}
		if y < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
