package dicom

import (
	"archive/zip"
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	mrImageStorage   = "1.2.840.10008.5.1.4.1.1.4"
	explicitVRLittle = "1.2.840.10008.1.2.1"
)

// FixtureOptions controls the shape of a sample archive.
type FixtureOptions struct {
	Subjects          int
	StudiesPerSubject int
	SeriesPerStudy    int
	ImagesPerSeries   int
	Width             int
	Height            int
	Seed              uint64
	Quirks            []Quirk
}

func (o FixtureOptions) withDefaults() FixtureOptions {
	if o.Subjects <= 0 {
		o.Subjects = 1
	}
	if o.StudiesPerSubject <= 0 {
		o.StudiesPerSubject = 1
	}
	if o.SeriesPerStudy <= 0 {
		o.SeriesPerStudy = 2
	}
	if o.ImagesPerSeries <= 0 {
		o.ImagesPerSeries = 3
	}
	if o.Width <= 0 {
		o.Width = 64
	}
	if o.Height <= 0 {
		o.Height = 64
	}
	return o
}

// FixtureSummary describes what WriteSampleArchive produced.
type FixtureSummary struct {
	Patients int
	Series   int
	Images   int
	Paths    []string
}

// WriteSampleArchive writes a zip of synthetic Bruker-like MR series to w.
// Entries follow the PTxxxxxx/STxxxxxx/SExxxxxx/IMxxxxxx layout and each image
// carries its "n/N" index burned into the pixels. The same options always
// produce the same UIDs and pixels.
func WriteSampleArchive(w io.Writer, opts FixtureOptions) (*FixtureSummary, error) {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	zw := zip.NewWriter(w)
	summary := &FixtureSummary{}

	for subjectIdx := 0; subjectIdx < opts.Subjects; subjectIdx++ {
		subj := newSubject(subjectIdx, rng)
		if slices.Contains(opts.Quirks, QuirkSpecialChars) {
			subj.Name = specialCharName(rng)
		}
		summary.Patients++

		for studyIdx := 0; studyIdx < opts.StudiesPerSubject; studyIdx++ {
			studyUID := deterministicUID(opts.Seed, "study", subjectIdx, studyIdx)
			studyDate := fmt.Sprintf("2026%02d%02d", 1+(subjectIdx%12), 1+studyIdx)

			for seriesIdx := 0; seriesIdx < opts.SeriesPerStudy; seriesIdx++ {
				proto := protocols[seriesIdx%len(protocols)]
				seriesUID := deterministicUID(opts.Seed, "series", subjectIdx, studyIdx, seriesIdx)
				seriesDir := fmt.Sprintf("PT%06d/ST%06d/SE%06d", subjectIdx, studyIdx, seriesIdx)
				summary.Series++

				for imageIdx := 0; imageIdx < opts.ImagesPerSeries; imageIdx++ {
					sopUID := deterministicUID(opts.Seed, "image", subjectIdx, studyIdx, seriesIdx, imageIdx)
					elements := []*dicom.Element{
						mustNewElement(tag.TransferSyntaxUID, []string{explicitVRLittle}),
						mustNewElement(tag.MediaStorageSOPClassUID, []string{mrImageStorage}),
						mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sopUID}),
						mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
						mustNewElement(tag.SOPInstanceUID, []string{sopUID}),
						mustNewElement(tag.PatientName, []string{subj.Name}),
						mustNewElement(tag.PatientID, []string{subj.ID}),
						mustNewElement(tag.PatientBirthDate, []string{subj.BirthDate}),
						mustNewElement(tag.PatientSex, []string{subj.Sex}),
						mustNewElement(tag.StudyInstanceUID, []string{studyUID}),
						mustNewElement(tag.StudyID, []string{fmt.Sprintf("%d", studyIdx+1)}),
						mustNewElement(tag.StudyDate, []string{studyDate}),
						mustNewElement(tag.StudyDescription, []string{subj.Strain + " imaging"}),
						mustNewElement(tag.SeriesInstanceUID, []string{seriesUID}),
						mustNewElement(tag.SeriesNumber, []string{fmt.Sprintf("%d", seriesIdx+1)}),
						mustNewElement(tag.SeriesDate, []string{studyDate}),
						mustNewElement(tag.SeriesDescription, []string{proto.Description}),
						mustNewElement(tag.ProtocolName, []string{proto.Name}),
						mustNewElement(tag.SequenceName, []string{proto.Sequence}),
						mustNewElement(tag.Modality, []string{"MR"}),
						mustNewElement(tag.Manufacturer, []string{"Bruker BioSpin MRI GmbH"}),
						mustNewElement(tag.ManufacturerModelName, []string{"BioSpec 70/20"}),
						mustNewElement(tag.DeviceSerialNumber, []string{"BRK-7020"}),
						mustNewElement(tag.InstanceNumber, []string{fmt.Sprintf("%d", imageIdx+1)}),
						mustNewElement(tag.Rows, []int{opts.Height}),
						mustNewElement(tag.Columns, []int{opts.Width}),
						mustNewElement(tag.BitsAllocated, []int{16}),
						mustNewElement(tag.BitsStored, []int{16}),
						mustNewElement(tag.HighBit, []int{15}),
						mustNewElement(tag.PixelRepresentation, []int{0}),
						mustNewElement(tag.SamplesPerPixel, []int{1}),
						mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
						mustNewElement(tag.PixelData, samplePixels(opts.Width, opts.Height, rng,
							fmt.Sprintf("%d/%d", imageIdx+1, opts.ImagesPerSeries))),
					}
					if slices.Contains(opts.Quirks, QuirkSpecialChars) {
						elements = append(elements, mustNewElement(tag.SpecificCharacterSet, []string{"ISO_IR 192"}))
					}
					elements = applyQuirks(elements, opts.Quirks)

					sort.Slice(elements, func(i, j int) bool {
						a, b := elements[i].Tag, elements[j].Tag
						if a.Group != b.Group {
							return a.Group < b.Group
						}
						return a.Element < b.Element
					})

					var buf bytes.Buffer
					if err := dicom.Write(&buf, dicom.Dataset{Elements: elements}); err != nil {
						return nil, fmt.Errorf("encode image %s: %w", sopUID, err)
					}

					name := fmt.Sprintf("%s/IM%06d", seriesDir, imageIdx+1)
					if err := writeEntry(zw, name, buf.Bytes()); err != nil {
						return nil, err
					}
					summary.Paths = append(summary.Paths, name)
					summary.Images++
				}

				if slices.Contains(opts.Quirks, QuirkSidecarFiles) {
					files := sidecarFiles(proto.Name, proto.Sequence, opts.ImagesPerSeries)
					for _, base := range []string{"acqp", "method"} {
						if err := writeEntry(zw, seriesDir+"/"+base, []byte(files[base])); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return summary, nil
}

// samplePixels returns a noisy radial gradient with text centered on it.
func samplePixels(width, height int, rng *rand.Rand, text string) dicom.PixelDataInfo {
	nativeFrame := frame.NewNativeFrame[uint16](16, height, width, width*height, 1)

	centerX, centerY := float64(width)/2, float64(height)/2
	maxDist := math.Sqrt(centerX*centerX + centerY*centerY)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-centerX, float64(y)-centerY
			intensity := (1.0-math.Sqrt(dx*dx+dy*dy)/maxDist)*20000 + (rng.Float64()-0.5)*4000
			nativeFrame.RawData[y*width+x] = uint16(math.Max(0, math.Min(40000, intensity)))
		}
	}

	overlayText(nativeFrame.RawData, width, height, text)

	return dicom.PixelDataInfo{
		Frames: []*frame.Frame{{Encapsulated: false, NativeData: nativeFrame}},
	}
}

// overlayText burns text in white, scaled to about 60% of the frame width.
func overlayText(pixels []uint16, width, height int, text string) {
	face := basicfont.Face7x13
	baseWidth := font.MeasureString(face, text).Ceil()
	baseHeight := 13
	if baseWidth == 0 {
		return
	}

	mask := image.NewAlpha(image.Rect(0, 0, baseWidth, baseHeight))
	drawer := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(11)},
	}
	drawer.DrawString(text)

	scale := max(1.0, float64(width)*0.6/float64(baseWidth))
	scaledW := min(width, int(float64(baseWidth)*scale))
	scaledH := min(height, int(float64(baseHeight)*scale))
	scaled := image.NewAlpha(image.Rect(0, 0, scaledW, scaledH))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), draw.Src, nil)

	canvas := &image.Gray16{Pix: make([]uint8, 2*width*height), Stride: 2 * width, Rect: image.Rect(0, 0, width, height)}
	for i, v := range pixels {
		canvas.Pix[2*i] = uint8(v >> 8)
		canvas.Pix[2*i+1] = uint8(v)
	}

	offset := image.Pt((width-scaledW)/2, (height-scaledH)/2)
	draw.DrawMask(canvas, scaled.Bounds().Add(offset), image.NewUniform(color.Gray16{Y: 0xffff}), image.Point{}, scaled, image.Point{}, draw.Over)

	for i := range pixels {
		pixels[i] = uint16(canvas.Pix[2*i])<<8 | uint16(canvas.Pix[2*i+1])
	}
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// deterministicUID derives a 2.25 UID from the seed and the given path.
func deterministicUID(seed uint64, kind string, indexes ...int) string {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d/%s", seed, kind)
	for _, idx := range indexes {
		_, _ = fmt.Fprintf(h, "/%d", idx)
	}
	return fmt.Sprintf("2.25.%d", h.Sum64())
}

func mustNewElement(t tag.Tag, data any) *dicom.Element {
	elem, err := dicom.NewElement(t, data)
	if err != nil {
		panic(fmt.Sprintf("new element %v: %v", t, err))
	}
	return elem
}
