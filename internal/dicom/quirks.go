package dicom

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Quirk is a deviation from a clean export that sample archives can carry.
type Quirk string

const (
	// QuirkSpecialChars gives subjects accented names encoded as UTF-8.
	QuirkSpecialChars Quirk = "special-chars"
	// QuirkMissingTags drops the optional descriptive tags.
	QuirkMissingTags Quirk = "missing-tags"
	// QuirkNoSeriesNumber drops SeriesNumber.
	QuirkNoSeriesNumber Quirk = "no-series-number"
	// QuirkSidecarFiles adds ParaVision parameter files next to the images.
	QuirkSidecarFiles Quirk = "sidecar-files"
)

// AllQuirks returns every quirk.
func AllQuirks() []Quirk {
	return []Quirk{QuirkSpecialChars, QuirkMissingTags, QuirkNoSeriesNumber, QuirkSidecarFiles}
}

// ParseQuirks parses a comma-separated quirk list. "all" enables every quirk.
func ParseQuirks(input string) ([]Quirk, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if input == "all" {
		return AllQuirks(), nil
	}

	valid := AllQuirks()
	var result []Quirk
	for _, p := range strings.Split(input, ",") {
		q := Quirk(strings.TrimSpace(p))
		if !slices.Contains(valid, q) {
			return nil, fmt.Errorf("unknown quirk %q, valid quirks: %v", p, valid)
		}
		if !slices.Contains(result, q) {
			result = append(result, q)
		}
	}
	return result, nil
}

// optionalTags are dropped by QuirkMissingTags.
var optionalTags = []tag.Tag{
	tag.StudyDescription,
	tag.SeriesDescription,
	tag.ProtocolName,
	tag.SequenceName,
	tag.DeviceSerialNumber,
}

var specialCharNames = []string{
	"Müller-Schmidt^Zoë", "O'Connor^Siân", "Østergaard^Søren",
	"García-López^Ángel", "Škvorecký^Łukasz", "D'Agostino^Hélène",
}

func specialCharName(rng *rand.Rand) string {
	return specialCharNames[rng.IntN(len(specialCharNames))]
}

// applyQuirks rewrites the elements of one image.
func applyQuirks(elements []*dicom.Element, quirks []Quirk) []*dicom.Element {
	var drop []tag.Tag
	if slices.Contains(quirks, QuirkMissingTags) {
		drop = append(drop, optionalTags...)
	}
	if slices.Contains(quirks, QuirkNoSeriesNumber) {
		drop = append(drop, tag.SeriesNumber)
	}
	if len(drop) == 0 {
		return elements
	}
	return slices.DeleteFunc(elements, func(e *dicom.Element) bool {
		return slices.Contains(drop, e.Tag)
	})
}

// sidecarFiles returns the ParaVision text files of one series directory.
func sidecarFiles(protocol, sequence string, images int) map[string]string {
	return map[string]string{
		"acqp": fmt.Sprintf("##TITLE=Parameter List, ParaVision 6.0.1\n##$ACQ_protocol_name=( 64 )\n<%s>\n##$NI=%d\n##END=\n",
			protocol, images),
		"method": fmt.Sprintf("##TITLE=Parameter List, ParaVision 6.0.1\n##$Method=<Bruker:%s>\n##END=\n", sequence),
	}
}
