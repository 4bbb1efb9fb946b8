package screens

import (
	"fmt"
	"strings"

	"github.com/mrsinham/shanoirimport/internal/dicom"
)

// NodeKind is the level of a tree row.
type NodeKind int

const (
	NodePatient NodeKind = iota
	NodeStudy
	NodeSerie
)

// Row is one line of the flattened patient tree.
type Row struct {
	Kind    NodeKind
	Patient *dicom.PatientDicom
	Study   *dicom.StudyDicom
	Serie   *dicom.SerieDicom
}

// FlattenTree lists patients, studies and series in display order. Nil
// nodes are left out.
func FlattenTree(patients []*dicom.PatientDicom) []Row {
	var rows []Row
	for _, p := range patients {
		if p == nil {
			continue
		}
		rows = append(rows, Row{Kind: NodePatient, Patient: p})
		for _, st := range p.Studies {
			if st == nil {
				continue
			}
			rows = append(rows, Row{Kind: NodeStudy, Patient: p, Study: st})
			for _, se := range st.Series {
				if se == nil {
					continue
				}
				rows = append(rows, Row{Kind: NodeSerie, Patient: p, Study: st, Serie: se})
			}
		}
	}
	return rows
}

// checkState is the tri-state of a tree checkbox.
type checkState int

const (
	unchecked checkState = iota
	partial
	checked
)

func (c checkState) String() string {
	switch c {
	case checked:
		return "[x]"
	case partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

func seriesState(patients []*dicom.PatientDicom) checkState {
	total, selected := 0, 0
	dicom.WalkSeries(patients, func(_ *dicom.PatientDicom, _ *dicom.StudyDicom, s *dicom.SerieDicom) bool {
		total++
		if s.Selected {
			selected++
		}
		return true
	})
	switch {
	case selected == 0:
		return unchecked
	case selected == total:
		return checked
	default:
		return partial
	}
}

func (r Row) state() checkState {
	switch r.Kind {
	case NodePatient:
		return seriesState([]*dicom.PatientDicom{r.Patient})
	case NodeStudy:
		return seriesState([]*dicom.PatientDicom{{Studies: []*dicom.StudyDicom{r.Study}}})
	default:
		if r.Serie.Selected {
			return checked
		}
		return unchecked
	}
}

func (r Row) label() string {
	switch r.Kind {
	case NodePatient:
		return fmt.Sprintf("%s %s", r.Patient.PatientID, r.Patient.PatientName)
	case NodeStudy:
		return strings.TrimSpace(fmt.Sprintf("%s %s", formatDate(r.Study.StudyDate), r.Study.StudyDescription))
	default:
		return fmt.Sprintf("#%s %s (%d images)", r.Serie.SeriesNumber, r.Serie.SeriesDescription, len(r.Serie.Images))
	}
}

func (r Row) indent() string {
	return strings.Repeat("  ", int(r.Kind))
}

// formatDate turns a DICOM DA value into YYYY-MM-DD.
func formatDate(da string) string {
	if len(da) != 8 {
		return da
	}
	return da[:4] + "-" + da[4:6] + "-" + da[6:]
}
