// Package dicom reads DICOM archives into the patient/study/series tree used by
// the import wizard, renders terminal previews and writes sample archives.
package dicom

// PatientDicom is the root of the import tree.
type PatientDicom struct {
	PatientID        string        `json:"patientID"`
	PatientName      string        `json:"patientName"`
	PatientBirthDate string        `json:"patientBirthDate,omitempty"`
	PatientSex       string        `json:"patientSex,omitempty"`
	Studies          []*StudyDicom `json:"studies"`
}

// StudyDicom groups the series acquired in one session.
type StudyDicom struct {
	StudyInstanceUID string        `json:"studyInstanceUID"`
	StudyID          string        `json:"studyID,omitempty"`
	StudyDate        string        `json:"studyDate,omitempty"`
	StudyDescription string        `json:"studyDescription,omitempty"`
	Series           []*SerieDicom `json:"series"`
}

// SerieDicom is a selectable node of the tree.
type SerieDicom struct {
	SeriesInstanceUID              string          `json:"seriesInstanceUID"`
	SeriesNumber                   string          `json:"seriesNumber,omitempty"`
	SeriesDescription              string          `json:"seriesDescription,omitempty"`
	SeriesDate                     string          `json:"seriesDate,omitempty"`
	Modality                       string          `json:"modality,omitempty"`
	ProtocolName                   string          `json:"protocolName,omitempty"`
	NumberOfSeriesRelatedInstances int             `json:"numberOfSeriesRelatedInstances"`
	Selected                       bool            `json:"selected"`
	Equipment                      *EquipmentDicom `json:"equipment,omitempty"`
	// Fields holds every series-level registry field found in the first image, by name.
	Fields map[string]string `json:"fields,omitempty"`
	Images []*ImageDicom     `json:"images"`
}

// EquipmentDicom describes the scanner a series was acquired on.
type EquipmentDicom struct {
	Manufacturer          string `json:"manufacturer,omitempty"`
	ManufacturerModelName string `json:"manufacturerModelName,omitempty"`
	DeviceSerialNumber    string `json:"deviceSerialNumber,omitempty"`
}

// ImageDicom points at one file, relative to the archive root or work folder.
type ImageDicom struct {
	Path           string `json:"path"`
	SOPInstanceUID string `json:"sopInstanceUID,omitempty"`
	InstanceNumber int    `json:"instanceNumber,omitempty"`
}

// WalkSeries calls fn for every series in tree order until fn returns false.
func WalkSeries(patients []*PatientDicom, fn func(p *PatientDicom, st *StudyDicom, s *SerieDicom) bool) {
	for _, p := range patients {
		if p == nil {
			continue
		}
		for _, st := range p.Studies {
			if st == nil {
				continue
			}
			for _, s := range st.Series {
				if s == nil {
					continue
				}
				if !fn(p, st, s) {
					return
				}
			}
		}
	}
}

// AnySelected reports whether at least one series in the tree is selected.
func AnySelected(patients []*PatientDicom) bool {
	found := false
	WalkSeries(patients, func(_ *PatientDicom, _ *StudyDicom, s *SerieDicom) bool {
		found = s.Selected
		return !found
	})
	return found
}

// SelectedSeries returns the selected series in tree order.
func SelectedSeries(patients []*PatientDicom) []*SerieDicom {
	var selected []*SerieDicom
	WalkSeries(patients, func(_ *PatientDicom, _ *StudyDicom, s *SerieDicom) bool {
		if s.Selected {
			selected = append(selected, s)
		}
		return true
	})
	return selected
}

// CountSeries returns the number of series in the tree.
func CountSeries(patients []*PatientDicom) int {
	n := 0
	WalkSeries(patients, func(*PatientDicom, *StudyDicom, *SerieDicom) bool {
		n++
		return true
	})
	return n
}
