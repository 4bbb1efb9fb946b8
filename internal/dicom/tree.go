package dicom

import (
	"context"
	"sort"
	"strconv"

	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"
)

// BuildPatients parses every file of archive and groups the images into the
// patient/study/series tree. Files that are not DICOM, or lack a series UID,
// are skipped and logged. The result is sorted so the same archive always
// yields the same tree.
func BuildPatients(ctx context.Context, archive Archive, logger *zap.Logger) ([]*PatientDicom, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	patientsByID := make(map[string]*PatientDicom)
	// studies and series are keyed under their owner so that UIDs missing
	// or reused across subjects never merge two animals.
	studiesByKey := make(map[string]*StudyDicom)
	seriesByKey := make(map[string]*SerieDicom)
	var patients []*PatientDicom

	for _, p := range archive.Paths() {
		data, err := archive.Open(ctx, p)
		if err != nil {
			return nil, err
		}

		ds, err := parseHeader(data)
		if err != nil {
			logger.Debug("skipping non-DICOM entry", zap.String("path", p), zap.Error(err))
			continue
		}

		seriesUID := stringValue(ds, tag.SeriesInstanceUID)
		if seriesUID == "" {
			logger.Warn("skipping DICOM file without series UID", zap.String("path", p))
			continue
		}

		patientID := stringValue(ds, tag.PatientID)
		patient, ok := patientsByID[patientID]
		if !ok {
			patient = &PatientDicom{
				PatientID:        patientID,
				PatientName:      stringValue(ds, tag.PatientName),
				PatientBirthDate: stringValue(ds, tag.PatientBirthDate),
				PatientSex:       stringValue(ds, tag.PatientSex),
			}
			patientsByID[patientID] = patient
			patients = append(patients, patient)
		}

		studyUID := stringValue(ds, tag.StudyInstanceUID)
		studyKey := patientID + "\x00" + studyUID
		study, ok := studiesByKey[studyKey]
		if !ok {
			study = &StudyDicom{
				StudyInstanceUID: studyUID,
				StudyID:          stringValue(ds, tag.StudyID),
				StudyDate:        stringValue(ds, tag.StudyDate),
				StudyDescription: stringValue(ds, tag.StudyDescription),
			}
			studiesByKey[studyKey] = study
			patient.Studies = append(patient.Studies, study)
		}

		serieKey := studyKey + "\x00" + seriesUID
		serie, ok := seriesByKey[serieKey]
		if !ok {
			serie = &SerieDicom{
				SeriesInstanceUID: seriesUID,
				SeriesNumber:      stringValue(ds, tag.SeriesNumber),
				SeriesDescription: stringValue(ds, tag.SeriesDescription),
				SeriesDate:        stringValue(ds, tag.SeriesDate),
				Modality:          stringValue(ds, tag.Modality),
				ProtocolName:      stringValue(ds, tag.ProtocolName),
				Fields:            fieldValues(ds, ScopeSeries),
			}
			equipment := EquipmentDicom{
				Manufacturer:          stringValue(ds, tag.Manufacturer),
				ManufacturerModelName: stringValue(ds, tag.ManufacturerModelName),
				DeviceSerialNumber:    stringValue(ds, tag.DeviceSerialNumber),
			}
			if equipment != (EquipmentDicom{}) {
				serie.Equipment = &equipment
			}
			seriesByKey[serieKey] = serie
			study.Series = append(study.Series, serie)
		}

		serie.Images = append(serie.Images, &ImageDicom{
			Path:           p,
			SOPInstanceUID: stringValue(ds, tag.SOPInstanceUID),
			InstanceNumber: intValue(ds, tag.InstanceNumber),
		})
		serie.NumberOfSeriesRelatedInstances = len(serie.Images)
	}

	sortTree(patients)
	logger.Info("archive parsed",
		zap.Int("patients", len(patients)),
		zap.Int("series", CountSeries(patients)))
	return patients, nil
}

func sortTree(patients []*PatientDicom) {
	sort.SliceStable(patients, func(i, j int) bool {
		return patients[i].PatientID < patients[j].PatientID
	})
	for _, p := range patients {
		sort.SliceStable(p.Studies, func(i, j int) bool {
			a, b := p.Studies[i], p.Studies[j]
			if a.StudyDate != b.StudyDate {
				return a.StudyDate < b.StudyDate
			}
			return a.StudyInstanceUID < b.StudyInstanceUID
		})
		for _, st := range p.Studies {
			sort.SliceStable(st.Series, func(i, j int) bool {
				a, b := st.Series[i], st.Series[j]
				if na, nb := numberOrMax(a.SeriesNumber), numberOrMax(b.SeriesNumber); na != nb {
					return na < nb
				}
				return a.SeriesInstanceUID < b.SeriesInstanceUID
			})
			for _, s := range st.Series {
				sort.SliceStable(s.Images, func(i, j int) bool {
					a, b := s.Images[i], s.Images[j]
					if a.InstanceNumber != b.InstanceNumber {
						return a.InstanceNumber < b.InstanceNumber
					}
					return a.Path < b.Path
				})
			}
		}
	}
}

// numberOrMax sorts series without a numeric SeriesNumber last.
func numberOrMax(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
