package dicom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Scope is the level of the import tree a DICOM field is read at.
type Scope int

const (
	// ScopePatient fields are the same for every image of a patient.
	ScopePatient Scope = iota
	// ScopeStudy fields are the same within a study.
	ScopeStudy
	// ScopeSeries fields are the same within a series.
	ScopeSeries
	// ScopeImage fields vary per image.
	ScopeImage
)

// String returns the string representation of a Scope.
func (s Scope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// Field is a DICOM attribute the tree builder knows how to read.
type Field struct {
	Name  string
	Tag   tag.Tag
	Scope Scope
}

// fieldRegistry maps lowercase field names to their Field.
var fieldRegistry = map[string]Field{
	"patientname":      {Name: "PatientName", Tag: tag.PatientName, Scope: ScopePatient},
	"patientid":        {Name: "PatientID", Tag: tag.PatientID, Scope: ScopePatient},
	"patientbirthdate": {Name: "PatientBirthDate", Tag: tag.PatientBirthDate, Scope: ScopePatient},
	"patientsex":       {Name: "PatientSex", Tag: tag.PatientSex, Scope: ScopePatient},
	"patientweight":    {Name: "PatientWeight", Tag: tag.PatientWeight, Scope: ScopePatient},

	"studyinstanceuid":       {Name: "StudyInstanceUID", Tag: tag.StudyInstanceUID, Scope: ScopeStudy},
	"studyid":                {Name: "StudyID", Tag: tag.StudyID, Scope: ScopeStudy},
	"studydate":              {Name: "StudyDate", Tag: tag.StudyDate, Scope: ScopeStudy},
	"studydescription":       {Name: "StudyDescription", Tag: tag.StudyDescription, Scope: ScopeStudy},
	"institutionname":        {Name: "InstitutionName", Tag: tag.InstitutionName, Scope: ScopeStudy},
	"referringphysicianname": {Name: "ReferringPhysicianName", Tag: tag.ReferringPhysicianName, Scope: ScopeStudy},
	"accessionnumber":        {Name: "AccessionNumber", Tag: tag.AccessionNumber, Scope: ScopeStudy},
	"stationname":            {Name: "StationName", Tag: tag.StationName, Scope: ScopeStudy},

	"seriesinstanceuid":     {Name: "SeriesInstanceUID", Tag: tag.SeriesInstanceUID, Scope: ScopeSeries},
	"seriesnumber":          {Name: "SeriesNumber", Tag: tag.SeriesNumber, Scope: ScopeSeries},
	"seriesdescription":     {Name: "SeriesDescription", Tag: tag.SeriesDescription, Scope: ScopeSeries},
	"seriesdate":            {Name: "SeriesDate", Tag: tag.SeriesDate, Scope: ScopeSeries},
	"modality":              {Name: "Modality", Tag: tag.Modality, Scope: ScopeSeries},
	"protocolname":          {Name: "ProtocolName", Tag: tag.ProtocolName, Scope: ScopeSeries},
	"bodypartexamined":      {Name: "BodyPartExamined", Tag: tag.BodyPartExamined, Scope: ScopeSeries},
	"sequencename":          {Name: "SequenceName", Tag: tag.SequenceName, Scope: ScopeSeries},
	"manufacturer":          {Name: "Manufacturer", Tag: tag.Manufacturer, Scope: ScopeSeries},
	"manufacturermodelname": {Name: "ManufacturerModelName", Tag: tag.ManufacturerModelName, Scope: ScopeSeries},
	"deviceserialnumber":    {Name: "DeviceSerialNumber", Tag: tag.DeviceSerialNumber, Scope: ScopeSeries},
	"magneticfieldstrength": {Name: "MagneticFieldStrength", Tag: tag.MagneticFieldStrength, Scope: ScopeSeries},

	"sopinstanceuid": {Name: "SOPInstanceUID", Tag: tag.SOPInstanceUID, Scope: ScopeImage},
	"instancenumber": {Name: "InstanceNumber", Tag: tag.InstanceNumber, Scope: ScopeImage},
	"slicelocation":  {Name: "SliceLocation", Tag: tag.SliceLocation, Scope: ScopeImage},
	"echotime":       {Name: "EchoTime", Tag: tag.EchoTime, Scope: ScopeImage},
	"repetitiontime": {Name: "RepetitionTime", Tag: tag.RepetitionTime, Scope: ScopeImage},
}

// LookupField returns the Field registered under name, ignoring case.
// Unknown names get an error suggesting the closest registered name.
func LookupField(name string) (Field, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if field, ok := fieldRegistry[normalizedName]; ok {
		return field, nil
	}

	if suggestion := findClosestFieldName(normalizedName); suggestion != "" {
		return Field{}, fmt.Errorf("unknown DICOM field %q, did you mean %q?", name, suggestion)
	}
	return Field{}, fmt.Errorf("unknown DICOM field %q", name)
}

// FieldsInScope lists the registered fields of one scope, sorted by name.
func FieldsInScope(scope Scope) []Field {
	var fields []Field
	for _, field := range fieldRegistry {
		if field.Scope == scope {
			fields = append(fields, field)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

// findClosestFieldName returns "" when nothing is within edit distance 5.
func findClosestFieldName(input string) string {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var bestMatch string

	for key, field := range fieldRegistry {
		distance := levenshteinDistance(input, key)
		// ties resolve alphabetically so suggestions are stable across runs
		if distance < bestDistance || (distance == bestDistance && field.Name < bestMatch) {
			bestDistance = distance
			bestMatch = field.Name
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
