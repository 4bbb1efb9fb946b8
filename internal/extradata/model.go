// Package extradata is the client for the files attached to preclinical
// examinations (physiological recordings, blood gas sheets and plain files).
package extradata

import "strings"

// Datatypes accepted by the create and update endpoints.
const (
	TypeExtraData         = "extradata"
	TypePhysiologicalData = "physiologicaldata"
	TypeBloodGasData      = "bloodgasdata"
)

// ExtraData is a file attached to one examination.
type ExtraData struct {
	ID            int64  `json:"id,omitempty"`
	ExaminationID int64  `json:"examination_id"`
	ExtraDataType string `json:"extradatatype,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Filepath      string `json:"filepath,omitempty"`
}

// Record gives access to the common fields of every payload.
func (e *ExtraData) Record() *ExtraData { return e }

// Hydrated normalizes fields the server sends inconsistently.
func (e *ExtraData) Hydrated() {
	e.ExtraDataType = strings.ToLower(strings.TrimSpace(e.ExtraDataType))
	if e.ExtraDataType == "" {
		e.ExtraDataType = TypeExtraData
	}
}

// PhysiologicalData flags which signals a physiological recording contains.
type PhysiologicalData struct {
	ExtraData
	HasHeartRate       bool `json:"has_heart_rate"`
	HasRespiratoryRate bool `json:"has_respiratory_rate"`
	HasSao2            bool `json:"has_sao2"`
	HasTemperature     bool `json:"has_temperature"`
}

// BloodGasData is a blood gas analysis sheet.
type BloodGasData struct {
	ExtraData
}

// Payload is any extra data variant that can be sent to the server.
type Payload interface {
	Record() *ExtraData
}

// NewPayload returns an empty payload for datatype, or false if unknown.
func NewPayload(datatype string) (Payload, bool) {
	switch strings.ToLower(datatype) {
	case TypeExtraData:
		return &ExtraData{ExtraDataType: TypeExtraData}, true
	case TypePhysiologicalData:
		return &PhysiologicalData{ExtraData: ExtraData{ExtraDataType: TypePhysiologicalData}}, true
	case TypeBloodGasData:
		return &BloodGasData{ExtraData: ExtraData{ExtraDataType: TypeBloodGasData}}, true
	default:
		return nil, false
	}
}
