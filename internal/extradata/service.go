package extradata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mrsinham/shanoirimport/internal/rest"
	"go.uber.org/zap"
)

// Segment is the fixed path segment of the extra data resource.
const Segment = "extradata"

// UploadField is the multipart field carrying uploaded files.
const UploadField = "files"

const allSuffix = "/all"

// ErrNoExamination is returned when an examination-scoped call is made for
// a record without an examination.
var ErrNoExamination = errors.New("extra data has no examination")

// Service reads and writes extra data under the examination API.
type Service struct {
	rest.EntityService[ExtraData]
	base   string
	logger *zap.Logger
}

// NewService returns a Service rooted at base, the examination API URL.
func NewService(client *rest.Client, base string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		EntityService: rest.EntityService[ExtraData]{
			Client: client,
			New:    func() *ExtraData { return &ExtraData{} },
		},
		base:   strings.TrimRight(base, "/"),
		logger: logger,
	}
}

// List returns every extra data of an examination, hydrated, in server order.
func (s *Service) List(ctx context.Context, examID int64) ([]*ExtraData, error) {
	if examID == 0 {
		return nil, ErrNoExamination
	}
	url := fmt.Sprintf("%s/%d/%s%s", s.base, examID, Segment, allSuffix)
	return s.GetAll(ctx, url)
}

// Get returns one hydrated extra data.
func (s *Service) Get(ctx context.Context, id string) (*ExtraData, error) {
	return s.EntityService.Get(ctx, s.base+"/"+id)
}

// Create posts payload under its examination. The server response is
// returned as is.
func (s *Service) Create(ctx context.Context, datatype string, payload Payload) (json.RawMessage, error) {
	record := payload.Record()
	if record.ExaminationID == 0 {
		return nil, ErrNoExamination
	}
	url := fmt.Sprintf("%s/%d/%s", s.base, record.ExaminationID, datatype)
	s.logger.Info("creating extra data",
		zap.Int64("examination_id", record.ExaminationID),
		zap.String("datatype", datatype))
	return s.Client.SendJSON(ctx, http.MethodPost, url, payload)
}

// Update puts payload over the record id. The server response is returned
// as is.
func (s *Service) Update(ctx context.Context, datatype string, id int64, payload Payload) (json.RawMessage, error) {
	record := payload.Record()
	if record.ExaminationID == 0 {
		return nil, ErrNoExamination
	}
	url := fmt.Sprintf("%s/%d/%s/%d", s.base, record.ExaminationID, datatype, id)
	return s.Client.SendJSON(ctx, http.MethodPut, url, payload)
}

// Delete removes entity.
func (s *Service) Delete(ctx context.Context, entity *ExtraData) error {
	if entity.ExaminationID == 0 {
		return ErrNoExamination
	}
	url := fmt.Sprintf("%s/%d/%s/%d", s.base, entity.ExaminationID, Segment, entity.ID)
	s.logger.Info("deleting extra data",
		zap.Int64("examination_id", entity.ExaminationID),
		zap.Int64("id", entity.ID))
	return s.Client.Delete(ctx, url)
}

// PostFile uploads the content of r as filename for entity.
func (s *Service) PostFile(ctx context.Context, filename string, r io.Reader, entity *ExtraData) (json.RawMessage, error) {
	return s.Client.PostMultipart(ctx, s.UploadURL(entity), UploadField, filename, r)
}

// UploadURL is the upload endpoint of entity.
func (s *Service) UploadURL(entity *ExtraData) string {
	return fmt.Sprintf("%s/%s/upload/%d", s.base, Segment, entity.ID)
}

// DownloadURL is the direct download link of entity.
func (s *Service) DownloadURL(entity *ExtraData) string {
	return fmt.Sprintf("%s/%s/download/%d", s.base, Segment, entity.ID)
}

// Download returns the raw file content of entity. The body is not decoded.
func (s *Service) Download(ctx context.Context, entity *ExtraData) ([]byte, error) {
	if entity.ExaminationID == 0 {
		return nil, ErrNoExamination
	}
	url := fmt.Sprintf("%s/%d/%s/%d/download", s.base, entity.ExaminationID, Segment, entity.ID)
	return s.Client.GetBytes(ctx, url, nil)
}
