// Package importer talks to the Shanoir import microservice.
package importer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mrsinham/shanoirimport/internal/rest"
	"go.uber.org/zap"
)

// Service downloads images extracted on the server.
type Service struct {
	client *rest.Client
	logger *zap.Logger
}

// NewService returns a Service using client.
func NewService(client *rest.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

// DownloadImage returns the DICOM file at path, relative to the server work
// folder, from the endpoint at dicomURL.
func (s *Service) DownloadImage(ctx context.Context, dicomURL, path string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, dicomURL, url.Values{"path": {path}})
	if err != nil {
		return nil, fmt.Errorf("download image %s: %w", path, err)
	}
	s.logger.Debug("image downloaded", zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}
