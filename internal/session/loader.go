package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrsinham/shanoirimport/internal/dicom"
	"go.uber.org/zap"
)

// LoadArchiveFile extracts the zip at path in memory and parses its tree.
// The work folder is the archive name without extension.
func LoadArchiveFile(ctx context.Context, path string, logger *zap.Logger) (*ImportData, error) {
	archive, err := dicom.ReadZipFile(path)
	if err != nil {
		return nil, err
	}

	patients, err := dicom.BuildPatients(ctx, archive, logger)
	if err != nil {
		return nil, fmt.Errorf("parse archive %s: %w", path, err)
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("archive %s contains no DICOM series", path)
	}

	base := filepath.Base(path)
	data := New()
	data.SetArchiveUploaded(&ArchiveUpload{
		Patients:   patients,
		WorkFolder: strings.TrimSuffix(base, filepath.Ext(base)),
	}, archive)
	return data, nil
}

// LoadImportJob reads an import job JSON written by the server. Its images
// are fetched remotely.
func LoadImportJob(path string) (*ImportData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import job %s: %w", path, err)
	}

	var upload ArchiveUpload
	if err := json.Unmarshal(content, &upload); err != nil {
		return nil, fmt.Errorf("failed to parse import job %s: %w", path, err)
	}
	if upload.WorkFolder == "" {
		return nil, fmt.Errorf("import job %s: workFolder is required", path)
	}

	data := New()
	data.SetArchiveUploaded(&upload, nil)
	return data, nil
}

// SaveImportJob writes the upload with the current selection to path.
func SaveImportJob(d *ImportData, path string) error {
	upload := d.ArchiveUploaded()
	if upload == nil {
		return fmt.Errorf("no archive uploaded")
	}

	content, err := json.MarshalIndent(ArchiveUpload{
		Patients:   d.Patients(),
		WorkFolder: upload.WorkFolder,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode import job: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write import job %s: %w", path, err)
	}
	return nil
}
