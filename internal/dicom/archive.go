package dicom

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// ErrNotInArchive is returned when a requested path has no entry in the archive.
var ErrNotInArchive = errors.New("path not in archive")

// Archive is an uploaded set of files addressed by relative path.
type Archive interface {
	// Paths lists every regular file, sorted.
	Paths() []string
	// Open returns the full content of the file at p.
	Open(ctx context.Context, p string) ([]byte, error)
}

// ZipArchive is an Archive backed by an in-memory zip file.
type ZipArchive struct {
	files map[string]*zip.File
	paths []string
}

// NewZipArchive indexes the zip content in data.
func NewZipArchive(data []byte) (*ZipArchive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read zip: %w", err)
	}

	archive := &ZipArchive{files: make(map[string]*zip.File, len(reader.File))}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := CleanPath(f.Name)
		if name == "" {
			continue
		}
		archive.files[name] = f
		archive.paths = append(archive.paths, name)
	}
	sort.Strings(archive.paths)
	return archive, nil
}

// ReadZipFile loads and indexes the zip file at filename.
func ReadZipFile(filename string) (*ZipArchive, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", filename, err)
	}
	archive, err := NewZipArchive(data)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", filename, err)
	}
	return archive, nil
}

// Paths implements Archive.
func (a *ZipArchive) Paths() []string {
	out := make([]string, len(a.paths))
	copy(out, a.paths)
	return out
}

// Open implements Archive.
func (a *ZipArchive) Open(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := a.files[CleanPath(p)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotInArchive)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// CleanPath normalizes an archive-relative path to forward slashes without a
// leading "./" or "/". Dot-dot segments are resolved against the root, so the
// result never points outside it. The root itself yields "".
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	return p
}
