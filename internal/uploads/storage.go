package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskStorage writes upload bytes under a base directory, one generated
// name per file so collisions and path traversal cannot happen.
type DiskStorage struct {
	baseDir string
}

// NewDiskStorage builds a DiskStorage rooted at baseDir.
func NewDiskStorage(baseDir string) (*DiskStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create base dir: %w", err)
	}
	return &DiskStorage{baseDir: baseDir}, nil
}

// Save streams src to disk and returns the relative storage path.
func (s *DiskStorage) Save(src io.Reader, originalName string) (string, int64, error) {
	name := uuid.NewString()
	if ext := sanitizeExt(filepath.Ext(originalName)); ext != "" {
		name += ext
	}
	dst, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", 0, err
	}
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filepath.Join(s.baseDir, name))
		return "", 0, err
	}
	return name, written, nil
}

// Open returns a reader for a stored file.
func (s *DiskStorage) Open(storagePath string) (io.ReadCloser, error) {
	// Stored names are uuid generated; reject anything that is not a bare
	// file name.
	if storagePath != filepath.Base(storagePath) {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.baseDir, storagePath))
}

// Remove deletes a stored file, tolerating already missing files.
func (s *DiskStorage) Remove(storagePath string) error {
	if storagePath != filepath.Base(storagePath) {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, storagePath))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
