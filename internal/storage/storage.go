package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// localStorage implements Storage interface using local filesystem.
// Files live under <basePath>/<mediaType>/<id>.
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// BasePath returns the root directory of the stored files
func (s *localStorage) BasePath() string {
	return s.basePath
}

// generatePath generates the full file path based on id and mediaType.
// Ids and media types containing path elements are rejected.
func (s *localStorage) generatePath(id, mediaType string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid file id %q", id)
	}
	if mediaType == "" || strings.ContainsAny(mediaType, `/\.`) {
		return "", fmt.Errorf("invalid media type %q", mediaType)
	}

	return filepath.Join(s.basePath, mediaType, id), nil
}

// Create creates a new file and returns a WriteCloser
func (s *localStorage) Create(id, mediaType string) (io.WriteCloser, error) {
	path, err := s.generatePath(id, mediaType)
	if err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}

// Open opens a file for reading and returns a ReadCloser
func (s *localStorage) Open(id, mediaType string) (io.ReadCloser, error) {
	path, err := s.generatePath(id, mediaType)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a file
func (s *localStorage) Delete(id, mediaType string) error {
	path, err := s.generatePath(id, mediaType)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
