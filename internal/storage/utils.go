package storage

import (
	"github.com/google/uuid"
)

// GenerateFileName generates a new file name based on the file extension
// It creates a UUID-based filename with the provided extension
func GenerateFileName(extension string) string {
	newUUID := uuid.New().String()
	// Ensure extension starts with a dot if it doesn't already
	if extension != "" && extension[0] != '.' {
		return newUUID + "." + extension
	}
	return newUUID + extension
}

// sizeWriter tracks the total number of bytes written through it
type sizeWriter struct {
	size  int64
	limit int64
}

// Write implements io.Writer interface.
// It fails with ErrTooLarge once more than limit bytes were seen.
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	if sw.limit > 0 && sw.size > sw.limit {
		return 0, ErrTooLarge
	}
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// NewSizeWriter creates a new sizeWriter. A limit of 0 disables the check.
func NewSizeWriter(limit int64) *sizeWriter {
	return &sizeWriter{
		limit: limit,
	}
}
