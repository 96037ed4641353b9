package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/storage"
	"go.uber.org/zap"
)

// Storage defines the interface for file storage operations
type Storage interface {
	// Create creates a new file and returns a WriteCloser.
	// The file path is generated based on id and mediaType; an existing file is never overwritten.
	Create(id, mediaType string) (io.WriteCloser, error)

	// Delete removes a file
	Delete(id, mediaType string) error
}

// sniffLen is the number of bytes http.DetectContentType looks at
const sniffLen = 512

type mediaService struct {
	storage Storage
	maxSize int64
	logger  *zap.Logger
}

// NewMediaService creates a new media service.
// A maxSize of 0 falls back to models.MaxImageSize.
func NewMediaService(storage Storage, maxSize int64, logger *zap.Logger) *mediaService {
	if maxSize <= 0 {
		maxSize = models.MaxImageSize
	}
	return &mediaService{
		storage: storage,
		maxSize: maxSize,
		logger:  logger,
	}
}

// SaveImage validates an uploaded image and stores it under a new uuid file name.
//
// The content type is sniffed from the file itself, the client supplied name is only logged.
// Returns the stored file name or a *models.ValidationError for a bad image.
func (s *mediaService) SaveImage(ctx context.Context, upload *models.Upload, mediaType models.MediaType) (string, error) {
	if upload == nil || upload.Reader == nil {
		return "", models.NewValidationError("No image provided")
	}
	if !mediaType.IsValid() {
		return "", fmt.Errorf("invalid media type: %s", mediaType)
	}
	if upload.Size > s.maxSize {
		return "", models.NewValidationError(s.tooLargeMessage())
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if n == 0 {
		return "", models.NewValidationError("Uploaded image is empty")
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	extension := InferExtensionFromContentType(contentType)
	if extension == "" {
		s.logger.Info("rejected upload",
			zap.String("filename", upload.Filename),
			zap.String("content_type", contentType),
		)
		return "", models.NewValidationError("Only JPEG, PNG, GIF and WebP images are allowed")
	}

	filename := storage.GenerateFileName(extension)

	// Count bytes while copying so an understated Size cannot bypass the limit
	sizeWriter := storage.NewSizeWriter(s.maxSize)
	teeReader := io.TeeReader(io.MultiReader(bytes.NewReader(head), upload.Reader), sizeWriter)

	writeCloser, err := s.storage.Create(filename, string(mediaType))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(writeCloser, teeReader)
	closeErr := writeCloser.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		// Cleanup: delete the partial file
		if delErr := s.storage.Delete(filename, string(mediaType)); delErr != nil {
			s.logger.Warn("failed to delete partial upload", zap.String("filename", filename), zap.Error(delErr))
		}
		if errors.Is(err, storage.ErrTooLarge) {
			return "", models.NewValidationError(s.tooLargeMessage())
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Info("image stored",
		zap.String("filename", filename),
		zap.String("media_type", string(mediaType)),
		zap.Int64("size", sizeWriter.Size()),
	)
	return filename, nil
}

// DeleteImage removes a stored image. Failures are logged and never returned:
// a missing file must not block the deletion of the row that referenced it.
func (s *mediaService) DeleteImage(ctx context.Context, filename string, mediaType models.MediaType) {
	if filename == "" {
		return
	}
	if err := s.storage.Delete(filename, string(mediaType)); err != nil {
		s.logger.Warn("failed to delete image",
			zap.String("filename", filename),
			zap.String("media_type", string(mediaType)),
			zap.Error(err),
		)
	}
}

func (s *mediaService) tooLargeMessage() string {
	return fmt.Sprintf("Image must be %d MB or smaller", s.maxSize/(1024*1024))
}

// InferExtensionFromContentType infers the extension from the content type
//
// "contentType" parameter is the content type to infer the extension from.
//
// Returns the inferred extension, or empty string for types that are not accepted as images.
func InferExtensionFromContentType(contentType string) string {
	contentTypeMap := map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}

	if ext, ok := contentTypeMap[contentType]; ok {
		return ext
	}
	return ""
}
