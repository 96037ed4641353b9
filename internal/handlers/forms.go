package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// maxFormMemory is the part of a multipart form kept in memory; the rest spills to disk
const maxFormMemory = 8 << 20

// urlID parses a positive integer URL parameter
func urlID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, models.ErrNotFound)
	}
	return id, nil
}

// queryInt parses an integer query parameter, returning def when missing or invalid
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// formUpload returns the image of a multipart field, nil when no file was chosen.
// The returned close function must be called once the upload is consumed.
func formUpload(r *http.Request, field string) (*models.Upload, func(), error) {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, models.NewValidationError("The uploaded file could not be read")
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, models.NewValidationError("The uploaded file could not be read")
	}

	return uploadFromFile(file, header), func() { file.Close() }, nil
}

func uploadFromFile(file multipart.File, header *multipart.FileHeader) *models.Upload {
	return &models.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	}
}

// optionalID parses a select value, nil for "" or anything that is not a positive number
func optionalID(value string) *int {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func checked(r *http.Request, name string) bool {
	v := r.FormValue(name)
	return v == "1" || v == "on" || v == "true"
}
