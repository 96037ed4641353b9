package handlers

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/bloghut/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FileOpener opens stored uploads for reading
type FileOpener interface {
	// Method Open returns the file stored under mediaType; a missing file yields an error matching fs.ErrNotExist.
	Open(id, mediaType string) (io.ReadCloser, error)
}

// MediaHandler serves uploaded images
type MediaHandler struct {
	BaseHandler
	files FileOpener
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(files FileOpener, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler: newBaseHandler(nil, logger),
		files:       files,
	}
}

// RegisterRoutes registers all media handler routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/uploads/{mediaType}/{filename}", h.ServeFile)
}

// ServeFile handles GET /uploads/{mediaType}/{filename}
func (h *MediaHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(chi.URLParam(r, "mediaType"))
	filename := chi.URLParam(r, "filename")
	if !mediaType.IsValid() {
		http.NotFound(w, r)
		return
	}

	file, err := h.files.Open(filename, string(mediaType))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		// invalid names are rejected by the storage before touching the disk
		h.Logger.Warn("failed to open upload", zap.String("media_type", string(mediaType)), zap.String("filename", filename), zap.Error(err))
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	// Stored names are random and never reused
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	modTime := time.Time{}
	if f, ok := file.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			modTime = info.ModTime()
		}
	}

	if seeker, ok := file.(io.ReadSeeker); ok {
		http.ServeContent(w, r, filename, modTime, seeker)
		return
	}

	if _, err := io.Copy(w, file); err != nil {
		h.Logger.Debug("failed to write upload", zap.Error(err))
	}
}
