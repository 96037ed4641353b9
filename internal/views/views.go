// Package views renders the HTML pages from the embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"go.uber.org/zap"
)

//go:embed templates static
var files embed.FS

// Page is the data handed to every template
type Page struct {
	Title   string
	Viewer  models.Viewer
	Flashes []session.Flash
	// Inline validation messages of the submitted form
	Errors []string
	Path   string
	Query  url.Values
	Data   any

	sess *session.Session
}

// NewPage builds the page model of a request and takes the pending flashes of its session
func NewPage(r *http.Request, title string, data any) *Page {
	sess := session.FromContext(r.Context())
	return &Page{
		Title:   title,
		Viewer:  sess.Viewer(),
		Flashes: sess.Flashes(),
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Data:    data,
		sess:    sess,
	}
}

// CSRFToken returns the session token. Only pages with forms create one.
func (p *Page) CSRFToken() string {
	if p.sess == nil {
		return ""
	}
	return p.sess.CSRFToken()
}

// Renderer executes the page templates inside the shared layout
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

// New parses the layout, the partials and every page template
func New(logger *zap.Logger) (*Renderer, error) {
	pageFiles, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list page templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).Funcs(funcMap()).ParseFS(files,
			"templates/layout.html",
			"templates/partials/*.html",
			file,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Has reports whether a page template exists
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render writes the named page with the given status.
// The page is buffered so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page *Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown page template", zap.String("page", name))
		http.Error(w, "An error occurred", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "An error occurred", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("failed to write page", zap.Error(err))
	}
}

// StaticHandler serves the stylesheets and scripts
func StaticHandler() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
