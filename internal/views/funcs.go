package views

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bloghut/backend/internal/markup"
	"github.com/bloghut/backend/internal/models"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"csrf":        CSRFField,
		"date":        FormatDate,
		"datetime":    FormatDateTime,
		"postHTML":    PostHTML,
		"commentHTML": CommentHTML,
		"paginate":    Paginate,
		"upload":      UploadURL,
		"initial":     Initial,
		"deref":       deref,
		"hasReaction": hasReaction,
	}
}

// CSRFField returns the hidden form input carrying the session token
func CSRFField(token string) template.HTML {
	return template.HTML(`<input type="hidden" name="csrf_token" value="` + template.HTMLEscapeString(token) + `">`)
}

// FormatDate formats a date like "Mar 5, 2024"
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// FormatDateTime formats a timestamp like "Mar 5, 2024 14:07"
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 15:04")
}

// PostHTML sanitizes stored post content for output
func PostHTML(content string) template.HTML {
	return template.HTML(markup.SanitizeHTML(content))
}

// CommentHTML renders comment Markdown, falling back to escaped text
func CommentHTML(text string) template.HTML {
	html, err := markup.RenderComment(text)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(html)
}

// UploadURL returns the public URL of an uploaded image
func UploadURL(mediaType models.MediaType, filename string) string {
	if filename == "" {
		return ""
	}
	return "/uploads/" + string(mediaType) + "/" + url.PathEscape(filename)
}

// Initial returns the upper-cased first letter of a name, used as avatar placeholder
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// PageURL returns path with the query kept and the page replaced
func PageURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	if encoded := q.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

// Paginate renders the page links of a listing; nothing for a single page
func Paginate(path string, query url.Values, p models.Pagination) template.HTML {
	if p.TotalPages <= 1 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<nav class="pagination" aria-label="Pagination">`)
	if p.HasPrev() {
		fmt.Fprintf(&b, `<a class="page-link" href="%s" rel="prev">&laquo; Previous</a>`,
			template.HTMLEscapeString(PageURL(path, query, p.Page-1)))
	}
	for _, n := range p.Pages() {
		if n == p.Page {
			fmt.Fprintf(&b, `<span class="page-link current" aria-current="page">%d</span>`, n)
			continue
		}
		fmt.Fprintf(&b, `<a class="page-link" href="%s">%d</a>`,
			template.HTMLEscapeString(PageURL(path, query, n)), n)
	}
	if p.HasNext() {
		fmt.Fprintf(&b, `<a class="page-link" href="%s" rel="next">Next &raquo;</a>`,
			template.HTMLEscapeString(PageURL(path, query, p.Page+1)))
	}
	b.WriteString(`</nav>`)
	return template.HTML(b.String())
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func hasReaction(state models.ReactionState, t string) bool {
	return state.UserReaction != nil && string(*state.UserReaction) == t
}
