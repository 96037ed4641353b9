// Package markup sanitizes post HTML, renders comment Markdown and derives slugs and summaries.
package markup

import (
	"bytes"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SummaryLength is the length in runes of an auto-derived summary
const SummaryLength = 200

var (
	// Policies are safe for concurrent use once built
	ugcPolicy    = newUGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()

	commentMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	// Rich-text editor alignment classes
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "span", "pre", "code", "blockquote")
	return p
}

// SanitizeHTML removes scripts, event handlers and other unsafe markup from editor HTML
func SanitizeHTML(s string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

// PlainText strips all markup and collapses whitespace
func PlainText(s string) string {
	// Keep words of adjacent block elements apart
	s = strings.ReplaceAll(s, "<", " <")
	text := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// Summarize derives a plain-text summary of at most maxRunes runes, cut at a word boundary
func Summarize(s string, maxRunes int) string {
	text := PlainText(s)
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	cut := []rune(text)[:maxRunes]
	if i := lastSpace(cut); i > maxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "..."
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

// RenderComment converts comment Markdown to sanitized HTML. Raw HTML in the input is dropped.
func RenderComment(text string) (string, error) {
	var buf bytes.Buffer
	if err := commentMarkdown.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(ugcPolicy.Sanitize(buf.String())), nil
}

// Slugify derives a URL slug from a name: diacritics are removed, letters lowercased
// and runs of other characters replaced by a single hyphen.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
