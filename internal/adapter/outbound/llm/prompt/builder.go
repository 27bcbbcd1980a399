package prompt

import (
	"bytes"
	"embed"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultCharLimit is the number of characters of document text embedded in
// the analysis prompt.
const DefaultCharLimit = 12000

// Builder constructs prompts for report analysis.
type Builder struct {
	templates *template.Template
	charLimit int
}

// NewBuilder parses all embedded templates and returns a Builder that embeds
// at most charLimit characters of text. A non-positive limit uses
// DefaultCharLimit.
func NewBuilder(charLimit int) (*Builder, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	if charLimit <= 0 {
		charLimit = DefaultCharLimit
	}
	return &Builder{templates: tmpl, charLimit: charLimit}, nil
}

// AnalysisInput holds data for the analysis prompt template.
type AnalysisInput struct {
	Text      string
	Limit     int
	Truncated bool
}

// BuildAnalysisPrompt renders the analysis template around text.
func (b *Builder) BuildAnalysisPrompt(text string) (string, error) {
	head, truncated := truncateRunes(text, b.charLimit)
	return b.render("analysis.tmpl", AnalysisInput{Text: head, Limit: b.charLimit, Truncated: truncated})
}

// SystemPrompt renders the system instructions for engines with a system role.
func (b *Builder) SystemPrompt() (string, error) {
	out, err := b.render("system.tmpl", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (b *Builder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
