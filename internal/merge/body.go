package merge

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
)

// BodyRenderer converts a rendered markdown body to HTML. Implementations
// must not fail; a renderer problem degrades to plain-text output, it never
// aborts a dispatch.
type BodyRenderer interface {
	Render(markdown string) string
}

// Markdown renders bodies with goldmark, falling back to the raw text
// wrapped in a single paragraph when conversion fails.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the default body renderer.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New()}
}

func (m *Markdown) Render(markdown string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(markdown), &buf); err != nil {
		return "<p>" + html.EscapeString(markdown) + "</p>"
	}
	return buf.String()
}
