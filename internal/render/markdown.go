// Package render converts cached markdown reports to HTML.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Reports use GFM tables and fenced code. Single newlines become <br>.
// Raw HTML in generated text is not passed through.
var converter = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders text to HTML safe for direct template output
func Markdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
