package utils

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts generated Markdown text to HTML.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
