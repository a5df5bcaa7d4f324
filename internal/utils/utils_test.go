package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsc.io/pdf"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Title\n\n1. first\n2. second\n")
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<li>first</li>")
}

func TestExtractPDFText_Invalid(t *testing.T) {
	_, err := ExtractPDFText([]byte("definitely not a pdf"))
	require.Error(t, err)

	_, err = ExtractPDFText(nil)
	require.Error(t, err)
}

func TestExtractPDFText(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{name: "font with widths", fixture: "resume.pdf"},
		{name: "standard font without widths", fixture: "resume_no_widths.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", tt.fixture))
			require.NoError(t, err)

			text, err := ExtractPDFText(data)
			require.NoError(t, err)
			assert.Equal(t, "Jane Doe Senior Engineer\nGo Kubernetes\nRemote friendly", text)
		})
	}
}

func TestHasGlyphWidths(t *testing.T) {
	assert.True(t, hasGlyphWidths(nil))
	assert.False(t, hasGlyphWidths([]pdf.Text{{S: "J", FontSize: 12}, {S: "a", FontSize: 12}}))
	assert.True(t, hasGlyphWidths([]pdf.Text{{S: "J", W: 6}, {S: "a"}}))
}

func TestWritePageText(t *testing.T) {
	runs := []pdf.Text{
		{S: "Jane", X: 10, Y: 700, W: 20, FontSize: 12},
		{S: "Doe", X: 34, Y: 700, W: 15, FontSize: 12},
		{S: "Go", X: 10, Y: 680, W: 10, FontSize: 12},
		{S: "pher", X: 20, Y: 680, W: 20, FontSize: 12},
	}

	var sb strings.Builder
	writePageText(&sb, runs)
	assert.Equal(t, "Jane Doe\nGopher", sb.String())
}
