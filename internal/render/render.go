// Package render produces result artifacts in the requested output
// formats. Text and markdown are rendered in-process; word and pdf go
// through pandoc. Every format is independently failable.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// Metadata is the header information prepended to rendered documents.
type Metadata struct {
	SourceName string
	Language   string
	CreatedAt  time.Time
}

// Render converts text into the requested format and returns the
// artifact bytes.
func Render(ctx context.Context, text string, format types.OutputFormat, meta Metadata) ([]byte, error) {
	switch format {
	case types.FormatText:
		return []byte(asText(text, meta)), nil
	case types.FormatMarkdown:
		return []byte(asMarkdown(text, meta)), nil
	case types.FormatWord:
		return viaPandoc(ctx, asMarkdown(text, meta), "docx")
	case types.FormatPDF:
		return viaPandoc(ctx, asMarkdown(text, meta), "pdf")
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// asText formats content as plain text with a detail header.
func asText(content string, meta Metadata) string {
	var b strings.Builder

	b.WriteString("=== TRANSCRIPTION DETAILS ===\n")
	if meta.SourceName != "" {
		fmt.Fprintf(&b, "Source: %s\n", meta.SourceName)
	}
	if meta.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", meta.Language)
	}
	if !meta.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Processed: %s\n", meta.CreatedAt.Format(time.RFC3339))
	}
	b.WriteString(strings.Repeat("=", 30))
	b.WriteString("\n\n")
	b.WriteString(content)

	return b.String()
}

// asMarkdown formats content as markdown with a metadata block and
// normalized paragraphs.
func asMarkdown(content string, meta Metadata) string {
	var b strings.Builder

	b.WriteString("# Transcription Details\n\n")
	if meta.SourceName != "" {
		fmt.Fprintf(&b, "**Source:** %s\n\n", meta.SourceName)
	}
	if meta.Language != "" {
		fmt.Fprintf(&b, "**Language:** %s\n\n", meta.Language)
	}
	if !meta.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "**Processed:** %s\n\n", meta.CreatedAt.Format(time.RFC3339))
	}
	b.WriteString("---\n\n## Transcription\n\n")

	paragraphs := strings.Split(content, "\n\n")
	cleaned := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		if p := strings.Join(strings.Fields(para), " "); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	b.WriteString(strings.Join(cleaned, "\n\n"))

	return b.String()
}

// viaPandoc writes the markdown to a temp file and converts it to the
// target extension with pandoc.
func viaPandoc(ctx context.Context, markdown, ext string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "render")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input.md")
	outPath := filepath.Join(dir, "output."+ext)

	if err := os.WriteFile(inPath, []byte(markdown), 0644); err != nil {
		return nil, fmt.Errorf("failed to write render input: %w", err)
	}

	cmd := exec.CommandContext(ctx, "pandoc", "-f", "markdown", inPath, "-o", outPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pandoc failed: %w\nOutput: %s", err, string(output))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered artifact: %w", err)
	}
	return data, nil
}
