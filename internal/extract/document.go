// Package extract pulls plain text out of document files. PDF and DOCX
// go through pdftotext and pandoc subprocesses; TXT is read directly.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	multiBlank = regexp.MustCompile(`\n\s*\n\s*\n+`)
	multiSpace = regexp.MustCompile(`[ \t]+`)
)

// Text extracts the text content of a document, dispatching on the
// file extension.
func Text(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return fromPDF(ctx, path)
	case ".docx":
		return fromDocx(ctx, path)
	case ".txt":
		return fromTxt(path)
	default:
		return "", fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

// fromPDF shells out to pdftotext with layout preservation disabled.
func fromPDF(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-enc", "UTF-8", path, "-")

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return clean(string(output)), nil
}

// fromDocx converts the document to plain text via pandoc.
func fromDocx(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pandoc", "-f", "docx", "-t", "plain", path)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pandoc failed: %w", err)
	}
	return clean(string(output)), nil
}

// fromTxt reads a text file, tolerating non-UTF8 encodings by dropping
// invalid bytes rather than failing the whole file.
func fromTxt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}

	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return clean(text), nil
}

// clean collapses runs of whitespace left behind by extraction.
func clean(text string) string {
	text = multiBlank.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
