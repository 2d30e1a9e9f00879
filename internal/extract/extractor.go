// Package extract provides text extraction for the supported document formats.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/docufind/internal/models"
)

// TextExtractor returns the plain text of a document file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Returns an error if the file cannot be read, the format is unsupported or
// ctx is done before extraction finishes.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(ctx, content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(ctx context.Context, content []byte, ext string) (string, error) {
	docType, ok := models.DocTypeFromPath("x" + ext)
	if !ok {
		return "", fmt.Errorf("unsupported extension: %q", ext)
	}
	switch docType {
	case models.DocTypePDF:
		return extractPDF(ctx, content)
	case models.DocTypeDOCX:
		return extractDOCX(content)
	case models.DocTypeHTML:
		return extractHTML(content)
	default:
		return extractPlain(content)
	}
}
