// Package extract turns document files into plain text for indexing.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// plainExtensions are always indexed. The empty string matches files without an extension.
var plainExtensions = map[string]bool{".txt": true, ".md": true, "": true}

// richExtensions are indexed only when rich document support is enabled.
var richExtensions = map[string]bool{".pdf": true, ".docx": true, ".xlsx": true, ".odt": true, ".rtf": true}

// Extractor extracts plain text from document files.
type Extractor struct {
	rich bool
}

// NewExtractor returns an Extractor. With rich set, PDF and office formats are accepted too.
func NewExtractor(rich bool) *Extractor {
	return &Extractor{rich: rich}
}

// Supports reports whether files at path are eligible for indexing.
func (e *Extractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return plainExtensions[ext] || (e.rich && richExtensions[ext])
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Unknown extensions are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractWithCat(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content), nil
	}
}
