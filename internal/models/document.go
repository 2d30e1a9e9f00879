// Package models defines core data structures for documents, term frequencies, queries, and search results.
package models

import (
	"path/filepath"
	"strings"
)

// DocType is the source format of an ingested document.
type DocType string

const (
	DocTypeText DocType = "text"
	DocTypeDOCX DocType = "docx"
	DocTypePDF  DocType = "pdf"
	DocTypeHTML DocType = "html"
)

// DocTypeFromPath returns the document type for a file path based on its extension.
// The second return value is false for unsupported extensions.
func DocTypeFromPath(path string) (DocType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return DocTypeText, true
	case ".docx":
		return DocTypeDOCX, true
	case ".pdf":
		return DocTypePDF, true
	case ".html", ".htm":
		return DocTypeHTML, true
	default:
		return "", false
	}
}

// Document is an ingested file and its extracted text.
// Filename is unique across the corpus.
type Document struct {
	ID       int64   `json:"id" db:"id"`
	Filename string  `json:"filename" db:"filename"`
	Type     DocType `json:"type" db:"filetype"`
	Content  string  `json:"content,omitempty" db:"content"`
}

// TermFrequency is the number of times a term occurs in one document.
type TermFrequency struct {
	DocumentID int64  `json:"document_id" db:"document_id"`
	Term       string `json:"term" db:"term"`
	Count      int    `json:"count" db:"count"`
}

// IndexedDocument is a document together with its term counts, as written by a (re-)index.
type IndexedDocument struct {
	Document *Document
	Terms    map[string]int
}

// TermCount pairs a term with an aggregated count.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}
