// ABOUTME: Document represents one uploaded study file after text extraction
// ABOUTME: Immutable once created; the session owns every document it ingests
package models

import (
	"errors"
	"strings"
)

// FormatTag identifies the file format a document's text was extracted from
type FormatTag string

const (
	FormatText     FormatTag = "txt"
	FormatMarkdown FormatTag = "markdown"
	FormatPDF      FormatTag = "pdf"
	FormatDOCX     FormatTag = "docx"
	FormatImage    FormatTag = "image"
)

// Document is a named unit of uploaded material
type Document struct {
	Name   string    `json:"name"`
	Text   string    `json:"text"`
	Format FormatTag `json:"format"`
}

// NewDocument creates a Document from the ingestion layer's (filename, text, format) triple
func NewDocument(name, text string, format FormatTag) (Document, error) {
	if strings.TrimSpace(name) == "" {
		return Document{}, errors.New("document name cannot be empty")
	}
	return Document{Name: name, Text: text, Format: format}, nil
}
