// ABOUTME: File-ingestion adapter turning uploaded files into (name, text, format) documents
// ABOUTME: Handles plain text, Markdown, PDF, and DOCX; images and unknown formats are rejected
package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/harper/study-standalone/internal/models"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// maxFileSize caps a single upload
const maxFileSize = 50 * 1024 * 1024

// FormatFor maps a file extension to a format tag
func FormatFor(name string) (models.FormatTag, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		return models.FormatText, true
	case ".md", ".markdown":
		return models.FormatMarkdown, true
	case ".pdf":
		return models.FormatPDF, true
	case ".docx":
		return models.FormatDOCX, true
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return models.FormatImage, true
	}
	return "", false
}

// File reads the file at path and extracts its text
func File(path string) (models.Document, error) {
	name := filepath.Base(path)
	format, ok := FormatFor(name)
	if !ok {
		return models.Document{}, &models.UnsupportedFormatError{Document: name, Format: strings.TrimPrefix(filepath.Ext(name), ".")}
	}
	if format == models.FormatImage {
		// image text would need OCR
		return models.Document{}, &models.UnsupportedFormatError{Document: name, Format: string(format)}
	}

	info, err := os.Stat(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.Size() > maxFileSize {
		return models.Document{}, fmt.Errorf("%s exceeds %d bytes", name, maxFileSize)
	}

	var body string
	switch format {
	case models.FormatText, models.FormatMarkdown:
		data, err := os.ReadFile(path)
		if err != nil {
			return models.Document{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return Text(name, data)
	case models.FormatPDF:
		body, err = pdfText(path)
	case models.FormatDOCX:
		body, err = docxText(path)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to extract text from %s: %w", name, err)
	}
	return models.NewDocument(name, body, format)
}

// Text builds a document from an in-memory text or Markdown upload
func Text(name string, data []byte) (models.Document, error) {
	format, ok := FormatFor(name)
	if !ok {
		format = models.FormatText
	}
	switch format {
	case models.FormatText:
	case models.FormatMarkdown:
		data = []byte(markdownText(data))
	default:
		return models.Document{}, &models.UnsupportedFormatError{Document: name, Format: string(format)}
	}
	if !utf8.Valid(data) {
		return models.Document{}, fmt.Errorf("%s is not valid UTF-8 text", name)
	}
	return models.NewDocument(name, string(data), format)
}

// markdownText renders Markdown to plain text, one blank line between blocks
func markdownText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
			b.WriteString("\n\n")
		default:
			if !entering && n.Type() == ast.TypeBlock {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return buf.String(), nil
}

func docxText(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer func() { _ = r.Close() }()

	return wordprocessingText(r.Editable().GetContent())
}

// wordprocessingText pulls the visible text out of a WordprocessingML body
func wordprocessingText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
