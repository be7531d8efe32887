package services

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// SupportedExtensions lists the upload formats text can be extracted from.
var SupportedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// ExtractTextFromPath dispatches on the file extension and returns
// whitespace-normalized plain text.
func (s *FileExtractService) ExtractTextFromPath(path string) (string, error) {
	var (
		raw string
		err error
	)

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		raw, err = readPlain(path)
	case ".pdf":
		raw, err = readPDF(path)
	case ".docx":
		raw, err = readDOCX(path)
	default:
		return "", fmt.Errorf("unsupported file type for text extraction: %q", ext)
	}
	if err != nil {
		return "", err
	}

	text := normalizeExtractedText(raw)
	if text == "" {
		return "", fmt.Errorf("no extractable text found in %s", strings.TrimPrefix(ext, "."))
	}
	return text, nil
}

func readPlain(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// A page that fails to decode is skipped, the rest of the document still counts.
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func readDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		body, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return stripDOCXML(string(body)), nil
	}
	return "", fmt.Errorf("docx document.xml not found")
}

var (
	xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

	docxBreaks = strings.NewReplacer(
		"</w:p>", "\n\n",
		"<w:br/>", "\n",
		"<w:br />", "\n",
		"<w:tab/>", "\t",
	)
	xmlEntities = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

func stripDOCXML(s string) string {
	s = docxBreaks.Replace(s)
	s = xmlTagPattern.ReplaceAllString(s, "")
	return xmlEntities.Replace(s)
}

// normalizeExtractedText trims every line and collapses runs of blank lines
// into a single paragraph break.
func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			if blank == 1 {
				b.WriteString("\n")
			}
			continue
		}
		blank = 0
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
