package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tenderworks/boqd/internal/document"
)

// Parser converts raw document bytes into a ParseResult.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.ParseResult, error)
}

// Options carries per-format tuning shared by the parsers that need it.
type Options struct {
	// MinPageTextChars is the threshold below which a PDF page is
	// treated as scanned and sent through OCR.
	MinPageTextChars int
	OCREnabled       bool
	OCRLanguage      string
	OCRDPI           int
	// FallbackPdftotext allows shelling out to pdftotext when the Go
	// PDF library cannot read a file.
	FallbackPdftotext bool
}

func (o Options) withDefaults() Options {
	if o.MinPageTextChars <= 0 {
		o.MinPageTextChars = 50
	}
	if o.OCRLanguage == "" {
		o.OCRLanguage = "eng"
	}
	if o.OCRDPI <= 0 {
		o.OCRDPI = 300
	}
	return o
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
	".png":      true,
	".jpg":      true,
	".jpeg":     true,
	".tiff":     true,
	".tif":      true,
	".bmp":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	opts = opts.withDefaults()
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{opts: opts}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".xlsx":
		return &XLSXParser{}, nil
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp":
		return &ImageParser{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
