package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/tenderworks/boqd/internal/document"
)

const lowOCRConfidence = 60.0

// PDFParser handles PDF files. It tries the Go library first, falls
// back to pdftotext if allowed, and sends pages with too little text
// through OCR when enabled.
type PDFParser struct {
	opts Options
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*document.ParseResult, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "boqd-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	result := &document.ParseResult{Title: titleFromFilename(filename)}

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.opts.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	result.PageCount = len(pages)

	for i, page := range pages {
		pageNum := i + 1
		text := strings.TrimSpace(page)

		if len(text) >= p.opts.MinPageTextChars || !p.opts.OCREnabled {
			result.AddFragment(text, pageNum, "", 1.0)
			continue
		}

		ocrText, conf, ocrErr := p.ocrPage(tmpPath, pageNum)
		if ocrErr != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("page %d: ocr failed: %v", pageNum, ocrErr))
			result.AddFragment(text, pageNum, "", 1.0)
			continue
		}
		result.OCRUsed = true
		if conf < lowOCRConfidence {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("page %d: low OCR confidence (%.1f%%)", pageNum, conf))
		}
		result.AddFragment(ocrText, pageNum, "", conf/100)
	}

	return result, nil
}

func (p *PDFParser) ocrPage(pdfPath string, page int) (string, float64, error) {
	imgPath, cleanup, err := renderPDFPage(pdfPath, page, p.opts.OCRDPI)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()
	return ocrImage(imgPath, p.opts.OCRLanguage)
}

// extractPDFPages returns the plain text of every page, index 0 being
// page 1. Unreadable pages come back empty rather than failing the file.
func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}
