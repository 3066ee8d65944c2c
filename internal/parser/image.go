package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tenderworks/boqd/internal/document"
)

// ImageParser handles scanned drawings and photos through OCR.
type ImageParser struct {
	opts Options
}

func (p *ImageParser) Parse(r io.Reader, filename string) (*document.ParseResult, error) {
	if !p.opts.OCREnabled {
		return nil, fmt.Errorf("ocr disabled, cannot parse image %s", filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp("", "boqd-img-*"+ext)
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

	text, conf, err := ocrImage(tmpPath, p.opts.OCRLanguage)
	if err != nil {
		return nil, fmt.Errorf("ocr image: %w", err)
	}

	result := &document.ParseResult{
		Title:     titleFromFilename(filename),
		PageCount: 1,
		OCRUsed:   true,
	}
	if strings.TrimSpace(text) == "" {
		result.Warnings = append(result.Warnings, "no readable text found in image")
		return result, nil
	}
	if conf < lowOCRConfidence {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("low OCR confidence (%.1f%%)", conf))
	}
	result.AddFragment(text, 1, "", conf/100)
	return result, nil
}
