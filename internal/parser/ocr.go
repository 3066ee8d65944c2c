package parser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ocrImage runs tesseract over an image file and returns the extracted
// text with the mean word confidence in [0,100]. Requires the tesseract
// binary on PATH.
func ocrImage(path, lang string) (string, float64, error) {
	cmd := exec.Command("tesseract", path, "stdout", "-l", lang, "tsv")
	out, err := cmd.Output()
	if err != nil {
		return "", 0, fmt.Errorf("tesseract: %w", err)
	}

	var (
		text  strings.Builder
		total float64
		count int
	)
	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		if i == 0 { // header row
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(word)
		total += conf
		count++
	}

	if count == 0 {
		return "", 0, nil
	}
	return text.String(), total / float64(count), nil
}

// renderPDFPage rasterizes one PDF page to a PNG using pdftoppm and
// returns the image path with a cleanup func.
func renderPDFPage(pdfPath string, page, dpi int) (string, func(), error) {
	dir, err := os.MkdirTemp("", "boqd-ocr-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	prefix := filepath.Join(dir, "page")
	cmd := exec.Command("pdftoppm",
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath, prefix)
	if err := cmd.Run(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm: %w", err)
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return matches[0], cleanup, nil
}
