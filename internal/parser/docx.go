package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/tenderworks/boqd/internal/document"
)

// DOCXParser handles .docx files. Heading paragraphs become section
// titles and word tables are lifted out as structured tables.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*document.ParseResult, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "boqd-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	result := &document.ParseResult{
		Title:     titleFromFilename(filename),
		PageCount: 1,
	}

	currentSection := ""
	var currentText strings.Builder

	flushText := func() {
		result.AddFragment(currentText.String(), 0, currentSection, 1.0)
		currentText.Reset()
	}

	for _, item := range doc.Document.Body.Items {
		switch node := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(node)
			if docxHeadingLevel(node) > 0 && text != "" {
				flushText()
				currentSection = text
				continue
			}
			if text != "" {
				if currentText.Len() > 0 {
					currentText.WriteString("\n\n")
				}
				currentText.WriteString(text)
			}
		case *docx.Table:
			flushText()
			if tbl := docxTable(node); tbl != nil {
				result.Tables = append(result.Tables, *tbl)
			}
		}
	}
	flushText()

	return result, nil
}

func docxTable(table *docx.Table) *document.Table {
	var rows [][]string
	for _, tr := range table.TableRows {
		var cells []string
		empty := true
		for _, tc := range tr.TableCells {
			var cell strings.Builder
			for _, para := range tc.Paragraphs {
				if cell.Len() > 0 {
					cell.WriteString(" ")
				}
				cell.WriteString(docxParagraphText(para))
			}
			text := strings.TrimSpace(cell.String())
			if text != "" {
				empty = false
			}
			cells = append(cells, text)
		}
		if !empty {
			rows = append(rows, cells)
		}
	}
	if len(rows) < 2 {
		return nil
	}
	return &document.Table{
		Headers:    rows[0],
		Rows:       rows[1:],
		Confidence: 1.0,
	}
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for level := 1; level <= 6; level++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", level)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", level)) {
			return level
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
