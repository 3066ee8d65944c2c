package document

import "strings"

// Fragment is a block of extracted text with its source location.
type Fragment struct {
	Text         string  `json:"text"`
	PageNumber   int     `json:"page_number,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Table is a tabular region extracted from a document.
type Table struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	PageNumber int        `json:"page_number,omitempty"`
	Confidence float64    `json:"confidence"`
}

// ParseResult is everything a parser pulled out of one file.
// Errors and warnings are accumulated rather than raised so a batch
// always produces a best-effort result.
type ParseResult struct {
	Title     string     `json:"title"`
	Fragments []Fragment `json:"fragments"`
	Tables    []Table    `json:"tables"`
	PageCount int        `json:"page_count"`
	OCRUsed   bool       `json:"ocr_used"`
	Errors    []string   `json:"errors,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// AddFragment appends a fragment, dropping whitespace-only text.
func (r *ParseResult) AddFragment(text string, page int, section string, confidence float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	r.Fragments = append(r.Fragments, Fragment{
		Text:         text,
		PageNumber:   page,
		SectionTitle: section,
		Confidence:   confidence,
	})
}

// Text joins all fragment text in document order.
func (r *ParseResult) Text() string {
	var sb strings.Builder
	for _, f := range r.Fragments {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// CellText flattens headers plus the first n rows into one string,
// used by the table classifier.
func (t *Table) CellText(maxRows int) string {
	parts := make([]string, 0, len(t.Headers))
	parts = append(parts, t.Headers...)
	for i, row := range t.Rows {
		if i >= maxRows {
			break
		}
		parts = append(parts, row...)
	}
	return strings.Join(parts, " ")
}
