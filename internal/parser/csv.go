package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tenderworks/boqd/internal/document"
)

// CSVParser handles CSV files. A CSV is treated as one table with the
// first row as headers.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*document.ParseResult, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	result := &document.ParseResult{
		Title:     titleFromFilename(filename),
		PageCount: 1,
	}
	if len(records) == 0 {
		return result, nil
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		cleaned := make([]string, len(record))
		empty := true
		for i, cell := range record {
			cleaned[i] = strings.TrimSpace(cell)
			if cleaned[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, cleaned)
		}
	}

	if len(rows) < 2 {
		// Not enough for headers plus data; keep whatever text there is.
		for _, row := range rows {
			result.AddFragment(strings.Join(row, " | "), 0, "", 1.0)
		}
		return result, nil
	}

	result.Tables = append(result.Tables, document.Table{
		Headers:    rows[0],
		Rows:       rows[1:],
		Confidence: 1.0,
	})
	return result, nil
}
