package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tenderworks/boqd/internal/document"
)

// XLSXParser handles Excel workbooks. Sheets that look tabular become
// structured tables; anything else is kept as text.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*document.ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	result := &document.ParseResult{Title: titleFromFilename(filename)}

	sheets := f.GetSheetList()
	result.PageCount = len(sheets)

	for idx, sheet := range sheets {
		raw, err := f.GetRows(sheet)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}

		rows := make([][]string, 0, len(raw))
		for _, row := range raw {
			cleaned := make([]string, len(row))
			empty := true
			for i, cell := range row {
				cleaned[i] = strings.TrimSpace(cell)
				if cleaned[i] != "" {
					empty = false
				}
			}
			if !empty {
				rows = append(rows, cleaned)
			}
		}
		if len(rows) == 0 {
			continue
		}

		if looksTabular(rows) {
			result.Tables = append(result.Tables, document.Table{
				Headers:    padRows(rows)[0],
				Rows:       padRows(rows)[1:],
				PageNumber: idx + 1,
				Confidence: 1.0,
			})
			continue
		}

		var text strings.Builder
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			text.WriteString(strings.Join(cells, " | "))
			text.WriteString("\n")
		}
		result.AddFragment(text.String(), idx+1, sheet, 1.0)
	}

	return result, nil
}

// looksTabular decides whether rows form a header-plus-data table, as
// opposed to free text laid out in a sheet.
func looksTabular(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}

	var headerLen, headerCells int
	for _, cell := range rows[0] {
		if cell != "" {
			headerLen += len(cell)
			headerCells++
		}
	}
	if headerCells == 0 {
		return false
	}
	avgHeaderLen := float64(headerLen) / float64(headerCells)

	var filled int
	for _, row := range rows[1:] {
		for _, cell := range row {
			if cell != "" {
				filled++
			}
		}
	}
	avgCols := float64(filled) / float64(len(rows)-1)

	return avgCols >= 2 && avgHeaderLen < 100
}

// padRows normalizes every row to the widest column count.
func padRows(rows [][]string) [][]string {
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, maxCols)
		copy(padded, row)
		out[i] = padded
	}
	return out
}
