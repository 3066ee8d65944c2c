package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tenderworks/boqd/internal/assemble"
	"github.com/tenderworks/boqd/internal/extract"
)

// Generator produces formatted XLSX workbooks from an assembled BOQ.
type Generator struct {
	template *Template
}

func NewGenerator(tpl *Template) *Generator {
	if tpl == nil {
		tpl = DefaultTemplate()
	}
	return &Generator{template: tpl}
}

type styleSet struct {
	title         int
	subtitle      int
	header        int
	sectionHeader int
	data          int
	dataWrap      int
	currency      int
	number        int
	subtotal      int
	subtotalAmt   int
	total         int
	totalAmt      int
	grand         int
	grandAmt      int
}

// Generate renders the BOQ into workbook bytes.
func (g *Generator) Generate(boq *assemble.BOQ) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := g.template.SheetName
	if sheet == "" {
		sheet = "Bill of Quantities"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	styles, err := g.buildStyles(f)
	if err != nil {
		return nil, fmt.Errorf("build styles: %w", err)
	}

	row := g.writeHeader(f, sheet, boq, styles)
	headerRow := row
	row = g.writeColumnHeaders(f, sheet, row, styles)

	for _, sec := range boq.Sections {
		row = g.writeSection(f, sheet, sec, row, styles)
	}
	if len(boq.Unclassified) > 0 {
		row = g.writeUnclassified(f, sheet, boq.Unclassified, row, styles)
	}

	g.writeTotals(f, sheet, boq, row, styles)

	for i, col := range g.template.Columns {
		letter, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, letter, letter, float64(col.Width))
	}
	_ = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) buildStyles(f *excelize.File) (*styleSet, error) {
	s := &styleSet{}
	currencyFmt := g.template.CurrencySymbol + "#,##0.00"
	thin := []excelize.Border{
		{Type: "left", Style: 1}, {Type: "right", Style: 1},
		{Type: "top", Style: 1}, {Type: "bottom", Style: 1},
	}

	var err error
	set := func(dst *int, style *excelize.Style) {
		if err != nil {
			return
		}
		*dst, err = f.NewStyle(style)
	}

	set(&s.title, &excelize.Style{
		Font:      &excelize.Font{Size: 16, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	set(&s.subtitle, &excelize.Style{Font: &excelize.Font{Size: 12, Bold: true}})
	set(&s.header, &excelize.Style{
		Font:      &excelize.Font{Size: 11, Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thin,
	})
	set(&s.sectionHeader, &excelize.Style{
		Font:   &excelize.Font{Size: 11, Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"D9E2F3"}, Pattern: 1},
		Border: thin,
	})
	set(&s.data, &excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{Vertical: "top"},
		Border:    thin,
	})
	set(&s.dataWrap, &excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thin,
	})
	set(&s.currency, &excelize.Style{
		Font: &excelize.Font{Size: 10}, Border: thin,
		Alignment:    &excelize.Alignment{Vertical: "top"},
		CustomNumFmt: &currencyFmt,
	})
	numberFmt := "#,##0.00"
	set(&s.number, &excelize.Style{
		Font: &excelize.Font{Size: 10}, Border: thin,
		Alignment:    &excelize.Alignment{Vertical: "top"},
		CustomNumFmt: &numberFmt,
	})
	set(&s.subtotal, &excelize.Style{
		Font:   &excelize.Font{Size: 10, Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E2EFDA"}, Pattern: 1},
		Border: thin,
	})
	set(&s.subtotalAmt, &excelize.Style{
		Font:         &excelize.Font{Size: 10, Bold: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"E2EFDA"}, Pattern: 1},
		Border:       thin,
		CustomNumFmt: &currencyFmt,
	})
	medium := []excelize.Border{
		{Type: "left", Style: 2}, {Type: "right", Style: 2},
		{Type: "top", Style: 2}, {Type: "bottom", Style: 2},
	}
	set(&s.total, &excelize.Style{
		Font:   &excelize.Font{Size: 11, Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C6E0B4"}, Pattern: 1},
		Border: medium,
	})
	set(&s.totalAmt, &excelize.Style{
		Font:         &excelize.Font{Size: 11, Bold: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"C6E0B4"}, Pattern: 1},
		Border:       medium,
		CustomNumFmt: &currencyFmt,
	})
	set(&s.grand, &excelize.Style{
		Font:   &excelize.Font{Size: 12, Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"70AD47"}, Pattern: 1},
		Border: medium,
	})
	set(&s.grandAmt, &excelize.Style{
		Font:         &excelize.Font{Size: 12, Bold: true, Color: "FFFFFF"},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"70AD47"}, Pattern: 1},
		Border:       medium,
		CustomNumFmt: &currencyFmt,
	})
	return s, err
}

func (g *Generator) lastColumn() string {
	letter, _ := excelize.ColumnNumberToName(len(g.template.Columns))
	return letter
}

func (g *Generator) writeHeader(f *excelize.File, sheet string, boq *assemble.BOQ, styles *styleSet) int {
	last := g.lastColumn()
	row := 1

	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row))
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "BILL OF QUANTITIES")
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.title)
	row++

	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row))
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Project: "+boq.ProjectName)
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.subtitle)
	row++

	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row))
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Date: "+time.Now().Format("2006-01-02"))
	row += 2

	return row
}

func (g *Generator) writeColumnHeaders(f *excelize.File, sheet string, row int, styles *styleSet) int {
	for i, col := range g.template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, col.Name)
		_ = f.SetCellStyle(sheet, cell, cell, styles.header)
	}
	return row + 1
}

func (g *Generator) writeSection(f *excelize.File, sheet string, sec assemble.Section, row int, styles *styleSet) int {
	last := g.lastColumn()

	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row))
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), sec.Name)
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.sectionHeader)
	row++

	for _, item := range sec.Items {
		row = g.writeItem(f, sheet, item, row, styles)
	}

	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row))
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), sec.Name+" - Subtotal")
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), styles.subtotal)

	amtCell, _ := excelize.CoordinatesToCellName(g.template.amountColumn(), row)
	_ = f.SetCellValue(sheet, amtCell, sec.Subtotal)
	_ = f.SetCellStyle(sheet, amtCell, amtCell, styles.subtotalAmt)

	return row + 2
}

func (g *Generator) writeItem(f *excelize.File, sheet string, item extract.Item, row int, styles *styleSet) int {
	for i, col := range g.template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)

		if col.Type == "formula" && col.Formula != "" {
			formula := strings.ReplaceAll(col.Formula, "{row}", strconv.Itoa(row))
			_ = f.SetCellFormula(sheet, cell, strings.TrimPrefix(formula, "="))
			_ = f.SetCellStyle(sheet, cell, cell, styles.currency)
			continue
		}

		switch col.Name {
		case "Item No.":
			_ = f.SetCellValue(sheet, cell, item.ItemNumber)
		case "Description":
			_ = f.SetCellValue(sheet, cell, item.Description)
		case "Unit":
			_ = f.SetCellValue(sheet, cell, item.Unit)
		case "Quantity":
			if item.Quantity != nil {
				_ = f.SetCellValue(sheet, cell, *item.Quantity)
			}
		case "Rate":
			if item.Rate != nil {
				_ = f.SetCellValue(sheet, cell, *item.Rate)
			}
		case "Amount":
			if total := item.LineTotal(); total != 0 {
				_ = f.SetCellValue(sheet, cell, total)
			}
		}

		switch {
		case col.Type == "currency":
			_ = f.SetCellStyle(sheet, cell, cell, styles.currency)
		case col.Type == "number":
			_ = f.SetCellStyle(sheet, cell, cell, styles.number)
		case col.WrapText:
			_ = f.SetCellStyle(sheet, cell, cell, styles.dataWrap)
		default:
			_ = f.SetCellStyle(sheet, cell, cell, styles.data)
		}
	}
	return row + 1
}

func (g *Generator) writeUnclassified(f *excelize.File, sheet string, items []extract.Item, row int, styles *styleSet) int {
	last := g.lastColumn()

	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row))
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "OTHER ITEMS")
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.sectionHeader)
	row++

	for i, item := range items {
		item.ItemNumber = fmt.Sprintf("X.%d", i+1)
		row = g.writeItem(f, sheet, item, row, styles)
	}
	return row + 1
}

func (g *Generator) writeTotals(f *excelize.File, sheet string, boq *assemble.BOQ, row int, styles *styleSet) {
	amtCol := g.template.amountColumn()

	writeRow := func(label string, value float64, labelStyle, amtStyle int) {
		_ = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row))
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), label)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), labelStyle)

		cell, _ := excelize.CoordinatesToCellName(amtCol, row)
		_ = f.SetCellValue(sheet, cell, value)
		_ = f.SetCellStyle(sheet, cell, cell, amtStyle)
		row++
	}

	writeRow("SUBTOTAL", boq.Subtotal, styles.total, styles.totalAmt)
	writeRow(fmt.Sprintf("Contingency (%g%%)", boq.ContingencyRate), boq.Contingency, styles.subtotal, styles.subtotalAmt)
	writeRow("GRAND TOTAL", boq.GrandTotal, styles.grand, styles.grandAmt)
}
