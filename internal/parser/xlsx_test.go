package parser

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestXLSXParser_TabularSheet(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"Item", "Description", "Qty", "Unit", "Rate"},
		{"1.1", "Excavation", 100, "m3", 12.5},
		{"1.2", "Backfill", 80, "m3", 8},
	})

	p := &XLSXParser{}
	result, err := p.Parse(bytes.NewReader(data), "boq.xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", result.PageCount)
	}
	if len(result.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(result.Tables))
	}
	tbl := result.Tables[0]
	if tbl.Headers[0] != "Item" || len(tbl.Rows) != 2 {
		t.Errorf("unexpected table: headers=%v rows=%v", tbl.Headers, tbl.Rows)
	}
	if tbl.Rows[0][1] != "Excavation" {
		t.Errorf("rows[0][1] = %q", tbl.Rows[0][1])
	}
}

func TestXLSXParser_FreeTextSheet(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"This workbook contains the general conditions of contract for the project."},
		{"All rates shall remain fixed for the duration of the works."},
	})

	p := &XLSXParser{}
	result, err := p.Parse(bytes.NewReader(data), "conditions.xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tables) != 0 {
		t.Fatalf("expected no tables for single-column prose, got %d", len(result.Tables))
	}
	if len(result.Fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(result.Fragments))
	}
	if result.Fragments[0].SectionTitle != "Sheet1" {
		t.Errorf("section = %q, want sheet name", result.Fragments[0].SectionTitle)
	}
}

func TestXLSXParser_CorruptInput(t *testing.T) {
	p := &XLSXParser{}
	if _, err := p.Parse(bytes.NewReader([]byte("not a workbook")), "bad.xlsx"); err == nil {
		t.Fatal("expected error for corrupt input")
	}
}

func TestLooksTabular(t *testing.T) {
	if looksTabular([][]string{{"only one row"}}) {
		t.Error("single row should not be tabular")
	}
	if !looksTabular([][]string{{"A", "B"}, {"1", "2"}, {"3", "4"}}) {
		t.Error("header plus data rows should be tabular")
	}
	if looksTabular([][]string{{"prose line one"}, {"prose line two"}}) {
		t.Error("single-column prose should not be tabular")
	}
}
