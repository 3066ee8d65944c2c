package pipeline

import (
	"testing"

	"github.com/tenderworks/boqd/internal/document"
)

func TestMapColumns(t *testing.T) {
	cols := mapColumns([]string{"Item No.", "Description of Work", "Unit", "Qty", "Rate", "Amount"})

	if cols.itemNumber != 0 {
		t.Errorf("itemNumber = %d, want 0", cols.itemNumber)
	}
	if cols.description != 1 {
		t.Errorf("description = %d, want 1", cols.description)
	}
	if cols.unit != 2 {
		t.Errorf("unit = %d, want 2", cols.unit)
	}
	if cols.quantity != 3 {
		t.Errorf("quantity = %d, want 3", cols.quantity)
	}
	if cols.rate != 4 {
		t.Errorf("rate = %d, want 4", cols.rate)
	}
	if cols.amount != 5 {
		t.Errorf("amount = %d, want 5", cols.amount)
	}
}

func TestMapColumnsVariants(t *testing.T) {
	cols := mapColumns([]string{"Ref", "Particulars", "UOM", "Quantity", "Unit Price", "Total Value"})

	if cols.itemNumber != 0 || cols.description != 1 || cols.unit != 2 {
		t.Errorf("unexpected mapping %+v", cols)
	}
	if cols.quantity != 3 || cols.rate != 4 || cols.amount != 5 {
		t.Errorf("unexpected mapping %+v", cols)
	}
}

func TestMapColumnsUnitPriceWithoutUnitColumn(t *testing.T) {
	cols := mapColumns([]string{"Description", "Unit Price"})

	if cols.rate != 1 {
		t.Errorf("expected Unit Price to map to rate, got %+v", cols)
	}
	if cols.unit != -1 {
		t.Errorf("expected no unit column, got %d", cols.unit)
	}
}

func TestMapColumnsUnrecognized(t *testing.T) {
	cols := mapColumns([]string{"Notes", "Remarks"})

	if cols.description != -1 || cols.quantity != -1 || cols.rate != -1 {
		t.Errorf("expected all unmatched, got %+v", cols)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,250.50", 1250.50, true},
		{"$45", 45, true},
		{"£ 3 200", 3200, true},
		{"12.5", 12.5, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"-", 0, false},
	}

	for _, tt := range tests {
		got := parseNumber(tt.in)
		if tt.ok {
			if got == nil {
				t.Errorf("parseNumber(%q) = nil, want %v", tt.in, tt.want)
			} else if *got != tt.want {
				t.Errorf("parseNumber(%q) = %v, want %v", tt.in, *got, tt.want)
			}
		} else if got != nil {
			t.Errorf("parseNumber(%q) = %v, want nil", tt.in, *got)
		}
	}
}

func TestCellAt(t *testing.T) {
	row := []string{"a", "b"}
	if got := cellAt(row, 1); got != "b" {
		t.Errorf("cellAt(1) = %q", got)
	}
	if got := cellAt(row, -1); got != "" {
		t.Errorf("cellAt(-1) = %q", got)
	}
	if got := cellAt(row, 5); got != "" {
		t.Errorf("cellAt(5) = %q", got)
	}
}

func TestConvertTables(t *testing.T) {
	w := &Worker{}
	tables := []document.Table{
		{
			Headers:    []string{"Item", "Description", "Unit", "Qty", "Rate", "Amount"},
			PageNumber: 3,
			Confidence: 0.95,
			Rows: [][]string{
				{"3.1", "Excavation for foundations", "m3", "120", "25.00", "3,000.00"},
				{"3.2", "Backfill and compaction", "m3", "80", "", ""},
				{"", "", "", "", "", ""},
			},
		},
	}

	result := w.convertTables(tables)

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	first := result.Items[0]
	if first.ItemNumber != "3.1" || first.Description != "Excavation for foundations" {
		t.Errorf("unexpected first item %+v", first)
	}
	if first.Quantity == nil || *first.Quantity != 120 {
		t.Errorf("quantity not parsed: %+v", first.Quantity)
	}
	if first.Amount == nil || *first.Amount != 3000 {
		t.Errorf("amount not parsed: %+v", first.Amount)
	}
	if first.Confidence != 0.95 {
		t.Errorf("confidence = %v, want table confidence", first.Confidence)
	}
	if first.SourcePage != 3 {
		t.Errorf("source page = %d, want 3", first.SourcePage)
	}
	second := result.Items[1]
	if second.Rate != nil {
		t.Errorf("expected nil rate for blank cell, got %v", *second.Rate)
	}
	if result.SuccessfulChunks != 1 || result.FailedChunks != 0 {
		t.Errorf("chunk counts = %d/%d", result.SuccessfulChunks, result.FailedChunks)
	}
}

func TestConvertTablesNoDescriptionColumn(t *testing.T) {
	w := &Worker{}
	tables := []document.Table{
		{Headers: []string{"Code", "Qty"}, Rows: [][]string{{"1", "5"}}},
	}

	result := w.convertTables(tables)

	if len(result.Items) != 0 {
		t.Errorf("expected no items, got %d", len(result.Items))
	}
	if result.FailedChunks != 1 {
		t.Errorf("FailedChunks = %d, want 1", result.FailedChunks)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected a recorded error, got %v", result.Errors)
	}
}
