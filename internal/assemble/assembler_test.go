package assemble

import (
	"math"
	"testing"

	"github.com/tenderworks/boqd/internal/extract"
)

func fptr(v float64) *float64 { return &v }

func TestAssembleMergesNearDuplicates(t *testing.T) {
	items := []extract.Item{
		{Description: "Supply and install 100m2 of ceramic tiles", Confidence: 0.90},
		{Description: "Supply & install 100 m² of ceramic tile", Confidence: 0.95,
			Quantity: fptr(100), Unit: "m2", Rate: fptr(45)},
	}

	boq := NewAssembler(nil, 0.85).Assemble("Tower A", items, 0)

	if boq.DuplicatesRemoved != 1 {
		t.Fatalf("DuplicatesRemoved = %d, want 1", boq.DuplicatesRemoved)
	}
	if boq.TotalItems != 1 {
		t.Fatalf("TotalItems = %d, want 1", boq.TotalItems)
	}
	if len(boq.Sections) != 1 || boq.Sections[0].ID != "finishes" {
		t.Fatalf("expected a single finishes section, got %+v", boq.Sections)
	}
	item := boq.Sections[0].Items[0]
	if item.Quantity == nil || *item.Quantity != 100 {
		t.Errorf("quantity not backfilled from higher-confidence duplicate: %+v", item.Quantity)
	}
	if item.Unit != "m2" {
		t.Errorf("unit not backfilled: %q", item.Unit)
	}
	if item.Rate == nil || *item.Rate != 45 {
		t.Errorf("rate not backfilled: %+v", item.Rate)
	}
	if item.Confidence != 0.90 {
		t.Errorf("kept item's confidence changed: %v", item.Confidence)
	}
}

func TestAssembleLowerConfidenceDuplicateDoesNotBackfill(t *testing.T) {
	items := []extract.Item{
		{Description: "Supply and install 100m2 of ceramic tiles", Confidence: 0.90},
		{Description: "Supply & install 100 m² of ceramic tile", Confidence: 0.50,
			Quantity: fptr(100), Unit: "m2"},
	}

	boq := NewAssembler(nil, 0.85).Assemble("", items, 0)

	if boq.DuplicatesRemoved != 1 {
		t.Fatalf("DuplicatesRemoved = %d, want 1", boq.DuplicatesRemoved)
	}
	item := boq.Sections[0].Items[0]
	if item.Quantity != nil || item.Unit != "" {
		t.Errorf("low-confidence duplicate should not backfill, got %+v", item)
	}
}

func TestAssembleDistinctItemsKeptApart(t *testing.T) {
	items := []extract.Item{
		{Description: "Excavation for foundations", Confidence: 0.9},
		{Description: "Supply structural steel beams grade S355", Confidence: 0.9},
	}

	boq := NewAssembler(nil, 0.85).Assemble("", items, 0)

	if boq.DuplicatesRemoved != 0 {
		t.Errorf("DuplicatesRemoved = %d, want 0", boq.DuplicatesRemoved)
	}
	if boq.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", boq.TotalItems)
	}
}

func TestSectionForKeywordTieResolvesToCatalogOrder(t *testing.T) {
	// "excavation" hits earthworks, "foundations" hits concrete; at
	// equal score the earlier catalog entry keeps the item.
	a := NewAssembler(nil, 0)
	got := a.sectionFor(extract.Item{Description: "excavation for foundations"})
	if got != "earthworks" {
		t.Fatalf("sectionFor = %q, want earthworks", got)
	}
}

func TestSectionForExplicitLabelWins(t *testing.T) {
	a := NewAssembler(nil, 0)
	item := extract.Item{
		Description: "excavation for foundations",
		Section:     "Concrete Works",
	}
	if got := a.sectionFor(item); got != "concrete" {
		t.Fatalf("sectionFor = %q, want concrete", got)
	}
}

func TestSectionForNoMatchIsUnclassified(t *testing.T) {
	a := NewAssembler(nil, 0)
	if got := a.sectionFor(extract.Item{Description: "miscellaneous sundries"}); got != "" {
		t.Fatalf("sectionFor = %q, want empty", got)
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	boq := NewAssembler(nil, 0).Assemble("Empty", nil, 5)

	if len(boq.Sections) != 0 || len(boq.Unclassified) != 0 {
		t.Errorf("expected no sections or unclassified items, got %+v", boq)
	}
	if boq.TotalItems != 0 || boq.DuplicatesRemoved != 0 {
		t.Errorf("counts not zero: %+v", boq)
	}
	if boq.Subtotal != 0 || boq.Contingency != 0 || boq.GrandTotal != 0 {
		t.Errorf("totals not zero: %+v", boq)
	}
}

func TestAssembleNumberingAndTotals(t *testing.T) {
	items := []extract.Item{
		{Description: "Bulk excavation to reduced level", Quantity: fptr(200), Unit: "m3", Rate: fptr(12.5), Confidence: 0.9},
		{Description: "Trench excavation for services", Amount: fptr(800), Confidence: 0.9},
		{Description: "Miscellaneous sundries", Amount: fptr(500), Confidence: 0.8},
	}

	boq := NewAssembler(nil, 0.85).Assemble("Depot", items, 5)

	if len(boq.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(boq.Sections))
	}
	sec := boq.Sections[0]
	if sec.ID != "earthworks" {
		t.Fatalf("section = %q, want earthworks", sec.ID)
	}
	for i, want := range []string{"3.1", "3.2"} {
		if sec.Items[i].ItemNumber != want {
			t.Errorf("item %d number = %q, want %q", i, sec.Items[i].ItemNumber, want)
		}
	}
	if len(boq.Unclassified) != 1 {
		t.Fatalf("expected 1 unclassified item, got %d", len(boq.Unclassified))
	}

	wantSubtotal := 200*12.5 + 800 + 500.0
	if math.Abs(boq.Subtotal-wantSubtotal) > 1e-9 {
		t.Errorf("Subtotal = %v, want %v", boq.Subtotal, wantSubtotal)
	}
	if math.Abs(boq.Contingency-boq.Subtotal*0.05) > 1e-9 {
		t.Errorf("Contingency = %v, want %v", boq.Contingency, boq.Subtotal*0.05)
	}
	if math.Abs(boq.GrandTotal-(boq.Subtotal+boq.Contingency)) > 1e-9 {
		t.Errorf("GrandTotal = %v, want subtotal+contingency", boq.GrandTotal)
	}
	if boq.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", boq.TotalItems)
	}
}

func TestDedupIdempotent(t *testing.T) {
	a := NewAssembler(nil, 0.85)
	items := []extract.Item{
		{Description: "Supply and install 100m2 of ceramic tiles", Confidence: 0.9},
		{Description: "Supply & install 100 m² of ceramic tile", Confidence: 0.95},
		{Description: "Excavation for foundations", Confidence: 0.9},
		{Description: "Excavation for the foundations", Confidence: 0.8},
		{Description: "Supply structural steel beams grade S355", Confidence: 0.9},
	}

	kept, removed := a.dedup(items)
	if removed != 2 {
		t.Fatalf("first pass removed %d, want 2", removed)
	}
	again, removedAgain := a.dedup(kept)
	if removedAgain != 0 {
		t.Fatalf("second pass removed %d, want 0", removedAgain)
	}
	if len(again) != len(kept) {
		t.Fatalf("second pass changed item count: %d vs %d", len(again), len(kept))
	}
}

func TestDedupSkipsBlankDescriptions(t *testing.T) {
	a := NewAssembler(nil, 0.85)
	kept, _ := a.dedup([]extract.Item{
		{Description: "   "},
		{Description: "Excavation for foundations", Confidence: 0.9},
	})
	if len(kept) != 1 {
		t.Fatalf("kept %d items, want 1", len(kept))
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Supply AND Install", "supply  install"},
		{"  spaced   out  text ", "spaced out text"},
		{"rate: $45.50/m2", "rate 4550m2"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalize(tc.in); got != tc.want {
			t.Errorf("normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSimilarityBounds(t *testing.T) {
	if s := similarity("abc", "abc"); s != 1 {
		t.Errorf("identical strings: %v", s)
	}
	if s := similarity("abc", "xyz"); s != 0 {
		t.Errorf("disjoint strings: %v", s)
	}
	s := similarity("supply install ceramic tiles", "supply install ceramic tile")
	if s < 0.9 || s > 1 {
		t.Errorf("near-identical strings: %v", s)
	}
}
