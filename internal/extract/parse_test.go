package extract

import (
	"strings"
	"testing"
)

func TestParseResponse_WellFormed(t *testing.T) {
	raw := []byte(`{
		"items": [
			{
				"item_number": "1.1",
				"description": "Excavation for foundations",
				"quantity": 150.0,
				"unit": "m3",
				"rate": 12.5,
				"section": "Earthworks",
				"confidence": 0.9
			}
		],
		"metadata": {"confidence": 0.85, "items_found": 1, "notes": "clear text"}
	}`)

	items, meta, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Description != "Excavation for foundations" {
		t.Errorf("description: %q", it.Description)
	}
	if it.Quantity == nil || *it.Quantity != 150.0 {
		t.Errorf("quantity: %v", it.Quantity)
	}
	if it.Rate == nil || *it.Rate != 12.5 {
		t.Errorf("rate: %v", it.Rate)
	}
	if it.Amount != nil {
		t.Errorf("expected nil amount, got %v", *it.Amount)
	}
	if it.Confidence != 0.9 {
		t.Errorf("confidence: %f", it.Confidence)
	}
	if meta.Confidence != 0.85 || meta.ItemsFound != 1 {
		t.Errorf("metadata: %+v", meta)
	}
}

func TestParseResponse_DropsItemsWithoutDescription(t *testing.T) {
	raw := []byte(`{
		"items": [
			{"item_number": "1", "description": "Kept item"},
			{"item_number": "2", "description": "   "},
			{"item_number": "3"}
		]
	}`)
	items, _, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item after dropping blanks, got %d", len(items))
	}
	if items[0].Description != "Kept item" {
		t.Errorf("wrong item survived: %q", items[0].Description)
	}
}

func TestParseResponse_LenientNumbers(t *testing.T) {
	raw := []byte(`{
		"items": [
			{"description": "Stringy numbers", "quantity": "1,250.5", "rate": "12.00", "amount": "not a number"}
		]
	}`)
	items, _, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it := items[0]
	if it.Quantity == nil || *it.Quantity != 1250.5 {
		t.Errorf("quantity: %v", it.Quantity)
	}
	if it.Rate == nil || *it.Rate != 12.0 {
		t.Errorf("rate: %v", it.Rate)
	}
	if it.Amount != nil {
		t.Errorf("unparsable amount should be nil, got %v", *it.Amount)
	}
}

func TestParseResponse_BadShapeIsHardFailure(t *testing.T) {
	cases := []string{
		`not json at all`,
		`{"no_items_key": true}`,
		`{"items": "should be an array"}`,
		`["top-level array"]`,
	}
	for _, raw := range cases {
		if _, _, err := ParseResponse([]byte(raw)); err == nil {
			t.Errorf("input %.40q: expected error", raw)
		}
	}
}

func TestParseResponse_DefaultConfidence(t *testing.T) {
	raw := []byte(`{"items": [{"description": "No confidence given"}]}`)
	items, meta, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Confidence != 0.8 {
		t.Errorf("expected default item confidence 0.8, got %f", items[0].Confidence)
	}
	if meta.Confidence != 0.8 {
		t.Errorf("expected default metadata confidence 0.8, got %f", meta.Confidence)
	}
}

func TestStripCodeBlock(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, c := range cases {
		if got := stripCodeBlock(c.in); got != c.want {
			t.Errorf("stripCodeBlock(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestItemLineTotal(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		name string
		item Item
		want float64
	}{
		{"explicit amount wins", Item{Amount: f(100), Quantity: f(2), Rate: f(40)}, 100},
		{"quantity times rate", Item{Quantity: f(2), Rate: f(40)}, 80},
		{"missing rate is zero", Item{Quantity: f(2)}, 0},
		{"nothing is zero", Item{}, 0},
	}
	for _, c := range cases {
		if got := c.item.LineTotal(); got != c.want {
			t.Errorf("%s: got %f, want %f", c.name, got, c.want)
		}
	}
}

func TestBuildTextPrompt_ContainsContextAndText(t *testing.T) {
	p := BuildTextPrompt("Dig a big hole", Context{ProjectName: "Depot", ChunkIndex: 1, TotalChunks: 3})
	for _, want := range []string{"Dig a big hole", "Project: Depot", "chunk 2 of 3", `"items"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
