package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tenderworks/boqd/internal/assemble"
	"github.com/tenderworks/boqd/internal/extract"
)

func fptr(v float64) *float64 { return &v }

func testBOQ() *assemble.BOQ {
	return &assemble.BOQ{
		ProjectName: "Depot Expansion",
		Sections: []assemble.Section{
			{
				ID: "earthworks", Name: "EARTHWORKS",
				Items: []extract.Item{
					{ItemNumber: "3.1", Description: "Bulk excavation", Unit: "m3",
						Quantity: fptr(200), Rate: fptr(12.5)},
					{ItemNumber: "3.2", Description: "Trench excavation", Amount: fptr(800)},
				},
				Subtotal: 3300,
			},
		},
		Unclassified:    []extract.Item{{Description: "Sundries", Amount: fptr(500)}},
		Subtotal:        3800,
		ContingencyRate: 5,
		Contingency:     190,
		GrandTotal:      3990,
		TotalItems:      3,
	}
}

func TestGenerateWorkbookLayout(t *testing.T) {
	data, err := NewGenerator(nil).Generate(testBOQ())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	const sheet = "Bill of Quantities"
	raw := excelize.Options{RawCellValue: true}
	cell := func(ref string) string {
		v, err := f.GetCellValue(sheet, ref, raw)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", ref, err)
		}
		return v
	}

	if got := cell("A1"); got != "BILL OF QUANTITIES" {
		t.Errorf("A1 = %q", got)
	}
	if got := cell("A2"); got != "Project: Depot Expansion" {
		t.Errorf("A2 = %q", got)
	}
	if got := cell("A5"); got != "Item No." {
		t.Errorf("A5 = %q, want column header row at 5", got)
	}
	if got := cell("F5"); got != "Amount" {
		t.Errorf("F5 = %q", got)
	}
	if got := cell("A6"); got != "EARTHWORKS" {
		t.Errorf("A6 = %q, want section header", got)
	}
	if got := cell("A7"); got != "3.1" {
		t.Errorf("A7 = %q", got)
	}
	if got := cell("B7"); got != "Bulk excavation" {
		t.Errorf("B7 = %q", got)
	}
	formula, err := f.GetCellFormula(sheet, "F7")
	if err != nil || formula != "D7*E7" {
		t.Errorf("F7 formula = %q, err %v", formula, err)
	}
	if got := cell("A9"); got != "EARTHWORKS - Subtotal" {
		t.Errorf("A9 = %q", got)
	}
	if got := cell("F9"); got != "3300" {
		t.Errorf("F9 = %q, want section subtotal", got)
	}
	if got := cell("A11"); got != "OTHER ITEMS" {
		t.Errorf("A11 = %q", got)
	}
	if got := cell("A12"); got != "X.1" {
		t.Errorf("A12 = %q, want renumbered unclassified item", got)
	}
	if got := cell("A13"); got != "SUBTOTAL" {
		t.Errorf("A13 = %q", got)
	}
	if got := cell("F13"); got != "3800" {
		t.Errorf("F13 = %q", got)
	}
	if got := cell("F15"); got != "3990" {
		t.Errorf("F15 = %q, want grand total", got)
	}
}

func TestGenerateEmptyBOQ(t *testing.T) {
	data, err := NewGenerator(nil).Generate(&assemble.BOQ{ProjectName: "Empty"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty workbook bytes")
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.yaml")
	yaml := `
name: Custom
sheet_name: Estimate
currency_symbol: "£"
contingency_percent: 10
columns:
  - name: "Item No."
    width: 8
  - name: Description
    width: 50
    wrap_text: true
  - name: Amount
    type: currency
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	tpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if tpl.Name != "Custom" || tpl.SheetName != "Estimate" {
		t.Errorf("unexpected template identity: %+v", tpl)
	}
	if tpl.ContingencyPercent != 10 {
		t.Errorf("ContingencyPercent = %v", tpl.ContingencyPercent)
	}
	if tpl.Columns[0].Type != "text" {
		t.Errorf("missing type should default to text, got %q", tpl.Columns[0].Type)
	}
	if tpl.Columns[2].Width != 15 {
		t.Errorf("missing width should default to 15, got %d", tpl.Columns[2].Width)
	}
	if tpl.amountColumn() != 3 {
		t.Errorf("amountColumn = %d, want 3", tpl.amountColumn())
	}
}

func TestLoadTemplateMissing(t *testing.T) {
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultTemplate(t *testing.T) {
	tpl := DefaultTemplate()
	if len(tpl.Columns) != 6 {
		t.Fatalf("expected 6 columns, got %d", len(tpl.Columns))
	}
	if tpl.amountColumn() != 6 {
		t.Errorf("amountColumn = %d, want 6", tpl.amountColumn())
	}
	if tpl.Columns[5].Formula == "" {
		t.Error("Amount column should carry a formula")
	}
}
