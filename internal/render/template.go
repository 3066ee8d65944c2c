package render

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Column describes one output column of the workbook.
type Column struct {
	Name          string `yaml:"name"`
	Width         int    `yaml:"width"`
	Type          string `yaml:"type"` // text, number, currency, formula
	DecimalPlaces int    `yaml:"decimal_places"`
	Formula       string `yaml:"formula"`
	WrapText      bool   `yaml:"wrap_text"`
}

// Template controls the layout of the generated workbook.
type Template struct {
	Name               string   `yaml:"name"`
	SheetName          string   `yaml:"sheet_name"`
	Columns            []Column `yaml:"columns"`
	CurrencySymbol     string   `yaml:"currency_symbol"`
	ContingencyPercent float64  `yaml:"contingency_percent"`
}

// LoadTemplate reads a workbook template from a YAML file. Missing
// fields fall back to the default template's values.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tpl := DefaultTemplate()
	if err := yaml.Unmarshal(data, tpl); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if len(tpl.Columns) == 0 {
		return nil, fmt.Errorf("template %q has no columns", tpl.Name)
	}
	for i := range tpl.Columns {
		if tpl.Columns[i].Width <= 0 {
			tpl.Columns[i].Width = 15
		}
		if tpl.Columns[i].Type == "" {
			tpl.Columns[i].Type = "text"
		}
	}
	return tpl, nil
}

// DefaultTemplate is the standard six-column BOQ layout. The Amount
// column is a formula so the workbook stays live when a reviewer edits
// quantities or rates.
func DefaultTemplate() *Template {
	return &Template{
		Name:               "Default Template",
		SheetName:          "Bill of Quantities",
		CurrencySymbol:     "$",
		ContingencyPercent: 5.0,
		Columns: []Column{
			{Name: "Item No.", Width: 10, Type: "text"},
			{Name: "Description", Width: 60, Type: "text", WrapText: true},
			{Name: "Unit", Width: 10, Type: "text"},
			{Name: "Quantity", Width: 12, Type: "number", DecimalPlaces: 2},
			{Name: "Rate", Width: 15, Type: "currency", DecimalPlaces: 2},
			{Name: "Amount", Width: 15, Type: "formula", Formula: "=D{row}*E{row}", DecimalPlaces: 2},
		},
	}
}

// amountColumn returns the 1-based index of the Amount column, or the
// last column when none is named Amount.
func (t *Template) amountColumn() int {
	for i, c := range t.Columns {
		if c.Name == "Amount" {
			return i + 1
		}
	}
	return len(t.Columns)
}
