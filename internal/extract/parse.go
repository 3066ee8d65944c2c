package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema declares the envelope shape the model must return.
// Anything that fails it is a hard failure for that request only.
const responseSchema = `{
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"items": {"type": "object"}
		},
		"metadata": {"type": "object"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("response.json", responseSchema)

// Metadata is the model's self-reported extraction summary.
type Metadata struct {
	Confidence float64 `json:"confidence"`
	ItemsFound int     `json:"items_found"`
	Notes      string  `json:"notes,omitempty"`
}

// ParseResponse decodes and validates a model reply into items. Items
// without a description are dropped silently; malformed optional fields
// degrade to nil rather than failing the item.
func ParseResponse(raw []byte) ([]Item, Metadata, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, Metadata{}, fmt.Errorf("parse response json: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return nil, Metadata{}, fmt.Errorf("response does not match schema: %w", err)
	}

	envelope, _ := v.(map[string]any)
	rawItems, _ := envelope["items"].([]any)

	items := make([]Item, 0, len(rawItems))
	for _, ri := range rawItems {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		item := Item{
			ItemNumber:     asString(m["item_number"]),
			Description:    strings.TrimSpace(asString(m["description"])),
			Quantity:       asFloat(m["quantity"]),
			Unit:           asString(m["unit"]),
			Rate:           asFloat(m["rate"]),
			Amount:         asFloat(m["amount"]),
			Section:        asString(m["section"]),
			Specifications: asString(m["specifications"]),
			Notes:          asString(m["notes"]),
			Confidence:     confidenceOrDefault(m["confidence"]),
		}
		if item.Description == "" {
			continue
		}
		items = append(items, item)
	}

	meta := Metadata{Confidence: 0.8}
	if rawMeta, ok := envelope["metadata"].(map[string]any); ok {
		if f := asFloat(rawMeta["confidence"]); f != nil {
			meta.Confidence = *f
		}
		if f := asFloat(rawMeta["items_found"]); f != nil {
			meta.ItemsFound = int(*f)
		}
		meta.Notes = asString(rawMeta["notes"])
	}

	return items, meta, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asFloat coerces numbers and numeric strings; anything else is nil.
func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func confidenceOrDefault(v any) float64 {
	if f := asFloat(v); f != nil && *f >= 0 && *f <= 1 {
		return *f
	}
	return 0.8
}
