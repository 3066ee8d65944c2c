package extract

import (
	"fmt"
	"strings"

	"github.com/tenderworks/boqd/internal/document"
)

// SystemPrompt frames the model as a quantity surveyor. Every extraction
// request uses it.
const SystemPrompt = `You are an expert construction estimator and quantity surveyor.
Your task is to extract Bill of Quantities (BOQ) items from tender documents.

You must identify:
1. Work items and their descriptions
2. Quantities with units of measurement
3. Specifications and requirements
4. Any pricing information if available

Output your findings in the exact JSON format specified.
Be precise with quantities and units. If information is unclear, indicate uncertainty.
Do not invent or assume quantities - only extract what is explicitly stated.`

const itemSchemaBlock = `Respond with a JSON object in this exact format:
{
    "items": [
        {
            "item_number": "1.1",
            "description": "Excavation for foundations",
            "quantity": 150.0,
            "unit": "m3",
            "rate": null,
            "amount": null,
            "specifications": "Maximum depth 2m, dispose of spoil off-site",
            "section": "Earthworks",
            "notes": "Provisional quantity subject to site conditions",
            "confidence": 0.85
        }
    ],
    "metadata": {
        "confidence": 0.85,
        "items_found": 1,
        "notes": "Any general observations about the extraction"
    }
}`

// Context carries per-request framing for prompts.
type Context struct {
	ProjectName  string
	DocumentType string
	ChunkIndex   int
	TotalChunks  int
}

func (c Context) block() string {
	var parts []string
	if c.ProjectName != "" {
		parts = append(parts, "Project: "+c.ProjectName)
	}
	if c.DocumentType != "" {
		parts = append(parts, "Document type: "+c.DocumentType)
	}
	if c.TotalChunks > 1 {
		parts = append(parts, fmt.Sprintf("This is chunk %d of %d", c.ChunkIndex+1, c.TotalChunks))
	}
	if len(parts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, p := range parts {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildTextPrompt builds the user prompt for extracting items from a
// chunk of document text.
func BuildTextPrompt(text string, ctx Context) string {
	var sb strings.Builder
	sb.WriteString("Extract BOQ (Bill of Quantities) items from the following tender document text.\n\n")
	sb.WriteString(ctx.block())
	sb.WriteString(`
For each work item found, extract:
- item_number: The item reference number if given (or generate a sequential one)
- description: Full description of the work item
- quantity: Numerical quantity (null if not specified)
- unit: Unit of measurement (e.g., m2, m3, nr, kg, lm, etc.)
- rate: Unit rate if priced (null otherwise)
- amount: Line amount if priced (null otherwise)
- specifications: Any technical specifications or requirements
- section: The work section this belongs to (e.g., "Earthworks", "Concrete", etc.)
- notes: Any additional notes or conditions
- confidence: Your confidence in this item (0.0 to 1.0)

Document text:
---
`)
	sb.WriteString(text)
	sb.WriteString("\n---\n\n")
	sb.WriteString(itemSchemaBlock)
	sb.WriteString(`

Important:
- Extract ALL work items found in the text
- Use standard construction units (m, m2, m3, nr, kg, lm, set, lot)
- If quantity is "provisional" or "TBD", set quantity to null and note it
- Include specifications verbatim when provided
- Set confidence based on clarity of the source text (0.0 to 1.0)`)
	return sb.String()
}

// tablePromptRowLimit caps how many rows a table prompt carries.
const tablePromptRowLimit = 20

// BuildTablePrompt builds the user prompt for extracting items from a
// parsed table. Only the first rows are sent when a table is large.
func BuildTablePrompt(table *document.Table, ctx Context) string {
	var rows strings.Builder
	for i, row := range table.Rows {
		if i >= tablePromptRowLimit {
			break
		}
		rows.WriteString(strings.Join(row, " | "))
		rows.WriteString("\n")
	}

	var sb strings.Builder
	sb.WriteString("The following is a table extracted from a tender document.\nParse this table to extract BOQ items.\n\n")
	sb.WriteString("Table headers: ")
	sb.WriteString(strings.Join(table.Headers, " | "))
	sb.WriteString("\nTable data:\n")
	sb.WriteString(rows.String())
	sb.WriteString("\n")
	sb.WriteString(ctx.block())
	sb.WriteString(`
Extract each row as a BOQ item. Map columns to:
- item_number: Item/Ref column
- description: Description/Item column
- quantity: Qty/Quantity column
- unit: Unit/UOM column
- rate: Rate/Price column (if present)
- amount: Amount/Total column (if present)

`)
	sb.WriteString(itemSchemaBlock)
	return sb.String()
}
