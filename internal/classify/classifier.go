package classify

import (
	"strings"

	"github.com/tenderworks/boqd/internal/document"
)

// tableRowSample is how many rows of a table feed its classification text.
const tableRowSample = 5

// tableBOQBoost multiplies the bill_of_quantities score for tables, which
// are structurally biased toward already being line-item data.
const tableBOQBoost = 1.5

// Classified pairs an input with its resolved category.
type Classified struct {
	Fragment   *document.Fragment `json:"fragment,omitempty"`
	Table      *document.Table    `json:"table,omitempty"`
	Category   Category           `json:"category"`
	Confidence float64            `json:"confidence"`
	Matched    []string           `json:"matched,omitempty"`
	IsTable    bool               `json:"is_table"`
}

// Classifier scores content against the category catalog.
type Classifier struct {
	catalog       Catalog
	minConfidence float64
}

// NewClassifier builds a classifier over the given catalog. A nil catalog
// gets the built-in defaults.
func NewClassifier(catalog Catalog, minConfidence float64) *Classifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Classifier{catalog: catalog, minConfidence: minConfidence}
}

// ClassifyFragment resolves a text fragment to a category.
func (c *Classifier) ClassifyFragment(f *document.Fragment) Classified {
	category, confidence, matched := c.best(strings.ToLower(f.Text), false)
	return Classified{
		Fragment:   f,
		Category:   category,
		Confidence: confidence,
		Matched:    matched,
	}
}

// ClassifyTable resolves a table from its headers and leading rows.
func (c *Classifier) ClassifyTable(t *document.Table) Classified {
	category, confidence, matched := c.best(strings.ToLower(t.CellText(tableRowSample)), true)
	return Classified{
		Table:      t,
		Category:   category,
		Confidence: confidence,
		Matched:    matched,
		IsTable:    true,
	}
}

// ClassifyAll partitions every fragment and table into a complete map:
// every category has a key even when nothing matched it.
func (c *Classifier) ClassifyAll(fragments []document.Fragment, tables []document.Table) map[Category][]Classified {
	result := make(map[Category][]Classified, len(Categories))
	for _, cat := range Categories {
		result[cat] = nil
	}
	for i := range fragments {
		cl := c.ClassifyFragment(&fragments[i])
		result[cl.Category] = append(result[cl.Category], cl)
	}
	for i := range tables {
		cl := c.ClassifyTable(&tables[i])
		result[cl.Category] = append(result[cl.Category], cl)
	}
	return result
}

// best runs the weighted keyword/pattern scoring over all categories and
// returns the argmax. Ties break toward the category earlier in the
// enumeration; a best confidence below the threshold resolves to Unknown.
func (c *Classifier) best(text string, isTable bool) (Category, float64, []string) {
	bestCategory := Unknown
	bestScore := 0.0
	var bestMatched []string
	var bestRules *Rules

	for _, category := range Categories {
		rules, ok := c.catalog[category]
		if !ok {
			continue
		}
		score, matched := score(text, rules)
		if isTable && category == BillOfQuantities {
			score *= tableBOQBoost
		}
		if score > bestScore {
			bestScore = score
			bestCategory = category
			bestMatched = matched
			bestRules = rules
		}
	}

	if bestScore == 0 || bestRules == nil {
		return Unknown, 0, nil
	}

	confidence := confidenceFor(bestScore, bestRules)
	if confidence < c.minConfidence {
		return Unknown, confidence, bestMatched
	}
	return bestCategory, confidence, bestMatched
}

// score counts keyword hits at weight 1.0 and pattern hits at weight 2.0,
// then applies the category weight. Patterns are worth double because they
// encode more specific structural signals.
func score(text string, rules *Rules) (float64, []string) {
	total := 0.0
	var matched []string

	for _, kw := range rules.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			total += 1.0
			matched = append(matched, kw)
		}
	}
	for _, re := range rules.compiled {
		if re.MatchString(text) {
			total += 2.0
			matched = append(matched, "pattern:"+truncatePattern(re.String()))
		}
	}
	return total * rules.Weight, matched
}

// confidenceFor maps a raw score into [0,1] against the category's maximum
// attainable hit count.
func confidenceFor(score float64, rules *Rules) float64 {
	normalizer := float64(len(rules.Keywords) + 2*len(rules.Patterns))
	if normalizer == 0 {
		return 0
	}
	confidence := score / normalizer * 2
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func truncatePattern(p string) string {
	if len(p) > 30 {
		return p[:30]
	}
	return p
}
