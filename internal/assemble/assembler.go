package assemble

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/tenderworks/boqd/internal/extract"
)

const DefaultSimilarityThreshold = 0.85

// Section is a group of line items under one heading of the final BOQ.
type Section struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Items    []extract.Item `json:"items"`
	Subtotal float64        `json:"subtotal"`
}

// BOQ is the consolidated bill of quantities. Items that match no
// section keyword land in Unclassified but still count towards the
// totals.
type BOQ struct {
	ProjectName       string         `json:"project_name"`
	Sections          []Section      `json:"sections"`
	Unclassified      []extract.Item `json:"unclassified,omitempty"`
	Subtotal          float64        `json:"subtotal"`
	ContingencyRate   float64        `json:"contingency_rate"`
	Contingency       float64        `json:"contingency"`
	GrandTotal        float64        `json:"grand_total"`
	TotalItems        int            `json:"total_items"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	stopWordsRe  = regexp.MustCompile(`\b(the|and|or|to|for|of|in|a|an)\b`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
)

// Assembler merges extracted line items into a sectioned BOQ,
// collapsing near-duplicate descriptions along the way.
type Assembler struct {
	sections  []SectionDef
	threshold float64
}

func NewAssembler(sections []SectionDef, threshold float64) *Assembler {
	if len(sections) == 0 {
		sections = DefaultSections()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Assembler{sections: sections, threshold: threshold}
}

// Assemble deduplicates the items, assigns each to a section, renumbers
// them and computes totals. The input slice is not modified.
func (a *Assembler) Assemble(projectName string, items []extract.Item, contingencyPercent float64) *BOQ {
	boq := &BOQ{ProjectName: projectName, ContingencyRate: contingencyPercent}

	kept, removed := a.dedup(items)
	boq.DuplicatesRemoved = removed

	grouped := make(map[string][]extract.Item, len(a.sections))
	for _, item := range kept {
		id := a.sectionFor(item)
		if id == "" {
			boq.Unclassified = append(boq.Unclassified, item)
			continue
		}
		grouped[id] = append(grouped[id], item)
	}

	for _, def := range a.sections {
		secItems := grouped[def.ID]
		if len(secItems) == 0 {
			continue
		}
		sec := Section{ID: def.ID, Name: def.Name}
		for i, item := range secItems {
			item.ItemNumber = fmt.Sprintf("%s%d", def.Prefix, i+1)
			item.Section = def.Name
			sec.Items = append(sec.Items, item)
			sec.Subtotal += item.LineTotal()
		}
		boq.Sections = append(boq.Sections, sec)
		boq.Subtotal += sec.Subtotal
		boq.TotalItems += len(sec.Items)
	}

	for _, item := range boq.Unclassified {
		boq.Subtotal += item.LineTotal()
	}
	boq.TotalItems += len(boq.Unclassified)

	boq.Contingency = boq.Subtotal * contingencyPercent / 100
	boq.GrandTotal = boq.Subtotal + boq.Contingency
	return boq
}

// dedup walks the items in order and absorbs any item whose normalized
// description is close enough to one already kept. First match wins.
func (a *Assembler) dedup(items []extract.Item) ([]extract.Item, int) {
	kept := make([]extract.Item, 0, len(items))
	norms := make([]string, 0, len(items))
	removed := 0

	for _, item := range items {
		norm := normalize(item.Description)
		if norm == "" {
			continue
		}
		matched := -1
		for i, keptNorm := range norms {
			if similarity(norm, keptNorm) >= a.threshold {
				matched = i
				break
			}
		}
		if matched < 0 {
			kept = append(kept, item)
			norms = append(norms, norm)
			continue
		}
		kept[matched] = mergeItems(kept[matched], item)
		removed++
	}
	return kept, removed
}

// mergeItems folds a duplicate into the kept item. A higher-confidence
// newcomer backfills fields the kept item is missing; otherwise the
// kept item stands as is.
func mergeItems(kept, dup extract.Item) extract.Item {
	merged := kept
	if dup.Confidence > kept.Confidence {
		if merged.Quantity == nil && dup.Quantity != nil {
			q := *dup.Quantity
			merged.Quantity = &q
		}
		if merged.Unit == "" && dup.Unit != "" {
			merged.Unit = dup.Unit
		}
		if merged.Rate == nil && dup.Rate != nil {
			r := *dup.Rate
			merged.Rate = &r
		}
	}
	return merged
}

// sectionFor resolves the section for an item, or "" when nothing
// matches. An explicit section label from extraction is honored first;
// failing that the description and specifications are scored against
// each section's keywords, where longer keywords count for more.
func (a *Assembler) sectionFor(item extract.Item) string {
	if label := strings.ToLower(strings.TrimSpace(item.Section)); label != "" {
		for _, def := range a.sections {
			if strings.Contains(label, def.ID) || strings.Contains(label, strings.ToLower(def.Name)) {
				return def.ID
			}
			for _, kw := range def.Keywords {
				if strings.Contains(label, kw) {
					return def.ID
				}
			}
		}
	}

	text := strings.ToLower(item.Description + " " + item.Specifications)
	bestID := ""
	bestScore := 0
	for _, def := range a.sections {
		score := 0
		for _, kw := range def.Keywords {
			if strings.Contains(text, kw) {
				score += len(strings.Fields(kw))
			}
		}
		if score > bestScore {
			bestScore = score
			bestID = def.ID
		}
	}
	return bestID
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = stopWordsRe.ReplaceAllString(s, "")
	s = punctRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// similarity is the character-level sequence match ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
