package classify

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Category identifies a kind of tender document content.
type Category string

const (
	TechnicalSpecifications Category = "technical_specifications"
	DrawingsSchedules       Category = "drawings_schedules"
	ScopeOfWork             Category = "scope_of_work"
	GeneralConditions       Category = "general_conditions"
	BillOfQuantities        Category = "bill_of_quantities"
	PricingSchedule         Category = "pricing_schedule"
	ContractTerms           Category = "contract_terms"
	CoverLetter             Category = "cover_letter"
	Unknown                 Category = "unknown"
)

// Categories is the fixed enumeration order. Argmax ties break toward
// the earlier entry, so this order is part of the contract.
var Categories = []Category{
	TechnicalSpecifications,
	DrawingsSchedules,
	ScopeOfWork,
	GeneralConditions,
	BillOfQuantities,
	PricingSchedule,
	ContractTerms,
	CoverLetter,
	Unknown,
}

// Rules defines the scoring signals for one category.
type Rules struct {
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
	Weight   float64  `yaml:"weight"`

	compiled []*regexp.Regexp
}

// Catalog maps categories to their rule sets. Built once, then read-only.
type Catalog map[Category]*Rules

// LoadCatalog reads a category catalog from a YAML file and compiles its
// patterns. Categories absent from the file keep no rules (score zero).
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var raw map[Category]*Rules
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	cat := Catalog(raw)
	if err := cat.compile(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c Catalog) compile() error {
	for category, rules := range c {
		if rules.Weight == 0 {
			rules.Weight = 1.0
		}
		rules.compiled = make([]*regexp.Regexp, 0, len(rules.Patterns))
		for _, p := range rules.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("category %s: pattern %q: %w", category, p, err)
			}
			rules.compiled = append(rules.compiled, re)
		}
	}
	return nil
}

// DefaultCatalog returns the built-in rule sets.
func DefaultCatalog() Catalog {
	cat := Catalog{
		TechnicalSpecifications: {
			Keywords: []string{
				"specification", "technical requirement", "material",
				"performance", "standard", "astm", "iso", "bs en",
				"tolerance", "dimension", "grade", "quality",
				"compliance", "certification", "test", "inspection",
				"submittal", "shop drawing", "manufacturer",
			},
			Patterns: []string{
				`spec(?:ification)?s?\s*(?:section|no\.?|#)`,
				`technical\s+(?:data|specification|requirement)`,
				`material\s+(?:specification|requirement|standard)`,
				`(?:astm|iso|bs\s*en|din|ansi)\s*[\w\-]+`,
			},
			Weight: 1.0,
		},
		DrawingsSchedules: {
			Keywords: []string{
				"drawing", "schedule", "layout", "plan", "elevation",
				"section", "detail", "legend", "scale", "revision",
				"sheet", "reference", "architectural", "structural",
				"mechanical", "electrical", "plumbing", "hvac",
				"door schedule", "window schedule", "finish schedule",
			},
			Patterns: []string{
				`drawing\s*(?:no\.?|number|#|list)`,
				`(?:floor|site|roof)\s*plan`,
				`(?:sheet|dwg)\s*[\w\-]+`,
				`rev(?:ision)?\.?\s*\d+`,
				`scale\s*[:\d]+`,
			},
			Weight: 1.0,
		},
		ScopeOfWork: {
			Keywords: []string{
				"scope", "work", "task", "activity", "deliverable",
				"milestone", "phase", "include", "exclude", "requirement",
				"responsibility", "obligation", "perform", "provide",
				"install", "supply", "construct", "demolish", "remove",
				"contractor shall", "owner shall", "scope of work",
			},
			Patterns: []string{
				`scope\s+of\s+work`,
				`work\s+(?:scope|description|package)`,
				`contractor\s+(?:shall|will|must)`,
				`(?:include|exclude)[sd]?\s+in\s+(?:scope|work)`,
				`deliverable[s]?`,
			},
			Weight: 1.2,
		},
		GeneralConditions: {
			Keywords: []string{
				"condition", "term", "clause", "article", "provision",
				"general", "special", "supplementary", "amendment",
				"contract", "agreement", "warranty", "liability",
				"insurance", "bond", "indemnity", "termination",
				"dispute", "arbitration", "force majeure", "notice",
			},
			Patterns: []string{
				`general\s+condition[s]?`,
				`(?:special|supplementary)\s+condition[s]?`,
				`article\s+\d+`,
				`clause\s+\d+`,
				`section\s+\d+\.\d+`,
			},
			Weight: 0.9,
		},
		BillOfQuantities: {
			Keywords: []string{
				"bill of quantities", "boq", "quantity", "item",
				"description", "unit", "rate", "amount", "total",
				"subtotal", "measurement", "preamble", "preliminaries",
				"provisional sum", "prime cost", "pc sum", "daywork",
			},
			Patterns: []string{
				`bill\s+of\s+quantit(?:y|ies)`,
				`b\.?o\.?q\.?`,
				`(?:item|ref)\s*(?:no\.?|#)`,
				`(?:unit|qty|quantity)\s*[:=]`,
				`(?:rate|amount|total)\s*\(?[\$£€]`,
			},
			Weight: 1.3,
		},
		PricingSchedule: {
			Keywords: []string{
				"price", "pricing", "cost", "budget", "estimate",
				"schedule of rates", "unit price", "lump sum",
				"allowance", "contingency", "overhead", "profit",
				"preliminaries", "general requirements",
			},
			Patterns: []string{
				`price\s+schedule`,
				`schedule\s+of\s+(?:rate|price)s`,
				`unit\s+(?:price|rate|cost)`,
				`(?:lump\s+sum|ls)`,
				`[\$£€]\s*[\d,]+\.?\d*`,
			},
			Weight: 1.1,
		},
		ContractTerms: {
			Keywords: []string{
				"contract", "agreement", "party", "parties", "execute",
				"effective date", "completion date", "duration",
				"payment", "invoice", "retention", "variation",
				"change order", "extension", "delay", "liquidated damages",
			},
			Patterns: []string{
				`contract\s+(?:document|agreement|term)`,
				`(?:effective|completion|commencement)\s+date`,
				`liquidated\s+damages`,
				`payment\s+(?:term|schedule|condition)`,
			},
			Weight: 0.8,
		},
		CoverLetter: {
			Keywords: []string{
				"dear", "sincerely", "regards", "submit", "proposal",
				"tender", "bid", "quotation", "attention", "reference",
				"enclosed", "attached", "hereby", "pursuant",
			},
			Patterns: []string{
				`dear\s+(?:sir|madam|mr|ms)`,
				`(?:yours\s+)?(?:sincerely|faithfully)`,
				`re:\s*`,
				`reference\s*(?:no\.?|#|:)`,
			},
			Weight: 0.7,
		},
	}
	if err := cat.compile(); err != nil {
		// Built-in patterns must compile.
		panic(err)
	}
	return cat
}
