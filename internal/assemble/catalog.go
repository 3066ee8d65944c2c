package assemble

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SectionDef describes one cost section in the BOQ taxonomy. Catalog
// order matters: label matching and non-zero score ties resolve to the
// earlier definition.
type SectionDef struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Prefix   string   `yaml:"prefix"`
	Keywords []string `yaml:"keywords"`
}

// LoadSections reads a section catalog from a YAML file.
func LoadSections(path string) ([]SectionDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sections: %w", err)
	}
	var defs []SectionDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse sections: %w", err)
	}
	for i, d := range defs {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("section %d: id and name are required", i)
		}
	}
	return defs, nil
}

// DefaultSections is the standard cost-estimation taxonomy.
func DefaultSections() []SectionDef {
	return []SectionDef{
		{
			ID: "preliminaries", Name: "PRELIMINARIES & GENERAL", Prefix: "1.",
			Keywords: []string{
				"preliminary", "general", "mobilization", "site establishment",
				"temporary", "facilities", "insurance", "bond", "permit",
			},
		},
		{
			ID: "demolition", Name: "DEMOLITION & SITE CLEARANCE", Prefix: "2.",
			Keywords: []string{
				"demolition", "demolish", "removal", "clearing", "strip",
				"dispose", "disposal", "break up",
			},
		},
		{
			ID: "earthworks", Name: "EARTHWORKS", Prefix: "3.",
			Keywords: []string{
				"excavation", "excavate", "backfill", "fill", "grading",
				"earthwork", "trench", "foundation dig", "soil", "compaction",
			},
		},
		{
			ID: "concrete", Name: "CONCRETE WORKS", Prefix: "4.",
			Keywords: []string{
				"concrete", "reinforcement", "rebar", "formwork", "slab",
				"beam", "column", "foundation", "footing", "pour",
			},
		},
		{
			ID: "masonry", Name: "MASONRY", Prefix: "5.",
			Keywords: []string{
				"masonry", "brick", "block", "wall", "mortar", "pointing",
				"blockwork", "brickwork",
			},
		},
		{
			ID: "structural_steel", Name: "STRUCTURAL STEEL", Prefix: "6.",
			Keywords: []string{
				"steel", "structural steel", "fabrication", "erection",
				"welding", "bolting", "beam", "column", "truss",
			},
		},
		{
			ID: "roofing", Name: "ROOFING & WATERPROOFING", Prefix: "7.",
			Keywords: []string{
				"roof", "roofing", "waterproof", "membrane", "insulation",
				"flashing", "gutter", "downpipe", "cladding",
			},
		},
		{
			ID: "finishes", Name: "FINISHES", Prefix: "8.",
			Keywords: []string{
				"finish", "plaster", "render", "paint", "tile", "floor",
				"ceiling", "wall finish", "screed", "vinyl", "carpet",
			},
		},
		{
			ID: "doors_windows", Name: "DOORS, WINDOWS & GLAZING", Prefix: "9.",
			Keywords: []string{
				"door", "window", "glazing", "glass", "frame", "hardware",
				"ironmongery", "shutter",
			},
		},
		{
			ID: "mep", Name: "MEP SERVICES", Prefix: "10.",
			Keywords: []string{
				"mechanical", "electrical", "plumbing", "hvac", "air conditioning",
				"ventilation", "wiring", "conduit", "pipe", "duct", "drainage",
				"sanitary", "water supply", "fire", "sprinkler",
			},
		},
		{
			ID: "external", Name: "EXTERNAL WORKS", Prefix: "11.",
			Keywords: []string{
				"external", "landscape", "paving", "kerb", "fence", "gate",
				"car park", "road", "pathway", "retaining",
			},
		},
		{
			ID: "provisional", Name: "PROVISIONAL SUMS", Prefix: "12.",
			Keywords: []string{
				"provisional", "prime cost", "pc sum", "allowance",
				"contingency", "daywork",
			},
		},
	}
}
