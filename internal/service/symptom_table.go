package service

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

//go:embed symptom_table.yaml
var defaultSymptomTableYAML []byte

// SymptomFeature is a weighted phrase that hints at a condition category.
type SymptomFeature struct {
	Phrase   string                   `yaml:"phrase"`
	Weight   float64                  `yaml:"weight"`
	Category domain.ConditionCategory `yaml:"category"`
}

// ConditionDefinition describes a condition the classifier can select.
type ConditionDefinition struct {
	Name        string                   `yaml:"name"`
	Category    domain.ConditionCategory `yaml:"category"`
	Urgency     domain.UrgencyLevel      `yaml:"urgency"`
	Features    []string                 `yaml:"features"`
	Specialists []string                 `yaml:"specialists"`
	Equipment   []string                 `yaml:"equipment"`
}

type symptomTableDocument struct {
	Features   []SymptomFeature      `yaml:"features"`
	Conditions []ConditionDefinition `yaml:"conditions"`
}

// SymptomTable is the immutable feature and condition table the classifier
// scores against. Condition order is the tie-break order.
type SymptomTable struct {
	features   []SymptomFeature
	conditions []ConditionDefinition
	weights    map[string]float64
}

// DefaultSymptomTable returns the built-in table.
func DefaultSymptomTable() *SymptomTable {
	table, err := LoadSymptomTable(bytes.NewReader(defaultSymptomTableYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded symptom table is invalid: %v", err))
	}
	return table
}

// LoadSymptomTableFile reads a table from a YAML file.
func LoadSymptomTableFile(path string) (*SymptomTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symptom table: %w", err)
	}
	defer f.Close()

	return LoadSymptomTable(f)
}

// LoadSymptomTable decodes and validates a YAML table.
func LoadSymptomTable(r io.Reader) (*SymptomTable, error) {
	var doc symptomTableDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding symptom table: %w", err)
	}

	return NewSymptomTable(doc.Features, doc.Conditions)
}

// NewSymptomTable validates and copies the given features and conditions.
// Every condition feature must name a declared phrase; the first declaration
// of a phrase determines its weight.
func NewSymptomTable(features []SymptomFeature, conditions []ConditionDefinition) (*SymptomTable, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("symptom table has no conditions")
	}

	weights := make(map[string]float64, len(features))
	for i, f := range features {
		if f.Phrase == "" {
			return nil, fmt.Errorf("feature %d has an empty phrase", i)
		}
		if f.Weight < 0 || f.Weight > 1 {
			return nil, fmt.Errorf("feature %q weight %.2f outside [0,1]", f.Phrase, f.Weight)
		}
		if !f.Category.IsValid() {
			return nil, fmt.Errorf("feature %q has unknown category %q", f.Phrase, f.Category)
		}
		if _, seen := weights[f.Phrase]; !seen {
			weights[f.Phrase] = f.Weight
		}
	}

	copied := make([]ConditionDefinition, len(conditions))
	for i, c := range conditions {
		if c.Name == "" {
			return nil, fmt.Errorf("condition %d has no name", i)
		}
		if !c.Category.IsValid() {
			return nil, fmt.Errorf("condition %q has unknown category %q", c.Name, c.Category)
		}
		if !c.Urgency.IsValid() {
			return nil, fmt.Errorf("condition %q has unknown urgency %q", c.Name, c.Urgency)
		}
		if len(c.Specialists) == 0 {
			return nil, fmt.Errorf("condition %q lists no specialists", c.Name)
		}
		for _, phrase := range c.Features {
			if _, ok := weights[phrase]; !ok {
				return nil, fmt.Errorf("condition %q references undeclared feature %q", c.Name, phrase)
			}
		}
		copied[i] = ConditionDefinition{
			Name:        c.Name,
			Category:    c.Category,
			Urgency:     c.Urgency,
			Features:    cloneStrings(c.Features),
			Specialists: cloneStrings(c.Specialists),
			Equipment:   cloneStrings(c.Equipment),
		}
	}

	return &SymptomTable{
		features:   append([]SymptomFeature(nil), features...),
		conditions: copied,
		weights:    weights,
	}, nil
}

// Conditions returns a copy of the condition definitions in declaration order.
func (t *SymptomTable) Conditions() []ConditionDefinition {
	out := make([]ConditionDefinition, len(t.conditions))
	for i, c := range t.conditions {
		out[i] = c
		out[i].Features = cloneStrings(c.Features)
		out[i].Specialists = cloneStrings(c.Specialists)
		out[i].Equipment = cloneStrings(c.Equipment)
	}
	return out
}

// Features returns a copy of the feature list.
func (t *SymptomTable) Features() []SymptomFeature {
	return append([]SymptomFeature(nil), t.features...)
}

// Weight returns the weight of a declared phrase.
func (t *SymptomTable) Weight(phrase string) (float64, bool) {
	w, ok := t.weights[phrase]
	return w, ok
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
