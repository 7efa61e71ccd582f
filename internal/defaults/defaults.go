// Package defaults describes the sub-budget and categories a newly created
// household starts with.
package defaults

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"portfel/internal/core"
)

//go:embed defaults.yaml
var embedded []byte

// Household is the starting data of a new household.
type Household struct {
	// SubBudget is the name of the first sub-budget.
	SubBudget string `yaml:"sub_budget"`

	Categories []Category `yaml:"categories"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
}

// Load reads the defaults from path, or the built-in file when path is empty.
func Load(path string) (Household, error) {
	data := embedded
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Household{}, fmt.Errorf("read defaults: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates a defaults document.
func Parse(data []byte) (Household, error) {
	var h Household
	if err := yaml.Unmarshal(data, &h); err != nil {
		return Household{}, fmt.Errorf("parse defaults: %w", err)
	}
	if err := (core.SubBudget{Name: h.SubBudget}).Validate(); err != nil {
		return Household{}, fmt.Errorf("defaults sub_budget: %w", err)
	}

	seen := make(map[string]bool, len(h.Categories))
	for i, c := range h.Categories {
		if _, err := c.Core(0); err != nil {
			return Household{}, fmt.Errorf("defaults category %d: %w", i, err)
		}
		if seen[c.Name] {
			return Household{}, fmt.Errorf("defaults category %q: %w", c.Name, core.ErrDuplicateCategory)
		}
		seen[c.Name] = true
	}
	return h, nil
}

// Core converts c into a category of the given household.
func (c Category) Core(householdID int64) (core.Category, error) {
	kind, err := core.ParseKind(c.Kind)
	if err != nil {
		return core.Category{}, err
	}
	cat := core.Category{
		HouseholdID: householdID,
		Name:        c.Name,
		Description: c.Description,
		Kind:        kind,
	}
	return cat, cat.Validate()
}
