package scrape

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// defaultContainerSelector is used when a rule set does not name an items
// selector of its own.
const defaultContainerSelector = "div"

// FieldRule maps one output field name to the CSS selector that produces it.
type FieldRule struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
}

// RuleSet describes rule-driven extraction for one site.
//
// Items selects the repeated record containers; Fields are evaluated relative
// to each container, in declaration order. A nil *RuleSet means heuristic
// mode, which is a different thing from a RuleSet with no Items selector.
type RuleSet struct {
	Items  string      `json:"items,omitempty"`
	Fields []FieldRule `json:"fields"`
}

// ContainerSelector returns the selector for record containers, falling back
// to "div" when the rule set does not define one.
func (rs *RuleSet) ContainerSelector() string {
	if strings.TrimSpace(rs.Items) == "" {
		return defaultContainerSelector
	}
	return rs.Items
}

// LoadRuleFile loads and validates a JSON rule file.
func LoadRuleFile(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rs RuleSet
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	if len(rs.Fields) == 0 {
		return nil, fmt.Errorf("rule file %s defines no fields", path)
	}
	for i, f := range rs.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("rule file %s: field %d has no name", path, i)
		}
		if strings.TrimSpace(f.Selector) == "" {
			return nil, fmt.Errorf("rule file %s: field %q has no selector", path, f.Name)
		}
	}
	return &rs, nil
}
