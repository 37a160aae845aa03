package classification

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/transcat/internal/common"
)

// LoadRules reads regex rules from a YAML file. A missing path yields no rules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules accepts either a mapping of pattern to category, evaluated in
// document order, or a sequence of {pattern, category} objects.
func ParseRules(data []byte) ([]Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		rules := make([]Rule, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, value := root.Content[i], root.Content[i+1]
			if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: rule at line %d must map a pattern to a category", common.ErrInvalidConfig, key.Line)
			}
			rules = append(rules, Rule{Pattern: key.Value, Category: value.Value})
		}
		return rules, nil
	case yaml.SequenceNode:
		var rules []Rule
		if err := root.Decode(&rules); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("%w: rules must be a mapping or a sequence", common.ErrInvalidConfig)
	}
}
