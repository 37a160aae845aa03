package classification

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

// Rule maps a pattern to a category.
type Rule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

type compiledRule struct {
	re *regexp.Regexp
	Rule
}

// RegexDetector assigns the category of the first rule whose pattern matches
// at the start of a description. Rules are evaluated in the order given.
type RegexDetector struct {
	rules []compiledRule
}

// NewRegexDetector compiles the rules, failing on the first invalid pattern.
func NewRegexDetector(rules []Rule) (*RegexDetector, error) {
	compiled := make([]compiledRule, 0, len(rules))

	for _, r := range rules {
		re, err := common.CompilePrefix(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", r.Pattern, err)
		}
		if r.Category == "" {
			return nil, fmt.Errorf("%w: pattern %q has no category", common.ErrInvalidConfig, r.Pattern)
		}
		compiled = append(compiled, compiledRule{Rule: r, re: re})
	}

	return &RegexDetector{rules: compiled}, nil
}

// Name implements Detector.
func (d *RegexDetector) Name() string { return "regex" }

// Len returns the number of rules.
func (d *RegexDetector) Len() int { return len(d.rules) }

// Match returns the category of the first matching rule.
func (d *RegexDetector) Match(desc string) (string, bool) {
	for _, r := range d.rules {
		if r.re.MatchString(desc) {
			return r.Category, true
		}
	}
	return "", false
}

// TryDetect implements Detector. It never fails.
func (d *RegexDetector) TryDetect(_ context.Context, descriptions []string) ([]model.DetectionResult, []int, error) {
	var (
		found   []model.DetectionResult
		missing []int
	)
	for i, desc := range descriptions {
		cat, ok := d.Match(desc)
		if !ok {
			missing = append(missing, i)
			continue
		}
		found = append(found, model.DetectionResult{
			Index:     i,
			MatchedID: model.RegexMatchID,
			Category:  cat,
			Source:    model.MatchRegex,
		})
	}
	return found, missing, nil
}
