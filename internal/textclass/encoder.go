package textclass

import (
	"fmt"
	"sort"
)

// LabelEncoder maps string labels to ordinals in sorted label order.
type LabelEncoder struct {
	index   map[string]int
	classes []string
}

// Fit learns the sorted set of distinct labels.
func (e *LabelEncoder) Fit(labels []string) {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)

	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
}

// Transform encodes labels; every label must have been seen by Fit.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, ok := e.index[l]
		if !ok {
			return nil, fmt.Errorf("unknown label %q", l)
		}
		out[i] = idx
	}
	return out, nil
}

// Inverse decodes an ordinal.
func (e *LabelEncoder) Inverse(idx int) string {
	return e.classes[idx]
}

// Classes returns the labels in ordinal order.
func (e *LabelEncoder) Classes() []string {
	return e.classes
}
