package classification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/storage"
)

// DescriptionLookup is the read side of the record store used for exact matches.
type DescriptionLookup interface {
	LookupDescriptions(ctx context.Context, descriptions []string) (map[string]storage.Match, error)
}

// ExactMatchDetector resolves descriptions that already exist in the store.
type ExactMatchDetector struct {
	lookup DescriptionLookup
}

// NewExactMatchDetector creates a detector backed by the given lookup.
func NewExactMatchDetector(lookup DescriptionLookup) *ExactMatchDetector {
	return &ExactMatchDetector{lookup: lookup}
}

// Name implements Detector.
func (d *ExactMatchDetector) Name() string { return "exact" }

// TryDetect looks every description up in one query. Unresolved descriptions
// get a single second chance after NormalizeDescription.
func (d *ExactMatchDetector) TryDetect(ctx context.Context, descriptions []string) ([]model.DetectionResult, []int, error) {
	found, missing, err := d.check(ctx, descriptions, identity(len(descriptions)))
	if err != nil {
		return nil, nil, err
	}
	if len(missing) == 0 {
		return found, missing, nil
	}

	normalized := make([]string, len(missing))
	changed := false
	for i, idx := range missing {
		normalized[i] = NormalizeDescription(descriptions[idx])
		changed = changed || normalized[i] != descriptions[idx]
	}
	if !changed {
		return found, missing, nil
	}

	slog.Debug("Retrying exact match with normalized descriptions", "count", len(missing))

	retryFound, stillMissing, err := d.check(ctx, normalized, missing)
	if err != nil {
		return nil, nil, err
	}
	return mergeByIndex(found, retryFound), stillMissing, nil
}

// check resolves descriptions[i] and reports results under positions[i].
func (d *ExactMatchDetector) check(ctx context.Context, descriptions []string, positions []int) ([]model.DetectionResult, []int, error) {
	matches, err := d.lookup.LookupDescriptions(ctx, descriptions)
	if err != nil {
		return nil, nil, fmt.Errorf("exact match lookup: %w", err)
	}

	var (
		found   []model.DetectionResult
		missing []int
	)
	for i, desc := range descriptions {
		m, ok := matches[desc]
		if !ok {
			missing = append(missing, positions[i])
			continue
		}
		found = append(found, model.DetectionResult{
			Index:     positions[i],
			MatchedID: strconv.FormatInt(m.ID, 10),
			Category:  m.Category,
			Source:    model.MatchExact,
		})
	}
	return found, missing, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// mergeByIndex merges two result lists that are each sorted by Index.
func mergeByIndex(a, b []model.DetectionResult) []model.DetectionResult {
	out := make([]model.DetectionResult, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Index <= b[j].Index {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
