package classification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/transcat/internal/model"
)

// Rejected is a transaction excluded from a batch because its description
// could not be derived.
type Rejected struct {
	Err error
	Key string
}

// Result splits a batch into transactions with a known category and those
// that need prediction. Both lists keep batch order.
type Result struct {
	Found    []model.ExistingRecord
	Missing  []model.Transaction
	Rejected []Rejected
}

// Analyzer runs a fixed, ordered detector chain over a batch.
type Analyzer struct {
	detectors     []Detector
	skipMalformed bool
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithSkipMalformed excludes transactions of unsupported kinds instead of
// failing the whole batch.
func WithSkipMalformed(skip bool) AnalyzerOption {
	return func(a *Analyzer) { a.skipMalformed = skip }
}

// NewAnalyzer creates an analyzer that tries detectors in the given order.
func NewAnalyzer(detectors []Detector, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{detectors: detectors}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze derives descriptions and resolves as many as possible. The chain
// stops as soon as nothing is left unresolved.
func (a *Analyzer) Analyze(ctx context.Context, txns []model.Transaction) (*Result, error) {
	result := &Result{}
	descriptions := make([]string, len(txns))
	unresolved := make([]int, 0, len(txns))

	for i := range txns {
		desc, err := model.Description(&txns[i])
		if err != nil {
			if !a.skipMalformed {
				return nil, err
			}
			slog.Warn("Skipping malformed transaction", "key", txns[i].Key, "error", err)
			result.Rejected = append(result.Rejected, Rejected{Key: txns[i].Key, Err: err})
			continue
		}
		descriptions[i] = desc
		unresolved = append(unresolved, i)
	}

	var resolved []model.DetectionResult
	for _, det := range a.detectors {
		if len(unresolved) == 0 {
			break
		}

		subset := make([]string, len(unresolved))
		for i, idx := range unresolved {
			subset[i] = descriptions[idx]
		}

		found, missing, err := det.TryDetect(ctx, subset)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", det.Name(), err)
		}

		for _, f := range found {
			if f.Index < 0 || f.Index >= len(unresolved) {
				return nil, fmt.Errorf("detector %s returned index %d outside batch of %d", det.Name(), f.Index, len(unresolved))
			}
			f.Index = unresolved[f.Index]
			resolved = append(resolved, f)
		}

		next := make([]int, 0, len(missing))
		for _, m := range missing {
			if m < 0 || m >= len(unresolved) {
				return nil, fmt.Errorf("detector %s returned index %d outside batch of %d", det.Name(), m, len(unresolved))
			}
			next = append(next, unresolved[m])
		}

		slog.Debug("Detector pass complete",
			"detector", det.Name(),
			"requested", len(subset),
			"found", len(found),
			"missing", len(next))

		unresolved = next
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Index < resolved[j].Index })
	for _, r := range resolved {
		txn := txns[r.Index]
		result.Found = append(result.Found, model.ExistingRecord{
			Key:         txn.Key,
			MatchedID:   r.MatchedID,
			Description: descriptions[r.Index],
			Category:    r.Category,
			Amount:      txn.Amount,
			Source:      r.Source,
		})
	}

	sort.Ints(unresolved)
	for _, idx := range unresolved {
		result.Missing = append(result.Missing, txns[idx])
	}

	return result, nil
}
