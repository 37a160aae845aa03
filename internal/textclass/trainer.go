package textclass

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

// DefaultConfidenceScale multiplies the winning class probability. It is 120
// rather than 100, so confidences can exceed 100; downstream consumers depend
// on this scale.
const DefaultConfidenceScale = 120.0

// Config controls feature extraction and fitting.
type Config struct {
	FeatureColumns  []string
	CategoryColumn  string
	TokenPattern    string
	MaxFeatures     int
	MaxIterations   int
	C               float64
	ConfidenceScale float64
	Lowercase       bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FeatureColumns:  []string{model.ColumnAmount, model.ColumnDescription},
		CategoryColumn:  model.ColumnCategory,
		TokenPattern:    DefaultTokenPattern,
		MaxFeatures:     DefaultMaxFeatures,
		MaxIterations:   5000,
		C:               1.0,
		ConfidenceScale: DefaultConfidenceScale,
		Lowercase:       false,
	}
}

// TrainAndPredict fits a fresh model on the historical rows and predicts a
// label and confidence for every unknown row, in order.
//
// The vectorizer is fitted on historical and unknown text together so both
// share one feature space and the new rows never fall outside the
// vocabulary. Nothing is reused between calls.
func TrainAndPredict(historical, unknown []model.CategoryRecord, cfg Config) (*model.PredictionResult, error) {
	if len(historical) == 0 {
		return nil, fmt.Errorf("%w: no categorized records", common.ErrInsufficientTrainingData)
	}
	if len(cfg.FeatureColumns) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", common.ErrInvalidConfig)
	}
	start := time.Now()

	docs := make([]string, 0, len(historical)+len(unknown))
	labels := make([]string, len(historical))
	for i := range historical {
		doc, err := rowText(&historical[i], cfg.FeatureColumns)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)

		label, err := historical[i].Column(cfg.CategoryColumn)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
		labels[i] = label
	}
	for i := range unknown {
		doc, err := rowText(&unknown[i], cfg.FeatureColumns)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	result := &model.PredictionResult{
		Labels:      make([]string, 0, len(unknown)),
		Confidences: make([]float64, 0, len(unknown)),
		KnownLabels: distinct(labels),
	}
	if len(unknown) == 0 {
		return result, nil
	}

	vec, err := NewVectorizer(cfg.TokenPattern, cfg.Lowercase, cfg.MaxFeatures)
	if err != nil {
		return nil, fmt.Errorf("%w: token pattern: %w", common.ErrInvalidConfig, err)
	}
	features := vec.FitTransform(docs)
	train := features.Slice(0, len(historical))
	predict := features.Slice(len(historical), features.Len())

	var enc LabelEncoder
	enc.Fit(labels)
	y, err := enc.Transform(labels)
	if err != nil {
		return nil, err
	}

	clf := NewLogisticRegression(cfg.C, cfg.MaxIterations)
	if err := clf.Fit(train, y, len(enc.Classes())); err != nil {
		if errors.Is(err, ErrTooFewClasses) {
			return nil, fmt.Errorf("%w: %w", common.ErrInsufficientTrainingData, err)
		}
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	proba, err := clf.PredictProba(predict)
	if err != nil {
		return nil, err
	}

	scale := cfg.ConfidenceScale
	if scale == 0 {
		scale = DefaultConfidenceScale
	}
	for _, p := range proba {
		best := floats.MaxIdx(p)
		result.Labels = append(result.Labels, enc.Inverse(best))
		result.Confidences = append(result.Confidences, scale*p[best])
	}

	slog.Debug("Trained classifier",
		"training_rows", len(historical),
		"predicted_rows", len(unknown),
		"vocabulary", len(vec.Vocabulary()),
		"classes", len(enc.Classes()),
		"duration", time.Since(start))

	return result, nil
}

// rowText joins the configured columns with single spaces.
func rowText(rec *model.CategoryRecord, columns []string) (string, error) {
	parts := make([]string, len(columns))
	for i, col := range columns {
		v, err := rec.Column(col)
		if err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
		parts[i] = v
	}
	return strings.Join(parts, " "), nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
