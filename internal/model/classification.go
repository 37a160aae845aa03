// Package model defines the core domain models used throughout the application.
package model

// MatchSource names the detector that resolved a description.
type MatchSource string

// Match sources.
const (
	MatchExact MatchSource = "EXACT"
	MatchRegex MatchSource = "REGEX"
)

// RegexMatchID is reported as the matched id for rule-based matches.
const RegexMatchID = "RE"

// DetectionResult is one description resolved by a detector. Index is relative
// to the descriptions handed to that detector.
type DetectionResult struct {
	MatchedID string
	Category  string
	Source    MatchSource
	Index     int
}

// ExistingRecord is an inbound transaction whose category was found without
// training.
type ExistingRecord struct {
	Key         string
	MatchedID   string
	Description string
	Category    string
	Amount      string
	Source      MatchSource
}

// PredictionResult is the output of one training run. Labels and Confidences
// are aligned with the rows that were predicted.
type PredictionResult struct {
	Labels      []string
	Confidences []float64 // 120 x max class probability
	KnownLabels []string  // distinct training labels in first-seen order
}
