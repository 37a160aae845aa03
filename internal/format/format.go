// Package format renders classification results as chat-ready summaries.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/transcat/internal/model"
)

// Response is a multi-line summary plus the keys and categories a selection
// UI offers next to it. Indexes and Categories are parallel.
type Response struct {
	Message    string
	Indexes    []string
	Categories []string
	// FoundIndexes holds the matched record id per line; set only for
	// detector matches.
	FoundIndexes []string
}

// Existing reports whether the response describes detector matches.
func (r *Response) Existing() bool {
	return r.FoundIndexes != nil
}

// MessageResponse renders one line per predicted row:
//
//	[key] amount description <> category (confidence)
//
// Confidence is rounded half away from zero.
func MessageResponse(pred *model.PredictionResult, rows []model.CategoryRecord) (*Response, error) {
	if pred == nil {
		return nil, fmt.Errorf("prediction result is nil")
	}
	if len(pred.Labels) != len(rows) {
		return nil, fmt.Errorf("have %d labels for %d rows", len(pred.Labels), len(rows))
	}

	resp := &Response{
		Indexes:    make([]string, 0, len(rows)),
		Categories: make([]string, 0, len(rows)),
	}
	lines := make([]string, 0, len(rows))
	for i := range rows {
		var conf float64
		if i < len(pred.Confidences) {
			conf = pred.Confidences[i]
		}
		row := &rows[i]
		key := row.Key()
		lines = append(lines, fmt.Sprintf("[%s] %s %s <> %s (%d)",
			key, row.Amount, row.Description, pred.Labels[i], int64(math.Round(conf))))
		resp.Indexes = append(resp.Indexes, key)
		resp.Categories = append(resp.Categories, pred.Labels[i])
	}
	resp.Message = strings.Join(lines, "\n")
	return resp, nil
}

// ExistingMessageResponse renders one line per detector match:
//
//	[key] amount description <> Found at [matched_id]: category
func ExistingMessageResponse(found []model.ExistingRecord) *Response {
	resp := &Response{
		Indexes:      make([]string, 0, len(found)),
		Categories:   make([]string, 0, len(found)),
		FoundIndexes: make([]string, 0, len(found)),
	}
	lines := make([]string, 0, len(found))
	for _, f := range found {
		lines = append(lines, fmt.Sprintf("[%s] %s %s <> Found at [%s]: %s",
			f.Key, f.Amount, f.Description, f.MatchedID, f.Category))
		resp.Indexes = append(resp.Indexes, f.Key)
		resp.Categories = append(resp.Categories, f.Category)
		resp.FoundIndexes = append(resp.FoundIndexes, f.MatchedID)
	}
	resp.Message = strings.Join(lines, "\n")
	return resp
}
