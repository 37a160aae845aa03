// Package engine implements the classification pipeline: detection, training,
// persistence and label event emission for a batch of inbound transactions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Veraticus/transcat/internal/classification"
	"github.com/Veraticus/transcat/internal/format"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/storage"
	"github.com/Veraticus/transcat/internal/textclass"
)

// Engine orchestrates a batch from analysis to saved predictions.
type Engine struct {
	store    Store
	analyzer Analyzer
	events   EventEmitter
	training *semaphore.Weighted
	trainer  textclass.Config
	writeMu  sync.Mutex
}

// Config holds configuration options for the engine.
type Config struct {
	Trainer             textclass.Config
	TrainingConcurrency int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Trainer:             textclass.DefaultConfig(),
		TrainingConcurrency: 1,
	}
}

// Outcome summarizes one processed batch.
type Outcome struct {
	Responses []*format.Response
	Rejected  []classification.Rejected
	Found     int
	Predicted int
	Saved     int
}

// New creates an engine with the default configuration.
func New(store Store, analyzer Analyzer, events EventEmitter) *Engine {
	return NewWithConfig(store, analyzer, events, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration. A nil emitter
// logs events instead of publishing them.
func NewWithConfig(store Store, analyzer Analyzer, events EventEmitter, config Config) *Engine {
	if events == nil {
		events = LogEmitter{}
	}
	if config.TrainingConcurrency < 1 {
		config.TrainingConcurrency = 1
	}
	return &Engine{
		store:    store,
		analyzer: analyzer,
		events:   events,
		trainer:  config.Trainer,
		training: semaphore.NewWeighted(config.TrainingConcurrency),
	}
}

// Process classifies a batch. Transactions with a known category are
// reported as matches; the rest are predicted, saved and announced with
// assigned events. The prediction response, if any, comes first.
func (e *Engine) Process(ctx context.Context, txns []model.Transaction) (*Outcome, error) {
	start := time.Now()

	result, err := e.analyzer.Analyze(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze batch: %w", err)
	}

	outcome := &Outcome{
		Rejected: result.Rejected,
		Found:    len(result.Found),
	}

	if len(result.Missing) > 0 {
		resp, saved, err := e.predictAndSave(ctx, result.Missing)
		if err != nil {
			return nil, err
		}
		outcome.Responses = append(outcome.Responses, resp)
		outcome.Predicted = len(result.Missing)
		outcome.Saved = saved
	}

	if len(result.Found) > 0 {
		outcome.Responses = append(outcome.Responses, format.ExistingMessageResponse(result.Found))
	}

	slog.Info("Processed batch",
		"transactions", len(txns),
		"found", outcome.Found,
		"predicted", outcome.Predicted,
		"saved", outcome.Saved,
		"rejected", len(outcome.Rejected),
		"duration", time.Since(start))

	return outcome, nil
}

func (e *Engine) predictAndSave(ctx context.Context, missing []model.Transaction) (*format.Response, int, error) {
	rows := make([]model.CategoryRecord, len(missing))
	for i := range missing {
		rec, err := model.RecordFromTransaction(&missing[i])
		if err != nil {
			return nil, 0, fmt.Errorf("transaction %s: %w", missing[i].Key, err)
		}
		rows[i] = rec
	}

	historical, err := e.store.LoadHistorical(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load training data: %w", err)
	}

	pred, err := e.train(ctx, historical, rows)
	if err != nil {
		return nil, 0, err
	}

	for i := range rows {
		rows[i].Category = pred.Labels[i]
	}

	inserted, err := e.save(ctx, rows)
	if err != nil {
		return nil, 0, err
	}

	resp, err := format.MessageResponse(pred, rows)
	if err != nil {
		return nil, 0, err
	}
	return resp, inserted, nil
}

// train runs one self-contained fit. Concurrent batches queue on the
// training semaphore.
func (e *Engine) train(ctx context.Context, historical, rows []model.CategoryRecord) (*model.PredictionResult, error) {
	if err := e.training.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.training.Release(1)

	pred, err := textclass.TrainAndPredict(historical, rows, e.trainer)
	if err != nil {
		return nil, fmt.Errorf("failed to predict categories: %w", err)
	}
	return pred, nil
}

// save appends the rows and announces those that were actually inserted.
func (e *Engine) save(ctx context.Context, rows []model.CategoryRecord) (int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	res, err := e.store.AppendRecords(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to save predictions: %w", err)
	}
	if res.Skipped > 0 {
		slog.Info("Skipped already saved records",
			"skipped", res.Skipped,
			"max_id", res.MaxID)
	}

	for _, rec := range res.Inserted {
		e.emit(ctx, model.LabelEvent{
			ID:     rec.Key(),
			Label:  rec.Category,
			Action: model.ActionAssigned,
		})
	}
	return len(res.Inserted), nil
}

// Correct replaces the category of one saved record and announces the change.
func (e *Engine) Correct(ctx context.Context, key, category string) error {
	if category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	id, err := model.ParseRecordID(key)
	if err != nil {
		return err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.store.UpdateCategory(ctx, id, category); err != nil {
		return fmt.Errorf("failed to correct record %s: %w", key, err)
	}

	slog.Info("Corrected category", "id", id, "category", category)
	e.emit(ctx, model.LabelEvent{
		ID:     model.FormatRecordKey(id),
		Label:  category,
		Action: model.ActionChanged,
	})
	return nil
}

// ChosenCategory re-reads a saved record and renders it as a single
// prediction with zero confidence, for confirming a correction.
func (e *Engine) ChosenCategory(ctx context.Context, key string) (*format.Response, error) {
	id, err := model.ParseRecordID(key)
	if err != nil {
		return nil, err
	}
	rec, err := e.store.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	pred := &model.PredictionResult{
		Labels:      []string{rec.Category},
		Confidences: []float64{0},
	}
	return format.MessageResponse(pred, []model.CategoryRecord{*rec})
}

// emit publishes an event after the change it describes is committed. A
// failure is logged; the saved data stays authoritative.
func (e *Engine) emit(ctx context.Context, event model.LabelEvent) {
	if err := e.events.Emit(ctx, event); err != nil {
		slog.Error("Failed to emit label event",
			"id", event.ID,
			"action", event.Action,
			"error", err)
	}
}

var _ Store = (*storage.Store)(nil)
