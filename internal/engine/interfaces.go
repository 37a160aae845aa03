package engine

import (
	"context"
	"log/slog"

	"github.com/Veraticus/transcat/internal/classification"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/storage"
)

// Store defines the persistence the engine needs.
type Store interface {
	LoadHistorical(ctx context.Context) ([]model.CategoryRecord, error)
	AppendRecords(ctx context.Context, records []model.CategoryRecord) (*storage.AppendResult, error)
	UpdateCategory(ctx context.Context, id int64, category string) error
	GetRecord(ctx context.Context, id int64) (*model.CategoryRecord, error)
}

// Analyzer splits a batch into detector matches and transactions to predict.
type Analyzer interface {
	Analyze(ctx context.Context, txns []model.Transaction) (*classification.Result, error)
}

// EventEmitter publishes label events to an audit channel.
type EventEmitter interface {
	Emit(ctx context.Context, event model.LabelEvent) error
}

// LogEmitter writes label events to the structured log.
type LogEmitter struct{}

// Emit implements EventEmitter.
func (LogEmitter) Emit(_ context.Context, event model.LabelEvent) error {
	slog.Info("Label event",
		"id", event.ID,
		"label", event.Label,
		"action", event.Action)
	return nil
}
