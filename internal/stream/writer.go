package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/transcat/internal/format"
	"github.com/Veraticus/transcat/internal/model"
)

// Reply field names.
const (
	FieldText         = "text"
	FieldIndexes      = "indexes"
	FieldCategories   = "categories"
	FieldFoundIndexes = "found_indexes"
)

// Writer appends entries to one stream.
type Writer struct {
	client *redis.Client
	stream string
}

// NewWriter creates a writer for stream.
func NewWriter(client *redis.Client, stream string) *Writer {
	return &Writer{client: client, stream: stream}
}

// Stream returns the stream name.
func (w *Writer) Stream() string {
	return w.stream
}

// Write appends one entry and returns its id.
func (w *Writer) Write(ctx context.Context, values map[string]any) (string, error) {
	id, err := w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: w.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to write to %s: %w", w.stream, wrapRedisError(err))
	}
	return id, nil
}

// Emit publishes a label event.
func (w *Writer) Emit(ctx context.Context, event model.LabelEvent) error {
	_, err := w.Write(ctx, event.Fields())
	return err
}

// Reply publishes a formatted response. List fields are JSON arrays.
func (w *Writer) Reply(ctx context.Context, resp *format.Response) error {
	values := map[string]any{FieldText: resp.Message}

	lists := map[string][]string{
		FieldIndexes:    resp.Indexes,
		FieldCategories: resp.Categories,
	}
	if resp.Existing() {
		lists[FieldFoundIndexes] = resp.FoundIndexes
	}
	for name, list := range lists {
		b, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		values[name] = string(b)
	}

	_, err := w.Write(ctx, values)
	return err
}
