package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/transcat/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrEmptySlice    = errors.New("slice cannot be empty")
	ErrInvalidRecord = errors.New("invalid record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a slice of records before insertion.
func validateRecords(records []model.CategoryRecord) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}

	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
	}
	return nil
}

// validateRecord validates a single record.
func validateRecord(rec *model.CategoryRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidRecord)
	}
	if rec.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidRecord)
	}
	if rec.OperationDate.IsZero() {
		return fmt.Errorf("%w: missing operation date", ErrInvalidRecord)
	}
	return nil
}
