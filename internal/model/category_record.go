package model

import (
	"fmt"
	"time"
)

// Feature columns available to the text classifier.
const (
	ColumnID            = "id"
	ColumnDescription   = "description"
	ColumnCategory      = "category"
	ColumnAmount        = "amount"
	ColumnOperationDate = "operation_date"
	ColumnType          = "type"
)

// CategoryRecord is a durable row: a transaction with its canonical
// description and, once assigned, its category.
type CategoryRecord struct {
	OperationDate time.Time
	Description   string
	Category      string // empty until assigned
	Amount        string
	Kind          Kind
	ID            int64
}

// Key renders the id in the stream key form used by callers.
func (r *CategoryRecord) Key() string {
	return FormatRecordKey(r.ID)
}

// Column returns the textual value of a named column.
func (r *CategoryRecord) Column(name string) (string, error) {
	switch name {
	case ColumnID:
		return r.Key(), nil
	case ColumnDescription:
		return r.Description, nil
	case ColumnCategory:
		return r.Category, nil
	case ColumnAmount:
		return r.Amount, nil
	case ColumnOperationDate:
		return r.OperationDate.Format(DateLayout), nil
	case ColumnType:
		return string(r.Kind), nil
	default:
		return "", fmt.Errorf("unknown column %q", name)
	}
}

// RecordFromTransaction builds the uncategorized row for an inbound transaction.
func RecordFromTransaction(t *Transaction) (CategoryRecord, error) {
	desc, err := Description(t)
	if err != nil {
		return CategoryRecord{}, err
	}
	id, err := t.RecordID()
	if err != nil {
		return CategoryRecord{}, err
	}
	return CategoryRecord{
		ID:            id,
		Description:   desc,
		Amount:        t.Amount,
		OperationDate: t.OperationDate,
		Kind:          t.Kind,
	}, nil
}
